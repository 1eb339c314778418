package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/metrics"
)

func newTestService(t *testing.T) *VerificationService {
	t.Helper()
	svc, err := NewVerificationService(testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	return svc.WithClock(func() time.Time { return testToday.Add(10 * time.Hour) })
}

func TestVerifyDocumentsCleanQuarter(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.VerifyDocuments(context.Background(), "claimant-1", quarter())
	require.NoError(t, err)

	_, err = uuid.Parse(report.ReportID)
	assert.NoError(t, err)
	assert.Equal(t, "claimant-1", report.ClaimantID)
	assert.Equal(t, "2026-04-15T10:00:00Z", report.ProcessedAt)
	require.Len(t, report.Documents, 3)

	for i, doc := range report.Documents {
		assert.Equal(t, i, doc.Index)
		assert.True(t, doc.Verifications.Passed(), "document %d: %v", i, doc.Verifications.Reasons)
		assert.False(t, doc.HighFraudRisk)
		assert.NotNil(t, doc.FraudSignals)
		require.NotNil(t, doc.TotalGrossPayGBP)
		assert.Equal(t, "2650.00", doc.TotalGrossPayGBP.String())
	}
	assert.True(t, report.Batch.ConsecutiveSequenceValid)
	assert.Equal(t, 3, report.Summary.FullyVerified)
	assert.Equal(t, 3, report.Summary.ByType[dto.DocTypePayslip])
	assert.Greater(t, report.OverallConfidence, 0.9)
	assert.Empty(t, report.Batch.TemplateReusePairs)
	assert.Empty(t, report.Batch.DuplicatePairs)
}

func TestVerifyDocumentsBatchSignalsFollowDocumentSignals(t *testing.T) {
	svc := newTestService(t)
	jan := withText(payslip(date(2026, time.January, 31)), "January 2026", "2,500.00", "2,650.00")
	feb := withText(payslip(date(2026, time.February, 28)), "February 2026", "2,750.00", "2,900.00")
	feb.IncomeItems = items(275000, 15000)
	feb.DeclaredTotalMinorUnits = pence(290000)
	feb.Employer.Name = "Cash"

	report, err := svc.VerifyDocuments(context.Background(), "", []dto.ExtractedDocument{jan, feb})
	require.NoError(t, err)

	require.Len(t, report.Batch.TemplateReusePairs, 1)
	got := kinds(report.Documents[1].FraudSignals)
	assert.Equal(t, []dto.FraudSignalKind{dto.SignalEmployerLegitimacy, dto.SignalTemplateReuse}, got)
	assert.Contains(t, report.Documents[1].FraudSignals[1].Evidence, "document 0")
	assert.Equal(t, []dto.FraudSignalKind{dto.SignalTemplateReuse}, kinds(report.Documents[0].FraudSignals))
	assert.Less(t, report.Documents[1].OverallConfidence, report.Documents[0].OverallConfidence)
}

func TestVerifyDocumentsHighFraudRisk(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.VerifyDocuments(context.Background(), "", []dto.ExtractedDocument{tamperedPayslip()})
	require.NoError(t, err)

	doc := report.Documents[0]
	assert.True(t, doc.HighFraudRisk)
	assert.Less(t, doc.OverallConfidence, 0.7)
	assert.GreaterOrEqual(t, doc.OverallConfidence, 0.0)
	assert.Equal(t, 1, report.Summary.HighRiskDocuments)
	assert.Equal(t, len(doc.FraudSignals), report.Summary.TotalFraudSignals)
}

func TestVerifyDocumentsPanicIsolatedToDocument(t *testing.T) {
	svc := newTestService(t)
	svc.verifier = nil

	out := svc.processDocument(0, payslip(date(2026, time.March, 31)), nil, testToday)
	assert.True(t, out.panicked)
	assert.Equal(t, []string{internalErrorReason}, out.result.Reasons)

	report, err := svc.VerifyDocuments(context.Background(), "", quarter())
	require.NoError(t, err)
	require.Len(t, report.Documents, 3)
	for _, doc := range report.Documents {
		assert.Equal(t, []string{internalErrorReason}, doc.Verifications.Reasons)
		assert.Equal(t, 0.0, doc.OverallConfidence)
	}
}

func TestVerifyDocumentsCancelledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.VerifyDocuments(ctx, "", quarter())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVerifyBatchRequestErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.VerifyBatch(context.Background(), &dto.VerifyBatchRequest{})
	assert.True(t, errors.Is(err, dto.ErrEmptyBatch))

	svc.cfg.Server.MaxBatchDocuments = 1
	req := &dto.VerifyBatchRequest{Documents: make([]dto.DocumentInput, 2)}
	_, err = svc.VerifyBatch(context.Background(), req)
	assert.True(t, errors.Is(err, dto.ErrTooManyDocuments))
}

func TestVerifyBatchFromWire(t *testing.T) {
	svc := newTestService(t)
	body := `{
		"claimant_id": "C-42",
		"documents": [{
			"document_type": "payslip",
			"employee": {"name": "Jane Smith", "ni_number": "AB123456C", "confidence": 0.95},
			"employer": {"name": "Acme Corporation Ltd", "confidence": 0.9},
			"income": [{"type": "salary", "amount": "2,500.00", "confidence": 0.9}, {"type": "bonus", "amount": "abc"}],
			"total_gross_pay": "2,500.00",
			"pay_period": {"end_date": "2026-03-31", "pay_date": "2026-03-31"},
			"ocr_quality": 0.9
		}]
	}`
	var req dto.VerifyBatchRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	report, err := svc.VerifyBatch(context.Background(), &req)
	require.NoError(t, err)

	doc := report.Documents[0]
	assert.False(t, doc.Verifications.TotalConsistencyPass)
	assert.False(t, doc.Verifications.ConsecutivePass)
	assert.Equal(t, []dto.FraudSignalKind{dto.SignalAmountUnparseable}, kinds(doc.FraudSignals))
	require.Len(t, doc.Income, 2)
	assert.Equal(t, "2500.00", doc.Income[0].AmountGBP.String())
	assert.Nil(t, doc.Income[1].AmountGBP)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount_gbp":2500.00`)
	assert.Contains(t, string(raw), `"end_date":"2026-03-31"`)
	assert.Contains(t, string(raw), `"recency_pass":true`)
}

func TestVerifyDocumentsRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc, err := NewVerificationService(testConfig(), zap.NewNop(), m)
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return testToday.Time })

	_, err = svc.VerifyDocuments(context.Background(), "", append(quarter(), tamperedPayslip()))
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("payslip", "verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("payslip", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HighRiskDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FraudSignals.WithLabelValues("ni_number_format")))
}
