package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/metrics"
	"github.com/Aashish23092/payslip-verification/patterns"
	"github.com/Aashish23092/payslip-verification/utils"
)

const internalErrorReason = "internal error while verifying document"

// VerificationService orchestrates one claimant batch: sequence, per-document verification
// and scoring, batch analysis, then report assembly.
type VerificationService struct {
	cfg      *config.Config
	verifier *Verifier
	scorer   *FraudScorer
	analyzer *BatchAnalyzer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewVerificationService(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*VerificationService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lib, err := patterns.New(patterns.Options{
		EmployerSuffixes:  cfg.FraudDetection.EmployerSuffixes,
		EmployerBlacklist: cfg.FraudDetection.EmployerBlacklist,
		NIFakePatterns:    cfg.FraudDetection.NIFakePatterns,
		NIStrictPrefixes:  cfg.FraudDetection.NIStrictPrefixes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
	}

	mc := NewMathChecker(cfg.FraudDetection)
	dc := DateChecker{}

	return &VerificationService{
		cfg:      cfg,
		verifier: NewVerifier(cfg.Verification, mc, dc),
		scorer:   NewFraudScorer(BuildDetectors(cfg.FraudDetection, lib, mc, dc), logger, m),
		analyzer: NewBatchAnalyzer(cfg.Batch),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// WithClock replaces the run-time clock, used for recency and future-date checks.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// VerifyBatch normalises the wire documents and verifies them as one batch.
func (s *VerificationService) VerifyBatch(ctx context.Context, req *dto.VerifyBatchRequest) (*dto.VerificationReport, error) {
	if err := req.Validate(s.cfg.Server.MaxBatchDocuments); err != nil {
		return nil, err
	}
	docs := make([]dto.ExtractedDocument, len(req.Documents))
	for i, in := range req.Documents {
		docs[i] = NormalizeDocument(in)
	}
	return s.VerifyDocuments(ctx, req.ClaimantID, docs)
}

type documentOutcome struct {
	result   dto.VerificationResult
	signals  []dto.FraudSignal
	panicked bool
}

// VerifyDocuments verifies already-normalised documents. Documents are processed in parallel;
// a panic on one document is recorded as a reason on that document only.
func (s *VerificationService) VerifyDocuments(ctx context.Context, claimantID string, docs []dto.ExtractedDocument) (*dto.VerificationReport, error) {
	if len(docs) == 0 {
		return nil, dto.ErrEmptyBatch
	}
	start := time.Now()
	runAt := s.now().UTC()
	today := dto.DateOf(runAt)

	s.logger.Info("verifying batch",
		zap.String("claimant_id", claimantID),
		zap.Int("documents", len(docs)),
	)

	seq := s.analyzer.Sequence(docs)

	outcomes := make([]documentOutcome, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Processing.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.processDocument(i, docs[i], seq, today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verify batch: %w", err)
	}

	batch := s.analyzer.Analyze(docs, seq, s.cfg.Verification.MinConsecutivePeriods)
	if batch.TemplateReuseSkipped != "" {
		s.logger.Warn("template reuse analysis skipped",
			zap.Int("documents", len(docs)),
			zap.Int("cap", s.cfg.Batch.MaxTemplateBatchSize),
		)
		s.metrics.IncrementTemplateSkipped()
	}

	report := s.assemble(claimantID, runAt, docs, outcomes, batch)
	s.metrics.ObserveBatch(len(docs), time.Since(start))
	s.logger.Info("batch verified",
		zap.String("report_id", report.ReportID),
		zap.Int("fully_verified", report.Summary.FullyVerified),
		zap.Int("high_risk", report.Summary.HighRiskDocuments),
		zap.Int("token_overlap_pairs", report.Batch.TokenOverlapPairs),
		zap.Float64("overall_confidence", report.OverallConfidence),
	)
	return report, nil
}

func (s *VerificationService) processDocument(i int, doc dto.ExtractedDocument, seq *BatchContext, today dto.Date) (out documentOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("document verification panicked",
				zap.Int("document_index", i),
				zap.Any("panic", r),
			)
			out = documentOutcome{
				result:   dto.VerificationResult{Reasons: []string{internalErrorReason}},
				signals:  []dto.FraudSignal{},
				panicked: true,
			}
		}
	}()
	return documentOutcome{
		result:  s.verifier.Verify(i, doc, seq, today),
		signals: s.scorer.Score(doc, today),
	}
}

func (s *VerificationService) assemble(
	claimantID string,
	runAt time.Time,
	docs []dto.ExtractedDocument,
	outcomes []documentOutcome,
	batch dto.BatchReport,
) *dto.VerificationReport {
	extra := batchSignals(docs, batch)
	report := &dto.VerificationReport{
		ReportID:    uuid.New().String(),
		ClaimantID:  claimantID,
		ProcessedAt: runAt.Format(time.RFC3339),
		Documents:   make([]dto.DocumentReport, len(docs)),
		Batch:       batch,
		Summary: dto.ReportSummary{
			Documents: len(docs),
			ByType:    make(map[dto.DocumentType]int),
		},
	}

	for i, doc := range docs {
		signals := append(outcomes[i].signals, extra[i]...)
		confidence := OverallConfidence(ExtractionConfidence(doc), signals)
		if outcomes[i].panicked {
			confidence = 0
		}
		highRisk := confidence < s.cfg.FraudDetection.ConfidenceThreshold

		report.Documents[i] = dto.DocumentReport{
			Index:             i,
			DocumentType:      doc.DocumentType,
			Employee:          doc.Employee,
			Employer:          doc.Employer,
			Period:            periodOutput(doc),
			Income:            incomeOutput(doc.IncomeItems),
			TotalGrossPayGBP:  amountOutput(doc.DeclaredTotalMinorUnits),
			Verifications:     outcomes[i].result,
			FraudSignals:      signals,
			OverallConfidence: round4(confidence),
			HighFraudRisk:     highRisk,
		}

		report.Summary.ByType[doc.DocumentType]++
		report.Summary.TotalFraudSignals += len(signals)
		if outcomes[i].result.Passed() {
			report.Summary.FullyVerified++
		}
		if highRisk {
			report.Summary.HighRiskDocuments++
		}
		s.metrics.ObserveDocument(string(doc.DocumentType), outcomes[i].result.Passed(), highRisk)
		for _, sig := range signals {
			s.metrics.IncrementSignal(string(sig.Kind))
		}
	}
	report.OverallConfidence = round4(BatchConfidence(report.Documents))
	return report
}

// batchSignals turns batch findings into per-document signals, in a fixed kind order.
func batchSignals(docs []dto.ExtractedDocument, batch dto.BatchReport) map[int][]dto.FraudSignal {
	out := make(map[int][]dto.FraudSignal)
	add := func(i int, sig dto.FraudSignal) {
		out[i] = append(out[i], sig)
	}

	for _, p := range batch.TemplateReusePairs {
		for _, pair := range [][2]int{{p.First, p.Second}, {p.Second, p.First}} {
			add(pair[0], dto.FraudSignal{
				Kind:     dto.SignalTemplateReuse,
				Severity: 0.8,
				Evidence: fmt.Sprintf("raw text %.1f%% similar to document %d while amounts or dates differ",
					p.Similarity*100, pair[1]),
				SourceField: "raw_text",
			})
		}
	}
	for _, p := range batch.DuplicatePairs {
		for _, pair := range [][2]int{{p.First, p.Second}, {p.Second, p.First}} {
			add(pair[0], dto.FraudSignal{
				Kind:     dto.SignalDuplicateDocument,
				Severity: 0.2,
				Evidence: fmt.Sprintf("raw text %.1f%% similar to document %d with identical amounts and dates",
					p.Similarity*100, pair[1]),
				SourceField: "raw_text",
			})
		}
	}

	median := batch.IncomeMedianMinorUnits
	for _, i := range batch.IncomeOutliers {
		total, _ := categoryTotalOf(docs[i], batch.OutlierCategory)
		deviation := 0.0
		if median != 0 {
			deviation = math.Abs(float64(total-median)) / float64(median) * 100
		}
		add(i, dto.FraudSignal{
			Kind:     dto.SignalIncomeOutlier,
			Severity: 0.5,
			Evidence: fmt.Sprintf("%s total %s deviates %.1f%% from batch median %s",
				batch.OutlierCategory, utils.FormatAmount(total), deviation, utils.FormatAmount(median)),
			SourceField: "income",
		})
	}

	for _, i := range batch.IdentityMismatches {
		add(i, dto.FraudSignal{
			Kind:        dto.SignalIdentityMismatch,
			Severity:    0.7,
			Evidence:    fmt.Sprintf("employee %q / %q disagrees with the batch's dominant identity", docs[i].Employee.Name, docs[i].Employee.NINumber),
			SourceField: "employee",
		})
	}
	return out
}

func amountOutput(minor *int64) *json.Number {
	if minor == nil {
		return nil
	}
	n := json.Number(utils.FormatAmount(*minor))
	return &n
}

func incomeOutput(items []dto.IncomeItem) []dto.IncomeOutput {
	out := make([]dto.IncomeOutput, 0, len(items))
	for _, item := range items {
		out = append(out, dto.IncomeOutput{
			Type:        item.Category,
			Description: item.Description,
			AmountGBP:   amountOutput(item.AmountMinorUnits),
			Confidence:  item.Confidence,
		})
	}
	return out
}

func periodOutput(doc dto.ExtractedDocument) dto.PeriodOutput {
	return dto.PeriodOutput{
		StartDate: doc.PeriodStart,
		EndDate:   doc.PeriodEnd,
		PayDate:   doc.PayDate,
		Frequency: doc.Frequency(),
	}
}
