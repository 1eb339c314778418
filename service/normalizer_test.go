package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/payslip-verification/dto"
)

func TestNormalizeDocument(t *testing.T) {
	body := `{
		"document_type": "Payslip",
		"employee": {"name": " Jane Smith ", "ni_number": "AB 12 34 56 C", "confidence": 0.95},
		"employer": {"name": "Acme Corporation Ltd", "confidence": null},
		"income": [
			{"type": "basic_pay", "amount": "£2,500.00", "confidence": 0.9},
			{"type": "bonus", "amount": 150.5},
			{"type": "benefits", "amount": "12.345"},
			{"type": "overtime", "amount": null}
		],
		"total_gross_pay": "2,650.50",
		"pay_period": {"start_date": "2026-03-01", "end_date": "2026-03-31", "pay_date": "2026-03-28"},
		"raw_text": "text",
		"ocr_quality": 0.8
	}`
	var in dto.DocumentInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	doc := NormalizeDocument(in)
	assert.Equal(t, dto.DocTypePayslip, doc.DocumentType)
	assert.Equal(t, "Jane Smith", doc.Employee.Name)
	assert.Nil(t, doc.Employer.Confidence)
	require.Len(t, doc.IncomeItems, 4)

	assert.Equal(t, dto.IncomeSalary, doc.IncomeItems[0].Category)
	assert.Equal(t, int64(250000), *doc.IncomeItems[0].AmountMinorUnits)
	assert.Equal(t, int64(15050), *doc.IncomeItems[1].AmountMinorUnits)

	assert.Equal(t, dto.IncomeBenefit, doc.IncomeItems[2].Category)
	assert.Nil(t, doc.IncomeItems[2].AmountMinorUnits)
	assert.Equal(t, "12.345", doc.IncomeItems[2].RawAmount)
	assert.NotEmpty(t, doc.IncomeItems[2].ParseError)

	assert.Equal(t, dto.IncomeOvertime, doc.IncomeItems[3].Category)
	assert.Nil(t, doc.IncomeItems[3].AmountMinorUnits)
	assert.Empty(t, doc.IncomeItems[3].ParseError)

	assert.Equal(t, int64(265050), *doc.DeclaredTotalMinorUnits)
	assert.Equal(t, dto.NewDate(2026, time.March, 28), *doc.PayDate)
	assert.Equal(t, dto.FrequencyMonthly, doc.Frequency())
	assert.Equal(t, 2, doc.UnparsedAmounts())
}

func TestNormalizeDocumentBadTotal(t *testing.T) {
	doc := NormalizeDocument(dto.DocumentInput{DocumentType: "payslip", TotalGrossPay: "1.2.3"})
	assert.Nil(t, doc.DeclaredTotalMinorUnits)
	assert.Equal(t, "1.2.3", doc.DeclaredTotalRaw)
	assert.NotEmpty(t, doc.DeclaredTotalError)
}
