package service

import (
	"strings"

	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/utils"
)

// NormalizeDocument converts the wire form into an ExtractedDocument. Amounts become pence;
// an unparseable amount is kept as absent along with its raw text and parse error.
func NormalizeDocument(in dto.DocumentInput) dto.ExtractedDocument {
	doc := dto.ExtractedDocument{
		DocumentType: dto.DocumentType(strings.ToLower(strings.TrimSpace(in.DocumentType))),
		Employee: dto.Employee{
			Name:       strings.TrimSpace(in.Employee.Name),
			NINumber:   strings.TrimSpace(in.Employee.NINumber),
			Confidence: in.Employee.Confidence,
		},
		Employer: dto.Employer{
			Name:       strings.TrimSpace(in.Employer.Name),
			Confidence: in.Employer.Confidence,
		},
		PeriodStart:               in.PayPeriod.StartDate,
		PeriodEnd:                 in.PayPeriod.EndDate,
		PayDate:                   in.PayPeriod.PayDate,
		PayFrequency:              dto.PayFrequency(in.PayPeriod.Frequency),
		HasAccountantSignature:    in.HasAccountantSignature,
		FontInconsistencyReported: in.FontInconsistencyReported,
		RawText:                   in.RawText,
		OCRQuality:                in.OCRQuality,
	}

	doc.DeclaredTotalRaw = string(in.TotalGrossPay)
	doc.DeclaredTotalMinorUnits, doc.DeclaredTotalError = parseOptionalAmount(doc.DeclaredTotalRaw)

	doc.IncomeItems = make([]dto.IncomeItem, 0, len(in.Income))
	for _, item := range in.Income {
		amount, parseErr := parseOptionalAmount(string(item.Amount))
		doc.IncomeItems = append(doc.IncomeItems, dto.IncomeItem{
			Category:         dto.NormalizeIncomeCategory(item.Type),
			Description:      item.Description,
			AmountMinorUnits: amount,
			RawAmount:        string(item.Amount),
			ParseError:       parseErr,
			Confidence:       item.Confidence,
		})
	}
	return doc
}

func parseOptionalAmount(raw string) (*int64, string) {
	if strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	v, err := utils.ParseAmount(raw)
	if err != nil {
		return nil, err.Error()
	}
	return &v, ""
}
