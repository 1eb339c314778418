package service

import (
	"time"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/patterns"
)

var testToday = dto.NewDate(2026, time.April, 15)

func pence(v int64) *int64 { return &v }

func conf(v float64) *float64 { return &v }

func flag(v bool) *bool { return &v }

func date(y int, m time.Month, d int) *dto.Date {
	v := dto.NewDate(y, m, d)
	return &v
}

func testLibrary() *patterns.Library {
	fd := config.Default().FraudDetection
	return patterns.MustNew(patterns.Options{
		EmployerSuffixes:  fd.EmployerSuffixes,
		EmployerBlacklist: fd.EmployerBlacklist,
		NIFakePatterns:    fd.NIFakePatterns,
		NIStrictPrefixes:  fd.NIStrictPrefixes,
	})
}

func items(amounts ...int64) []dto.IncomeItem {
	out := make([]dto.IncomeItem, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, dto.IncomeItem{Category: dto.IncomeSalary, AmountMinorUnits: pence(a), Confidence: conf(0.95)})
	}
	return out
}

// payslip returns a clean, fully verifiable monthly payslip for the given period end.
func payslip(end *dto.Date) dto.ExtractedDocument {
	start := dto.NewDate(end.Year(), end.Month(), 1)
	return dto.ExtractedDocument{
		DocumentType:            dto.DocTypePayslip,
		Employee:                dto.Employee{Name: "Jane Smith", NINumber: "AB123456C", Confidence: conf(0.95)},
		Employer:                dto.Employer{Name: "Acme Corporation Ltd", Confidence: conf(0.9)},
		IncomeItems:             items(250000, 15000),
		DeclaredTotalMinorUnits: pence(265000),
		PeriodStart:             &start,
		PeriodEnd:               end,
		PayDate:                 end,
		PayFrequency:            dto.FrequencyMonthly,
		RawText:                 "ACME CORPORATION LTD Payslip Employee Jane Smith NI AB123456C Basic 2,500.00 Bonus 150.00 Gross 2,650.00",
		OCRQuality:              conf(0.92),
	}
}

// quarter is three consecutive monthly payslips. Raw text is cleared so identical text with
// differing dates does not read as template reuse.
func quarter() []dto.ExtractedDocument {
	docs := []dto.ExtractedDocument{
		payslip(date(2026, time.January, 31)),
		payslip(date(2026, time.February, 28)),
		payslip(date(2026, time.March, 31)),
	}
	for i := range docs {
		docs[i].RawText = ""
	}
	return docs
}

func testConfig() *config.Config {
	return config.Default()
}
