package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type DocumentType string

const (
	DocTypePayslip       DocumentType = "payslip"
	DocTypeBankStatement DocumentType = "bank_statement"
	DocTypeOther         DocumentType = "other"
)

type IncomeCategory string

const (
	IncomeSalary     IncomeCategory = "salary"
	IncomeBonus      IncomeCategory = "bonus"
	IncomeCommission IncomeCategory = "commission"
	IncomeBenefit    IncomeCategory = "benefit"
	IncomeOvertime   IncomeCategory = "overtime"
	IncomeOther      IncomeCategory = "other"
)

// NormalizeIncomeCategory maps the labels emitted by the extraction layer onto a category.
// Unknown labels fall back to "other".
func NormalizeIncomeCategory(label string) IncomeCategory {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "salary", "basic", "basic_pay":
		return IncomeSalary
	case "bonus":
		return IncomeBonus
	case "commission":
		return IncomeCommission
	case "benefit", "benefits":
		return IncomeBenefit
	case "overtime":
		return IncomeOvertime
	default:
		return IncomeOther
	}
}

type PayFrequency string

const (
	FrequencyWeekly      PayFrequency = "weekly"
	FrequencyFortnightly PayFrequency = "fortnightly"
	FrequencyFourWeekly  PayFrequency = "four_weekly"
	FrequencyMonthly     PayFrequency = "monthly"
	FrequencyAnnual      PayFrequency = "annual"
)

const dateLayout = "2006-01-02"

// Date is a calendar date (UTC midnight) serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	*d = DateOf(t)
	return nil
}

// AmountText holds a monetary literal exactly as the extraction layer produced it.
// Both JSON strings ("£1,234.56") and JSON numbers (1234.56) are accepted; null is empty.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = AmountText(n.String())
	return nil
}

type Employee struct {
	Name       string   `json:"name"`
	NINumber   string   `json:"ni_number"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

type Employer struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// IncomeItem is one itemised income line. AmountMinorUnits is nil when the extracted
// amount was absent or could not be parsed; RawAmount and ParseError keep the evidence.
type IncomeItem struct {
	Category         IncomeCategory
	Description      string
	AmountMinorUnits *int64
	RawAmount        string
	ParseError       string
	Confidence       *float64
}

// ExtractedDocument is the immutable, normalised view of one document produced by the
// extraction pipeline. Money is held in integer minor units (pence).
type ExtractedDocument struct {
	DocumentType DocumentType
	Employee     Employee
	Employer     Employer
	IncomeItems  []IncomeItem

	DeclaredTotalMinorUnits *int64
	DeclaredTotalRaw        string
	DeclaredTotalError      string

	PeriodStart  *Date
	PeriodEnd    *Date
	PayDate      *Date
	PayFrequency PayFrequency

	HasAccountantSignature    *bool
	FontInconsistencyReported *bool

	RawText    string
	OCRQuality *float64
}

// ReferenceDate is the date recency is measured from: pay date, else period end.
func (d ExtractedDocument) ReferenceDate() (Date, string, bool) {
	if d.PayDate != nil {
		return *d.PayDate, "pay_date", true
	}
	if d.PeriodEnd != nil {
		return *d.PeriodEnd, "period_end", true
	}
	return Date{}, "", false
}

// PeriodDate identifies the pay period for sequencing: period end, pay date, then period start.
func (d ExtractedDocument) PeriodDate() (Date, bool) {
	switch {
	case d.PeriodEnd != nil:
		return *d.PeriodEnd, true
	case d.PayDate != nil:
		return *d.PayDate, true
	case d.PeriodStart != nil:
		return *d.PeriodStart, true
	}
	return Date{}, false
}

// Frequency returns the declared pay frequency, defaulting to monthly.
func (d ExtractedDocument) Frequency() PayFrequency {
	if d.PayFrequency == "" {
		return FrequencyMonthly
	}
	return d.PayFrequency
}

// UnparsedAmounts counts income items whose amount could not be used.
func (d ExtractedDocument) UnparsedAmounts() int {
	n := 0
	for _, item := range d.IncomeItems {
		if item.AmountMinorUnits == nil {
			n++
		}
	}
	return n
}
