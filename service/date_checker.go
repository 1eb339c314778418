package service

import (
	"fmt"
	"time"

	"github.com/Aashish23092/payslip-verification/dto"
)

// DateChecker validates period ordering and recency. It holds no state; "today" is passed in
// so results are reproducible.
type DateChecker struct{}

type DateIssue struct {
	Field string
	Err   error
}

// CheckOrder reports a start date after the end date and any pay or end date after today.
func (DateChecker) CheckOrder(doc dto.ExtractedDocument, today dto.Date) []DateIssue {
	var issues []DateIssue
	if doc.PeriodStart != nil && doc.PeriodEnd != nil && doc.PeriodStart.After(doc.PeriodEnd.Time) {
		issues = append(issues, DateIssue{
			Field: "pay_period.start_date",
			Err: fmt.Errorf("date logic: %w: %s > %s",
				dto.ErrPeriodInverted, doc.PeriodStart, doc.PeriodEnd),
		})
	}
	for _, d := range []struct {
		field string
		date  *dto.Date
	}{
		{"pay_period.end_date", doc.PeriodEnd},
		{"pay_period.pay_date", doc.PayDate},
	} {
		if d.date != nil && d.date.After(today.Time) {
			issues = append(issues, DateIssue{
				Field: d.field,
				Err:   fmt.Errorf("date logic: %w: %s %s is after %s", dto.ErrFutureDate, d.field, d.date, today),
			})
		}
	}
	return issues
}

// CheckPayTiming reports a pay date earlier than the period end. Paying a few days early is
// common, so this is advisory and never part of CheckOrder.
func (DateChecker) CheckPayTiming(doc dto.ExtractedDocument) *DateIssue {
	if doc.PayDate == nil || doc.PeriodEnd == nil || !doc.PayDate.Before(doc.PeriodEnd.Time) {
		return nil
	}
	return &DateIssue{
		Field: "pay_period.pay_date",
		Err: fmt.Errorf("date logic: %w: paid %s for a period ending %s",
			dto.ErrPaidBeforePeriodEnd, doc.PayDate, doc.PeriodEnd),
	}
}

// CheckRecency requires the reference date to be no older than maxAgeMonths before today.
func (DateChecker) CheckRecency(doc dto.ExtractedDocument, today dto.Date, maxAgeMonths int) error {
	ref, field, ok := doc.ReferenceDate()
	if !ok {
		return fmt.Errorf("recency: %w: date missing (no pay_date or period_end)", dto.ErrMissingRequiredField)
	}
	cutoff := monthsBefore(today.Time, maxAgeMonths)
	if ref.Before(cutoff) {
		return fmt.Errorf("recency: %w: %s %s is older than %d months (cutoff %s)",
			dto.ErrStaleDocument, field, ref, maxAgeMonths, dto.DateOf(cutoff))
	}
	return nil
}

// monthsBefore steps back n calendar months, clamping the day to the length of the target
// month: 31 Aug minus 6 months is 28 Feb, not 3 Mar.
func monthsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d, last)-1)
}
