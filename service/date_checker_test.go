package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/payslip-verification/dto"
)

func TestCheckRecency(t *testing.T) {
	dc := DateChecker{}

	fresh := dto.ExtractedDocument{PayDate: date(2026, time.March, 31)}
	assert.NoError(t, dc.CheckRecency(fresh, testToday, 6))

	eightMonths := dto.ExtractedDocument{PayDate: date(2025, time.August, 15)}
	err := dc.CheckRecency(eightMonths, testToday, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dto.ErrStaleDocument))
	assert.Contains(t, err.Error(), "stale")

	// period end is used when the pay date is absent
	byEnd := dto.ExtractedDocument{PeriodEnd: date(2025, time.October, 31)}
	assert.NoError(t, dc.CheckRecency(byEnd, testToday, 6))

	onCutoff := dto.ExtractedDocument{PayDate: date(2025, time.October, 15)}
	assert.NoError(t, dc.CheckRecency(onCutoff, testToday, 6))
}

func TestCheckRecencyMonthEnd(t *testing.T) {
	dc := DateChecker{}
	endOfAugust := dto.NewDate(2026, time.August, 31)

	tests := []struct {
		name  string
		today dto.Date
		pay   *dto.Date
		stale bool
	}{
		{"inside window", endOfAugust, date(2026, time.March, 1), false},
		{"on clamped cutoff", endOfAugust, date(2026, time.February, 28), false},
		{"day before clamped cutoff", endOfAugust, date(2026, time.February, 27), true},
		{"leap year cutoff", dto.NewDate(2028, time.August, 31), date(2028, time.February, 29), false},
		{"across year end", dto.NewDate(2026, time.March, 31), date(2025, time.September, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dc.CheckRecency(dto.ExtractedDocument{PayDate: tt.pay}, tt.today, 6)
			if tt.stale {
				assert.True(t, errors.Is(err, dto.ErrStaleDocument))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckRecencyMissingDate(t *testing.T) {
	err := DateChecker{}.CheckRecency(dto.ExtractedDocument{PeriodStart: date(2026, time.March, 1)}, testToday, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dto.ErrMissingRequiredField))
	assert.Contains(t, err.Error(), "date missing")
}

func TestCheckOrder(t *testing.T) {
	dc := DateChecker{}

	assert.Empty(t, dc.CheckOrder(payslip(date(2026, time.March, 31)), testToday))

	doc := dto.ExtractedDocument{
		PeriodStart: date(2026, time.May, 1),
		PeriodEnd:   date(2026, time.April, 30),
		PayDate:     date(2026, time.April, 28),
	}
	issues := dc.CheckOrder(doc, testToday)
	require.Len(t, issues, 3)
	assert.True(t, errors.Is(issues[0].Err, dto.ErrPeriodInverted))
	assert.Equal(t, "pay_period.start_date", issues[0].Field)
	assert.True(t, errors.Is(issues[1].Err, dto.ErrFutureDate))
	assert.Equal(t, "pay_period.end_date", issues[1].Field)
	assert.Equal(t, "pay_period.pay_date", issues[2].Field)
}

func TestCheckPayTiming(t *testing.T) {
	dc := DateChecker{}

	assert.Nil(t, dc.CheckPayTiming(payslip(date(2026, time.March, 31))))
	assert.Nil(t, dc.CheckPayTiming(dto.ExtractedDocument{PayDate: date(2026, time.March, 27)}))

	early := payslip(date(2026, time.March, 31))
	early.PayDate = date(2026, time.March, 27)
	issue := dc.CheckPayTiming(early)
	require.NotNil(t, issue)
	assert.Equal(t, "pay_period.pay_date", issue.Field)
	assert.True(t, errors.Is(issue.Err, dto.ErrPaidBeforePeriodEnd))

	// advisory only: ordering checks stay clean
	assert.Empty(t, dc.CheckOrder(early, testToday))
}
