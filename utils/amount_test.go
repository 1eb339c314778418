package utils

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{
		"1234.56":       123456,
		"1,234.56":      123456,
		"£1,234.56":     123456,
		"GBP 1,234.56":  123456,
		"1234.56 GBP":   123456,
		"1.234,56":      123456,
		"1 234,56":      123456,
		"1,234":         123400,
		"12,5":          1250,
		"0.05":          5,
		".5":            50,
		"3500":          350000,
		"-12.00":        -1200,
		"-£12.00":       -1200,
		"£-12.00":       -1200,
		"(£50.00)":      -5000,
		"+7.10":         710,
		"1,234,567.89":  123456789,
		"  £ 2,000.00 ": 200000,
	}
	for input, want := range cases {
		got, err := ParseAmount(input)
		if assert.NoError(t, err, input) {
			assert.Equal(t, want, got, input)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	inputs := []string{
		"",
		"£",
		"abc",
		"12.34.56",
		"1,234.56.78",
		"12.345",
		"1.234",
		"12.",
		"1,23,456.00",
		"1e5",
		"(-12.00)",
		"12.3O",
		"1234567890123456.00",
	}
	for _, input := range inputs {
		_, err := ParseAmount(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrAmountUnparseable), input)

		var amountErr *AmountError
		require.True(t, errors.As(err, &amountErr), input)
		assert.Equal(t, input, amountErr.Input)
	}
}

func TestParseAmountNeverRoundsPrecision(t *testing.T) {
	_, err := ParseAmount("10.005")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 2 decimal places")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1234.56", FormatAmount(123456))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "-0.05", FormatAmount(-5))
	assert.Equal(t, "3500.00", FormatAmount(350000))
	assert.Equal(t, "0.00", FormatAmount(0))
}

func TestParseAmountRoundTrip(t *testing.T) {
	roundTrip := func(v int64) bool {
		v %= 1e15
		got, err := ParseAmount(FormatAmount(v))
		return err == nil && got == v
	}
	require.NoError(t, quick.Check(roundTrip, nil))
}

func TestSumMinorUnits(t *testing.T) {
	sum, err := SumMinorUnits(250000, 15000, -5000)
	require.NoError(t, err)
	assert.Equal(t, int64(260000), sum)

	// 15 integer digits is the largest amount ParseAmount accepts
	const largest = int64(99_999_999_999_999_999)
	up := make([]int64, 93)
	down := make([]int64, 93)
	for i := range up {
		up[i], down[i] = largest, -largest
	}
	_, err = SumMinorUnits(up...)
	assert.True(t, errors.Is(err, ErrAmountOverflow))
	_, err = SumMinorUnits(down...)
	assert.True(t, errors.Is(err, ErrAmountOverflow))
}
