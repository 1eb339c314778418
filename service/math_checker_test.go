package service

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/utils"
)

func TestMathCheckerExactSumPasses(t *testing.T) {
	mc := MathChecker{TolerancePence: 2, CeilingPence: 5_000_000}

	property := func(raw []uint32) bool {
		amounts := make([]int64, len(raw))
		var sum int64
		for i, r := range raw {
			amounts[i] = int64(r % 10_000_000)
			sum += amounts[i]
		}
		if len(amounts) == 0 {
			return true
		}
		return mc.Check(items(amounts...), pence(sum)).Pass
	}
	assert.NoError(t, quick.Check(property, nil))
}

func TestMathCheckerToleranceBoundary(t *testing.T) {
	mc := MathChecker{TolerancePence: 2}
	lines := items(100000, 50000)

	for _, declared := range []int64{149998, 149999, 150000, 150001, 150002} {
		assert.True(t, mc.Check(lines, pence(declared)).Pass, "declared %d", declared)
	}
	for _, declared := range []int64{149997, 150003} {
		res := mc.Check(lines, pence(declared))
		assert.False(t, res.Pass, "declared %d", declared)
		assert.True(t, errors.Is(res.Err, dto.ErrTotalMismatch))
	}

	res := mc.Check(lines, pence(150003))
	assert.Equal(t, int64(-3), res.Delta)
	assert.Equal(t, int64(150000), res.Sum)
}

func TestMathCheckerMissingDeclaredTotal(t *testing.T) {
	mc := MathChecker{TolerancePence: 2}

	assert.True(t, mc.Check(nil, nil).Pass)

	res := mc.Check(items(1000), nil)
	assert.False(t, res.Pass)
	assert.True(t, errors.Is(res.Err, dto.ErrMissingRequiredField))
}

func TestMathCheckerUnparsedItemFails(t *testing.T) {
	mc := MathChecker{TolerancePence: 2}
	lines := append(items(1000), dto.IncomeItem{Category: dto.IncomeBonus, RawAmount: "1.2.3"})

	res := mc.Check(lines, pence(1000))
	assert.False(t, res.Pass)
	assert.Equal(t, 1, res.Unparsed)
	assert.True(t, errors.Is(res.Err, dto.ErrUnparsedAmount))
}

func TestPlausibilityFlags(t *testing.T) {
	mc := MathChecker{TolerancePence: 2, CeilingPence: 5_000_000}
	doc := dto.ExtractedDocument{
		IncomeItems:             items(250000, -5000, 6_000_000),
		DeclaredTotalMinorUnits: pence(6_245_000),
	}

	flags := mc.PlausibilityFlags(doc)
	assert.Equal(t, []AmountFlag{
		{Field: "income[1].amount", MinorUnits: -5000, Negative: true},
		{Field: "income[2].amount", MinorUnits: 6_000_000, OverCeiling: true},
		{Field: "total_gross_pay", MinorUnits: 6_245_000, OverCeiling: true},
	}, flags)

	// the ceiling is per item, a total at the ceiling is fine
	assert.Empty(t, mc.PlausibilityFlags(dto.ExtractedDocument{IncomeItems: items(5_000_000)}))
}

func TestMathCheckerOverflowFails(t *testing.T) {
	mc := MathChecker{TolerancePence: 2}
	huge := make([]int64, 93)
	for i := range huge {
		huge[i] = 99_999_999_999_999_999
	}

	// wrapped sums must not line up with a forged total
	var wrapped int64
	for _, v := range huge {
		wrapped += v
	}
	res := mc.Check(items(huge...), pence(wrapped))
	assert.False(t, res.Pass)
	assert.True(t, errors.Is(res.Err, utils.ErrAmountOverflow))
}

func TestRoundAmounts(t *testing.T) {
	mc := NewMathChecker(config.Default().FraudDetection)
	doc := dto.ExtractedDocument{IncomeItems: items(250000, 100000, 250012, 15000)}

	assert.Equal(t, []AmountFlag{{Field: "income[0].amount", MinorUnits: 250000}}, mc.RoundAmounts(doc))

	mc.RoundStepPence = 0
	assert.Nil(t, mc.RoundAmounts(doc))
}
