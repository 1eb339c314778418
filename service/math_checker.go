package service

import (
	"fmt"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/utils"
)

// MathChecker compares declared totals with itemised income in integer pence.
type MathChecker struct {
	TolerancePence int64
	CeilingPence   int64
	// RoundMinPence and RoundStepPence define a suspiciously round item: above the minimum
	// and an exact multiple of the step. A zero step disables the check.
	RoundMinPence  int64
	RoundStepPence int64
}

func NewMathChecker(fd config.FraudDetectionConfig) MathChecker {
	return MathChecker{
		TolerancePence: fd.TolerancePence,
		CeilingPence:   fd.UnrealisticAmountPence,
		RoundMinPence:  fd.RoundAmountMinPence,
		RoundStepPence: fd.RoundAmountStepPence,
	}
}

type MathResult struct {
	Pass     bool
	Delta    int64 // itemised sum minus declared total
	Sum      int64
	Unparsed int
	Err      error
}

// Check sums the parsed item amounts and compares them to declared.
// A missing declared total only passes when there are no items at all.
func (m MathChecker) Check(items []dto.IncomeItem, declared *int64) MathResult {
	var res MathResult
	parsed := make([]int64, 0, len(items))
	for _, item := range items {
		if item.AmountMinorUnits == nil {
			res.Unparsed++
			continue
		}
		parsed = append(parsed, *item.AmountMinorUnits)
	}
	sum, err := utils.SumMinorUnits(parsed...)
	if err != nil {
		res.Err = fmt.Errorf("total consistency: %w: %d income item(s)", err, len(parsed))
		return res
	}
	res.Sum = sum

	if declared == nil {
		if len(items) == 0 {
			res.Pass = true
			return res
		}
		res.Err = fmt.Errorf("total consistency: %w: declared total absent but %d income item(s) present",
			dto.ErrMissingRequiredField, len(items))
		return res
	}

	res.Delta = res.Sum - *declared
	if res.Unparsed > 0 {
		res.Err = fmt.Errorf("total consistency: %w: %d income item(s) have no usable amount",
			dto.ErrUnparsedAmount, res.Unparsed)
		return res
	}
	if abs64(res.Delta) > m.TolerancePence {
		res.Err = fmt.Errorf("total consistency: %w: itemised %s vs declared %s (difference %s, tolerance %s)",
			dto.ErrTotalMismatch, utils.FormatAmount(res.Sum), utils.FormatAmount(*declared),
			utils.FormatAmount(res.Delta), utils.FormatAmount(m.TolerancePence))
		return res
	}
	res.Pass = true
	return res
}

// CheckDocument runs Check on a document's items and declared total. A declared total that was
// present but unparseable fails, even when the document has no items.
func (m MathChecker) CheckDocument(doc dto.ExtractedDocument) MathResult {
	if doc.DeclaredTotalMinorUnits == nil && doc.DeclaredTotalError != "" {
		res := m.Check(doc.IncomeItems, nil)
		res.Pass = false
		res.Err = fmt.Errorf("total consistency: %w: declared total: %s",
			dto.ErrUnparsedAmount, doc.DeclaredTotalError)
		return res
	}
	return m.Check(doc.IncomeItems, doc.DeclaredTotalMinorUnits)
}

type AmountFlag struct {
	Field       string
	MinorUnits  int64
	Negative    bool
	OverCeiling bool
}

// PlausibilityFlags reports negative amounts and amounts above the ceiling, for each income
// item and for the declared total.
func (m MathChecker) PlausibilityFlags(doc dto.ExtractedDocument) []AmountFlag {
	var flags []AmountFlag
	check := func(field string, v int64) {
		switch {
		case v < 0:
			flags = append(flags, AmountFlag{Field: field, MinorUnits: v, Negative: true})
		case m.CeilingPence > 0 && v > m.CeilingPence:
			flags = append(flags, AmountFlag{Field: field, MinorUnits: v, OverCeiling: true})
		}
	}
	for i, item := range doc.IncomeItems {
		if item.AmountMinorUnits != nil {
			check(fmt.Sprintf("income[%d].amount", i), *item.AmountMinorUnits)
		}
	}
	if doc.DeclaredTotalMinorUnits != nil {
		check("total_gross_pay", *doc.DeclaredTotalMinorUnits)
	}
	return flags
}

// RoundAmounts returns the income items whose amount is suspiciously round.
func (m MathChecker) RoundAmounts(doc dto.ExtractedDocument) []AmountFlag {
	if m.RoundStepPence <= 0 {
		return nil
	}
	var flags []AmountFlag
	for i, item := range doc.IncomeItems {
		if item.AmountMinorUnits == nil {
			continue
		}
		v := *item.AmountMinorUnits
		if v > m.RoundMinPence && v%m.RoundStepPence == 0 {
			flags = append(flags, AmountFlag{Field: fmt.Sprintf("income[%d].amount", i), MinorUnits: v})
		}
	}
	return flags
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
