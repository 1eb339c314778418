package service

import (
	"fmt"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
)

// Verifier decides whether one document is usable as proof of income.
type Verifier struct {
	cfg   config.VerificationConfig
	math  MathChecker
	dates DateChecker
}

func NewVerifier(cfg config.VerificationConfig, mc MathChecker, dc DateChecker) *Verifier {
	return &Verifier{cfg: cfg, math: mc, dates: dc}
}

// Verify runs every verification check on document index. seq must be computed over the
// whole batch first; the consecutive-period check reads it and never assumes a pass.
func (v *Verifier) Verify(index int, doc dto.ExtractedDocument, seq *BatchContext, today dto.Date) dto.VerificationResult {
	res := dto.VerificationResult{Reasons: []string{}}
	fail := func(err error) {
		res.Reasons = append(res.Reasons, err.Error())
	}

	if err := v.dates.CheckRecency(doc, today, v.cfg.MaxAgeMonths); err != nil {
		fail(err)
	} else {
		res.RecencyPass = true
	}

	if err := v.checkConsecutive(index, seq); err != nil {
		fail(err)
	} else {
		res.ConsecutivePass = true
	}

	if err := v.checkSignature(doc); err != nil {
		fail(err)
	} else {
		res.SignaturePass = true
	}

	if m := v.math.CheckDocument(doc); m.Err != nil {
		fail(m.Err)
	} else {
		res.TotalConsistencyPass = true
	}

	issues := v.dates.CheckOrder(doc, today)
	for _, issue := range issues {
		fail(issue.Err)
	}
	res.DateLogicPass = len(issues) == 0

	return res
}

func (v *Verifier) checkConsecutive(index int, seq *BatchContext) error {
	if reason := seq.Exclusion(index); reason != "" {
		return fmt.Errorf("consecutive periods: %w: %s", dto.ErrNotConsecutive, reason)
	}
	run := seq.RunLength(index)
	if run < v.cfg.MinConsecutivePeriods {
		return fmt.Errorf("consecutive periods: %w: %d consecutive period(s) in batch, %d required",
			dto.ErrNotConsecutive, run, v.cfg.MinConsecutivePeriods)
	}
	return nil
}

func (v *Verifier) checkSignature(doc dto.ExtractedDocument) error {
	if !v.cfg.RequireQualifiedAccountantSignature {
		return nil
	}
	if doc.HasAccountantSignature == nil {
		return fmt.Errorf("signature: %w: has_accountant_signature field missing", dto.ErrMissingRequiredField)
	}
	if !*doc.HasAccountantSignature {
		return fmt.Errorf("signature: %w", dto.ErrSignatureMissing)
	}
	return nil
}
