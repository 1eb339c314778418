package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/patterns"
	"github.com/Aashish23092/payslip-verification/utils"
)

// Detector is one named, independently configurable fraud heuristic.
type Detector interface {
	Kind() dto.FraudSignalKind
	Detect(doc dto.ExtractedDocument, today dto.Date) ([]dto.FraudSignal, error)
}

type detectorFunc struct {
	kind dto.FraudSignalKind
	fn   func(doc dto.ExtractedDocument, today dto.Date) ([]dto.FraudSignal, error)
}

func (d detectorFunc) Kind() dto.FraudSignalKind { return d.kind }

func (d detectorFunc) Detect(doc dto.ExtractedDocument, today dto.Date) ([]dto.FraudSignal, error) {
	return d.fn(doc, today)
}

// NewDetector wraps fn as a Detector.
func NewDetector(kind dto.FraudSignalKind, fn func(dto.ExtractedDocument, dto.Date) ([]dto.FraudSignal, error)) Detector {
	return detectorFunc{kind: kind, fn: fn}
}

const maxEvidenceTokens = 5

// detectorSet binds the detectors to their shared collaborators.
type detectorSet struct {
	cfg   config.FraudDetectionConfig
	lib   *patterns.Library
	math  MathChecker
	dates DateChecker
}

// BuildDetectors returns the enabled detectors in output order. font_consistency_check gates
// the font and character detectors, total_validation gates the amount detectors and
// round_amount_check additionally gates round-figure flagging; disabled_detectors can switch
// off any of them.
func BuildDetectors(cfg config.FraudDetectionConfig, lib *patterns.Library, mc MathChecker, dc DateChecker) []Detector {
	s := detectorSet{cfg: cfg, lib: lib, math: mc, dates: dc}

	all := []struct {
		kind    dto.FraudSignalKind
		enabled bool
		fn      func(dto.ExtractedDocument, dto.Date) ([]dto.FraudSignal, error)
	}{
		{dto.SignalMixedAlphanumeric, cfg.FontConsistencyCheck, s.mixedAlphanumeric},
		{dto.SignalFontInconsistency, cfg.FontConsistencyCheck, s.fontInconsistency},
		{dto.SignalExcessiveSpace, true, s.excessiveWhitespace},
		{dto.SignalOCRArtifacts, true, s.ocrArtifacts},
		{dto.SignalSuspiciousUnicode, cfg.FontConsistencyCheck, s.suspiciousUnicode},
		{dto.SignalEmployerLegitimacy, true, s.employerLegitimacy},
		{dto.SignalNINumberFormat, true, s.niNumberFormat},
		{dto.SignalAmountUnparseable, true, s.amountUnparseable},
		{dto.SignalAmountPlausibility, cfg.TotalValidation, s.amountPlausibility},
		{dto.SignalRoundAmount, cfg.TotalValidation && cfg.RoundAmountCheck, s.roundAmount},
		{dto.SignalTotalMismatch, cfg.TotalValidation, s.totalMismatch},
		{dto.SignalDateAnomaly, true, s.dateAnomaly},
		{dto.SignalPaidBeforeEnd, true, s.paidBeforeEnd},
		{dto.SignalOCRQualityLow, true, s.ocrQualityLow},
	}

	detectors := make([]Detector, 0, len(all))
	for _, d := range all {
		if d.enabled && cfg.DetectorEnabled(string(d.kind)) {
			detectors = append(detectors, NewDetector(d.kind, d.fn))
		}
	}
	return detectors
}

func (s detectorSet) mixedAlphanumeric(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	toks := s.lib.MixedAlphanumericTokens(doc.RawText)
	threshold := s.cfg.MixedAlphanumericThreshold
	if len(toks) <= threshold {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalMixedAlphanumeric,
		Severity:    math.Min(0.9, 0.4*float64(len(toks))/float64(threshold+1)),
		Evidence:    fmt.Sprintf("%d letter/digit interleaved tokens (threshold %d): %s", len(toks), threshold, sample(toks)),
		SourceField: "raw_text",
	}}, nil
}

func (s detectorSet) fontInconsistency(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	if doc.FontInconsistencyReported == nil || !*doc.FontInconsistencyReported {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalFontInconsistency,
		Severity:    0.6,
		Evidence:    "extraction reported inconsistent fonts within the document",
		SourceField: "font_inconsistency_reported",
	}}, nil
}

func (s detectorSet) excessiveWhitespace(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	runs := s.lib.WhitespaceRuns(doc.RawText)
	threshold := s.cfg.WhitespaceRunThreshold
	if runs <= threshold {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalExcessiveSpace,
		Severity:    math.Min(0.7, 0.3+0.05*float64(runs-threshold-1)),
		Evidence:    fmt.Sprintf("%d runs of 3+ whitespace characters (threshold %d)", runs, threshold),
		SourceField: "raw_text",
	}}, nil
}

func (s detectorSet) ocrArtifacts(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	toks := s.lib.ArtifactTokens(doc.RawText)
	if len(toks) == 0 {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalOCRArtifacts,
		Severity:    math.Min(0.6, 0.2+0.1*float64(len(toks)-1)),
		Evidence:    fmt.Sprintf("%d OCR corruption token(s): %s", len(toks), sample(toks)),
		SourceField: "raw_text",
	}}, nil
}

func (s detectorSet) suspiciousUnicode(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	chars := s.lib.SuspiciousRunes(doc.RawText)
	if len(chars) == 0 {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalSuspiciousUnicode,
		Severity:    math.Min(0.5, 0.25+0.05*float64(len(chars)-1)),
		Evidence:    fmt.Sprintf("%d unexpected character(s) outside Latin text: %s", len(chars), sample(chars)),
		SourceField: "raw_text",
	}}, nil
}

func (s detectorSet) employerLegitimacy(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	name := strings.TrimSpace(doc.Employer.Name)
	if name == "" {
		return []dto.FraudSignal{{
			Kind:        dto.SignalEmployerLegitimacy,
			Severity:    0.6,
			Evidence:    "employer name missing",
			SourceField: "employer.name",
		}}, nil
	}

	check := s.lib.CheckEmployer(name)
	failures := check.Failures()
	if failures == 0 {
		return nil, nil
	}
	var failed []string
	if !check.HasLegalSuffix {
		failed = append(failed, "no legal-entity suffix")
	}
	if !check.MultiWord {
		failed = append(failed, "single generic word")
	}
	if len(check.Blacklisted) > 0 {
		failed = append(failed, "blacklisted term "+strings.Join(check.Blacklisted, "/"))
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalEmployerLegitimacy,
		Severity:    0.9 * float64(failures) / 3,
		Evidence:    fmt.Sprintf("employer %q: %s", name, strings.Join(failed, "; ")),
		SourceField: "employer.name",
	}}, nil
}

var niSeverity = map[patterns.NIStatus]float64{
	patterns.NIBadFormat:        0.6,
	patterns.NIDisallowedPrefix: 0.5,
	patterns.NIKnownFake:        0.9,
}

func (s detectorSet) niNumberFormat(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	if strings.TrimSpace(doc.Employee.NINumber) == "" {
		return nil, nil
	}
	check := s.lib.CheckNINumber(doc.Employee.NINumber)
	if check.Status == patterns.NIValid {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalNINumberFormat,
		Severity:    niSeverity[check.Status],
		Evidence:    fmt.Sprintf("NI number %q: %s (%s)", doc.Employee.NINumber, check.Status, check.Detail),
		SourceField: "employee.ni_number",
	}}, nil
}

func (s detectorSet) amountUnparseable(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	var signals []dto.FraudSignal
	for i, item := range doc.IncomeItems {
		if item.AmountMinorUnits != nil {
			continue
		}
		evidence := "amount missing"
		if item.ParseError != "" {
			evidence = item.ParseError
		}
		signals = append(signals, dto.FraudSignal{
			Kind:        dto.SignalAmountUnparseable,
			Severity:    0.3,
			Evidence:    fmt.Sprintf("%s item: %s", item.Category, evidence),
			SourceField: fmt.Sprintf("income[%d].amount", i),
		})
	}
	if doc.DeclaredTotalError != "" {
		signals = append(signals, dto.FraudSignal{
			Kind:        dto.SignalAmountUnparseable,
			Severity:    0.3,
			Evidence:    "declared total: " + doc.DeclaredTotalError,
			SourceField: "total_gross_pay",
		})
	}
	return signals, nil
}

func (s detectorSet) amountPlausibility(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	var signals []dto.FraudSignal
	for _, f := range s.math.PlausibilityFlags(doc) {
		sig := dto.FraudSignal{Kind: dto.SignalAmountPlausibility, SourceField: f.Field}
		if f.Negative {
			sig.Severity = 0.7
			sig.Evidence = fmt.Sprintf("negative amount %s", utils.FormatAmount(f.MinorUnits))
		} else {
			sig.Severity = 0.8
			sig.Evidence = fmt.Sprintf("amount %s exceeds plausible ceiling %s",
				utils.FormatAmount(f.MinorUnits), utils.FormatAmount(s.math.CeilingPence))
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func (s detectorSet) roundAmount(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	var signals []dto.FraudSignal
	for _, f := range s.math.RoundAmounts(doc) {
		signals = append(signals, dto.FraudSignal{
			Kind:     dto.SignalRoundAmount,
			Severity: 0.1,
			Evidence: fmt.Sprintf("amount %s is an exact multiple of %s",
				utils.FormatAmount(f.MinorUnits), utils.FormatAmount(s.math.RoundStepPence)),
			SourceField: f.Field,
		})
	}
	return signals, nil
}

func (s detectorSet) totalMismatch(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	if doc.DeclaredTotalMinorUnits == nil {
		return nil, nil
	}
	res := s.math.CheckDocument(doc)
	if !errors.Is(res.Err, dto.ErrTotalMismatch) {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalTotalMismatch,
		Severity:    0.7,
		Evidence:    res.Err.Error(),
		SourceField: "total_gross_pay",
	}}, nil
}

func (s detectorSet) dateAnomaly(doc dto.ExtractedDocument, today dto.Date) ([]dto.FraudSignal, error) {
	var signals []dto.FraudSignal
	for _, issue := range s.dates.CheckOrder(doc, today) {
		severity := 0.7
		if errors.Is(issue.Err, dto.ErrFutureDate) {
			severity = 0.8
		}
		signals = append(signals, dto.FraudSignal{
			Kind:        dto.SignalDateAnomaly,
			Severity:    severity,
			Evidence:    issue.Err.Error(),
			SourceField: issue.Field,
		})
	}
	return signals, nil
}

func (s detectorSet) paidBeforeEnd(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	issue := s.dates.CheckPayTiming(doc)
	if issue == nil {
		return nil, nil
	}
	return []dto.FraudSignal{{
		Kind:        dto.SignalPaidBeforeEnd,
		Severity:    0.15,
		Evidence:    issue.Err.Error(),
		SourceField: issue.Field,
	}}, nil
}

func (s detectorSet) ocrQualityLow(doc dto.ExtractedDocument, _ dto.Date) ([]dto.FraudSignal, error) {
	threshold := s.cfg.OCRQualityThreshold
	if doc.OCRQuality == nil || threshold <= 0 || *doc.OCRQuality >= threshold {
		return nil, nil
	}
	q := *doc.OCRQuality
	return []dto.FraudSignal{{
		Kind:        dto.SignalOCRQualityLow,
		Severity:    0.1 + 0.4*(threshold-q)/threshold,
		Evidence:    fmt.Sprintf("OCR quality %.2f below threshold %.2f", q, threshold),
		SourceField: "ocr_quality",
	}}, nil
}

func sample(toks []string) string {
	if len(toks) > maxEvidenceTokens {
		return strings.Join(toks[:maxEvidenceTokens], ", ") + ", ..."
	}
	return strings.Join(toks, ", ")
}
