package dto

import (
	"encoding/json"
	"errors"
)

// Custom errors
var (
	ErrEmptyBatch           = errors.New("at least one document is required")
	ErrTooManyDocuments     = errors.New("too many documents in batch")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrBatchTooLarge        = errors.New("batch too large for template analysis")
	ErrStaleDocument        = errors.New("document is stale")
	ErrFutureDate           = errors.New("date is in the future")
	ErrPeriodInverted       = errors.New("period start is after period end")
	ErrTotalMismatch        = errors.New("declared total does not match itemised income")
	ErrUnparsedAmount       = errors.New("amount could not be parsed")
	ErrSignatureMissing     = errors.New("qualified accountant signature missing")
	ErrNotConsecutive       = errors.New("insufficient consecutive pay periods")
	ErrPaidBeforePeriodEnd  = errors.New("pay date is before period end")
)

type FraudSignalKind string

// Per-document detector kinds, in output order.
const (
	SignalMixedAlphanumeric  FraudSignalKind = "mixed_alphanumeric_pattern"
	SignalFontInconsistency  FraudSignalKind = "font_inconsistency"
	SignalExcessiveSpace     FraudSignalKind = "excessive_whitespace"
	SignalOCRArtifacts       FraudSignalKind = "ocr_artifact_tokens"
	SignalEmployerLegitimacy FraudSignalKind = "employer_legitimacy"
	SignalNINumberFormat     FraudSignalKind = "ni_number_format"
	SignalAmountUnparseable  FraudSignalKind = "amount_unparseable"
	SignalAmountPlausibility FraudSignalKind = "amount_plausibility"
	SignalTotalMismatch      FraudSignalKind = "total_mismatch"
	SignalDateAnomaly        FraudSignalKind = "date_anomaly"
	SignalOCRQualityLow      FraudSignalKind = "ocr_quality_low"
	SignalSuspiciousUnicode  FraudSignalKind = "suspicious_unicode_characters"
	SignalRoundAmount        FraudSignalKind = "suspicious_round_amount"
	SignalPaidBeforeEnd      FraudSignalKind = "pay_date_before_period_end"
)

// Batch-level kinds, appended after the per-document signals.
const (
	SignalTemplateReuse     FraudSignalKind = "template_reuse"
	SignalDuplicateDocument FraudSignalKind = "duplicate_document"
	SignalIncomeOutlier     FraudSignalKind = "income_outlier"
	SignalIdentityMismatch  FraudSignalKind = "identity_mismatch"
	SignalDetectorError     FraudSignalKind = "detector_error"
)

type FraudSignal struct {
	Kind        FraudSignalKind `json:"kind"`
	Severity    float64         `json:"severity"`
	Evidence    string          `json:"evidence"`
	SourceField string          `json:"source_field,omitempty"`
}

type VerificationResult struct {
	RecencyPass          bool     `json:"recency_pass"`
	ConsecutivePass      bool     `json:"consecutive_pass"`
	SignaturePass        bool     `json:"signature_pass"`
	TotalConsistencyPass bool     `json:"total_consistency_pass"`
	DateLogicPass        bool     `json:"date_logic_pass"`
	Reasons              []string `json:"reasons"`
}

// Passed reports whether the document verified with no failure reasons.
func (r VerificationResult) Passed() bool {
	return len(r.Reasons) == 0
}

type DocumentPair struct {
	First      int     `json:"first"`
	Second     int     `json:"second"`
	Similarity float64 `json:"similarity"`
}

type SequenceGap struct {
	AfterIndex     int `json:"after_index"`
	BeforeIndex    int `json:"before_index"`
	MissingPeriods int `json:"missing_periods"`
}

type BatchReport struct {
	TemplateReusePairs       []DocumentPair `json:"template_reuse_pairs"`
	DuplicatePairs           []DocumentPair `json:"duplicate_pairs"`
	TemplateReuseSkipped     string         `json:"template_reuse_skipped,omitempty"`
	TokenOverlapPairs        int            `json:"token_overlap_pairs"`
	IncomeOutliers           []int          `json:"income_outliers"`
	OutlierCategory          IncomeCategory `json:"outlier_category"`
	IncomeMedianMinorUnits   int64          `json:"-"`
	ConsecutiveSequenceValid bool           `json:"consecutive_sequence_valid"`
	SequenceGaps             []SequenceGap  `json:"sequence_gaps"`
	UndatedDocuments         []int          `json:"undated_documents"`
	IdentityMismatches       []int          `json:"identity_mismatches"`
}

type IncomeOutput struct {
	Type        IncomeCategory `json:"type"`
	Description string         `json:"description,omitempty"`
	AmountGBP   *json.Number   `json:"amount_gbp"`
	Confidence  *float64       `json:"confidence"`
}

type PeriodOutput struct {
	StartDate *Date        `json:"start_date"`
	EndDate   *Date        `json:"end_date"`
	PayDate   *Date        `json:"pay_date"`
	Frequency PayFrequency `json:"frequency"`
}

// DocumentReport is the serialised verdict for one submitted document.
type DocumentReport struct {
	Index             int                `json:"index"`
	DocumentType      DocumentType       `json:"document_type"`
	Employee          Employee           `json:"employee"`
	Employer          Employer           `json:"employer"`
	Period            PeriodOutput       `json:"pay_period"`
	Income            []IncomeOutput     `json:"income"`
	TotalGrossPayGBP  *json.Number       `json:"total_gross_pay_gbp"`
	Verifications     VerificationResult `json:"verifications"`
	FraudSignals      []FraudSignal      `json:"fraud_signals"`
	OverallConfidence float64            `json:"overall_confidence"`
	HighFraudRisk     bool               `json:"high_fraud_risk"`
}

type ReportSummary struct {
	Documents         int                  `json:"documents"`
	ByType            map[DocumentType]int `json:"by_type"`
	FullyVerified     int                  `json:"fully_verified"`
	HighRiskDocuments int                  `json:"high_risk_documents"`
	TotalFraudSignals int                  `json:"total_fraud_signals"`
}

// VerificationReport is the top-level output for one processed batch.
type VerificationReport struct {
	ReportID          string           `json:"report_id"`
	ClaimantID        string           `json:"claimant_id,omitempty"`
	ProcessedAt       string           `json:"processed_at"`
	Documents         []DocumentReport `json:"documents"`
	Batch             BatchReport      `json:"batch"`
	OverallConfidence float64          `json:"overall_confidence"`
	Summary           ReportSummary    `json:"summary"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Fields  interface{} `json:"fields,omitempty"`
}
