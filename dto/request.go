package dto

// IncomeItemInput is one income line as emitted by the extraction layer.
type IncomeItemInput struct {
	Type        string     `json:"type" validate:"required,oneof=salary basic basic_pay bonus commission benefit benefits overtime other"`
	Amount      AmountText `json:"amount"`
	Description string     `json:"description,omitempty"`
	Confidence  *float64   `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

type PayPeriodInput struct {
	StartDate *Date  `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
	PayDate   *Date  `json:"pay_date"`
	Frequency string `json:"frequency" validate:"omitempty,oneof=weekly fortnightly four_weekly monthly annual"`
}

// DocumentInput is the wire form of an extracted document.
type DocumentInput struct {
	DocumentType              string            `json:"document_type" validate:"required,oneof=payslip bank_statement other"`
	Employee                  Employee          `json:"employee"`
	Employer                  Employer          `json:"employer"`
	Income                    []IncomeItemInput `json:"income" validate:"dive"`
	TotalGrossPay             AmountText        `json:"total_gross_pay"`
	PayPeriod                 PayPeriodInput    `json:"pay_period"`
	HasAccountantSignature    *bool             `json:"has_accountant_signature"`
	FontInconsistencyReported *bool             `json:"font_inconsistency_reported"`
	RawText                   string            `json:"raw_text"`
	OCRQuality                *float64          `json:"ocr_quality" validate:"omitempty,gte=0,lte=1"`
}

// VerifyBatchRequest carries every document submitted for one claimant.
type VerifyBatchRequest struct {
	ClaimantID string          `json:"claimant_id" validate:"omitempty,max=128"`
	Documents  []DocumentInput `json:"documents" validate:"required,min=1,dive"`
}

// Validate performs the request-level checks that do not need struct tags.
func (r *VerifyBatchRequest) Validate(maxDocuments int) error {
	if len(r.Documents) == 0 {
		return ErrEmptyBatch
	}
	if maxDocuments > 0 && len(r.Documents) > maxDocuments {
		return ErrTooManyDocuments
	}
	return nil
}
