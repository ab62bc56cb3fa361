package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Severity classifies how serious a validation issue is
type Severity string

const (
	// SeverityInfo records something noteworthy that is not a fault,
	// such as an automatic inclusivity correction kept for audit
	SeverityInfo Severity = "INFO"
	// SeverityWarning flags a suspicious value that a reviewer should look at
	SeverityWarning Severity = "WARNING"
	// SeverityError flags an unrecoverable defect in the extracted data
	SeverityError Severity = "ERROR"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityError
}

// DocumentStatus is the terminal validation status of one invoice document
type DocumentStatus string

const (
	StatusApproved    DocumentStatus = "APPROVED"
	StatusNeedsReview DocumentStatus = "NEEDS_REVIEW"
	StatusRejected    DocumentStatus = "REJECTED"
)

// String returns the string representation of DocumentStatus
func (ds DocumentStatus) String() string {
	return string(ds)
}

// IsValid checks if the document status is valid
func (ds DocumentStatus) IsValid() bool {
	return ds == StatusApproved || ds == StatusNeedsReview || ds == StatusRejected
}

// RawLineItem is one OCR-extracted invoice row, exactly as the upstream
// extractor produced it. Instances are never mutated by the engine.
type RawLineItem struct {
	LineNumber    int     `json:"line_number" csv:"line_number"`
	ItemCode      string  `json:"item_code" csv:"item_code"`
	Description   string  `json:"description" csv:"description"`
	GrossText     string  `json:"gross_text" csv:"gross_text"`
	BaseText      string  `json:"base_text" csv:"base_text"`
	TaxText       string  `json:"tax_text" csv:"tax_text"`
	InvoiceDate   string  `json:"invoice_date,omitempty" csv:"invoice_date"`
	RowConfidence float64 `json:"row_confidence" csv:"row_confidence"`
}

// Validate performs basic validation on the RawLineItem
func (r *RawLineItem) Validate() error {
	if r.LineNumber < 1 {
		return fmt.Errorf("line number must be positive, got %d", r.LineNumber)
	}

	if r.RowConfidence < 0.0 || r.RowConfidence > 1.0 {
		return fmt.Errorf("row confidence must be between 0.0 and 1.0, got %f", r.RowConfidence)
	}

	return nil
}

// String returns a string representation of the RawLineItem
func (r *RawLineItem) String() string {
	return fmt.Sprintf("RawLineItem{Line: %d, Code: %s, Gross: %q, Base: %q, Tax: %q}",
		r.LineNumber, r.ItemCode, r.GrossText, r.BaseText, r.TaxText)
}

// NormalizedAmount is the result of parsing a raw OCR numeric string.
// Invariant: Confidence < 1.0 implies at least one warning explaining why.
type NormalizedAmount struct {
	Value              decimal.Decimal `json:"value"`
	ThousandsSeparator string          `json:"thousands_separator,omitempty"`
	DecimalSeparator   string          `json:"decimal_separator,omitempty"`
	Confidence         float64         `json:"confidence"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// Validate checks the NormalizedAmount invariants
func (na *NormalizedAmount) Validate() error {
	if na.Confidence < 0.0 || na.Confidence > 1.0 {
		return fmt.Errorf("format confidence must be between 0.0 and 1.0, got %f", na.Confidence)
	}

	if na.Confidence < 1.0 && len(na.Warnings) == 0 {
		return fmt.Errorf("confidence below 1.0 requires at least one warning")
	}

	return nil
}

// String returns a string representation of the NormalizedAmount
func (na *NormalizedAmount) String() string {
	return fmt.Sprintf("NormalizedAmount{Value: %s, Confidence: %.2f, Warnings: %d}",
		na.Value.String(), na.Confidence, len(na.Warnings))
}

// VatInclusivityResult is the per-line verdict on whether declared base and
// tax were computed from a tax-inclusive gross amount. RecomputedBase and
// RecomputedTax are set only when IsInclusive is true.
type VatInclusivityResult struct {
	IsInclusive    bool             `json:"is_inclusive"`
	Reason         string           `json:"reason"`
	RecomputedBase *decimal.Decimal `json:"recomputed_base,omitempty"`
	RecomputedTax  *decimal.Decimal `json:"recomputed_tax,omitempty"`
	Confidence     float64          `json:"confidence"`
}

// Validate checks the VatInclusivityResult invariants against the gross
// amount and tax rate it was derived from
func (vr *VatInclusivityResult) Validate(gross, taxRate, tolerance decimal.Decimal) error {
	if vr.Confidence < 0.0 || vr.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", vr.Confidence)
	}

	if vr.Reason == "" {
		return fmt.Errorf("reason must always be set")
	}

	if !vr.IsInclusive {
		if vr.RecomputedBase != nil || vr.RecomputedTax != nil {
			return fmt.Errorf("recomputed amounts must be absent when not inclusive")
		}
		return nil
	}

	if vr.RecomputedBase == nil || vr.RecomputedTax == nil {
		return fmt.Errorf("recomputed amounts must be present when inclusive")
	}

	reconstructed := vr.RecomputedBase.Mul(decimal.NewFromInt(1).Add(taxRate))
	if reconstructed.Sub(gross).Abs().GreaterThan(tolerance) {
		return fmt.Errorf("recomputed base %s does not reconstruct gross %s within tolerance %s",
			vr.RecomputedBase.String(), gross.String(), tolerance.String())
	}

	return nil
}

// FieldCheck is the outcome of a single independent field validation
type FieldCheck struct {
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Multiplier float64  `json:"multiplier"`
}

// ToIssue converts a FieldCheck into a line Issue
func (fc FieldCheck) ToIssue() Issue {
	return Issue{
		Field:      fc.Field,
		Severity:   fc.Severity,
		Message:    fc.Message,
		Multiplier: fc.Multiplier,
		Correction: false,
	}
}

// Issue is one recorded finding on a line. Correction marks issues that
// document an automatic fix (audit trail) rather than a data fault.
type Issue struct {
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Multiplier float64  `json:"multiplier"`
	Correction bool     `json:"correction"`
}

// IsBlocking reports whether the issue should reject the whole document:
// an Error that is not an automatic correction record.
func (i Issue) IsBlocking() bool {
	return i.Severity == SeverityError && !i.Correction
}

// AmountField is one resolved monetary field on a validated line. Resolved
// and Recomputed are set explicitly in every code path so no consumer ever
// sees an ambiguous unset state.
type AmountField struct {
	Value      decimal.Decimal `json:"value"`
	Resolved   bool            `json:"resolved"`
	Recomputed bool            `json:"recomputed"`
}

// ResolvedAmounts groups the three monetary fields of a line
type ResolvedAmounts struct {
	Gross AmountField `json:"gross"`
	Base  AmountField `json:"base"`
	Tax   AmountField `json:"tax"`
}

// LineValidation is the aggregate per-line outcome
type LineValidation struct {
	LineNumber int             `json:"line_number"`
	Amounts    ResolvedAmounts `json:"amounts"`
	Issues     []Issue         `json:"issues"`
	Confidence float64         `json:"confidence"`
}

// AddIssue appends an issue to the line
func (lv *LineValidation) AddIssue(issue Issue) {
	lv.Issues = append(lv.Issues, issue)
}

// HasBlockingError reports whether any issue on the line rejects the document
func (lv *LineValidation) HasBlockingError() bool {
	for _, issue := range lv.Issues {
		if issue.IsBlocking() {
			return true
		}
	}
	return false
}

// HasWarning reports whether any Warning-severity issue is present
func (lv *LineValidation) HasWarning() bool {
	for _, issue := range lv.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// String returns a string representation of the LineValidation
func (lv *LineValidation) String() string {
	return fmt.Sprintf("LineValidation{Line: %d, Confidence: %.3f, Issues: %d}",
		lv.LineNumber, lv.Confidence, len(lv.Issues))
}

// HeaderTotals holds the invoice-level declared totals that line sums are
// reconciled against. InvoiceDate carries the header-level date text when
// the extractor found one.
type HeaderTotals struct {
	Gross       decimal.Decimal `json:"gross"`
	Base        decimal.Decimal `json:"base"`
	Tax         decimal.Decimal `json:"tax"`
	InvoiceDate string          `json:"invoice_date,omitempty"`
}

// Validate performs basic validation on the HeaderTotals
func (ht *HeaderTotals) Validate() error {
	if ht.Gross.IsNegative() {
		return fmt.Errorf("header gross total cannot be negative: %s", ht.Gross.String())
	}

	if ht.Base.IsNegative() {
		return fmt.Errorf("header tax base total cannot be negative: %s", ht.Base.String())
	}

	if ht.Tax.IsNegative() {
		return fmt.Errorf("header tax total cannot be negative: %s", ht.Tax.String())
	}

	return nil
}

// String returns a string representation of the HeaderTotals
func (ht *HeaderTotals) String() string {
	return fmt.Sprintf("HeaderTotals{Gross: %s, Base: %s, Tax: %s}",
		ht.Gross.String(), ht.Base.String(), ht.Tax.String())
}

// FieldReconciliation records the reconciliation outcome for one monetary
// field across the document. Every field is populated in every branch;
// a bare boolean is never reported without its supporting magnitudes.
type FieldReconciliation struct {
	Field               string          `json:"field"`
	HeaderValue         decimal.Decimal `json:"header_value"`
	LineSum             decimal.Decimal `json:"line_sum"`
	AbsoluteDiff        decimal.Decimal `json:"absolute_diff"`
	PercentDiff         float64         `json:"percent_diff"`
	Tolerance           decimal.Decimal `json:"tolerance"`
	RecomputedTolerance bool            `json:"recomputed_tolerance"`
	WithinTolerance     bool            `json:"within_tolerance"`
	Closeness           float64         `json:"closeness"`
}

// ReconciliationReport is the per-field record of line-sum versus header
// reconciliation for one document
type ReconciliationReport struct {
	Gross            FieldReconciliation `json:"gross"`
	Base             FieldReconciliation `json:"base"`
	Tax              FieldReconciliation `json:"tax"`
	SuggestedActions []string            `json:"suggested_actions,omitempty"`
}

// Fields returns the three field reconciliations for iteration
func (rr *ReconciliationReport) Fields() []FieldReconciliation {
	return []FieldReconciliation{rr.Gross, rr.Base, rr.Tax}
}

// AllWithinTolerance reports whether every field reconciled successfully
func (rr *ReconciliationReport) AllWithinTolerance() bool {
	for _, field := range rr.Fields() {
		if !field.WithinTolerance {
			return false
		}
	}
	return true
}

// DocumentVerdict is the terminal artifact of one validation run. It is
// constructed once per run and never mutated afterwards.
type DocumentVerdict struct {
	RunID               uuid.UUID             `json:"run_id"`
	Status              DocumentStatus        `json:"status"`
	AggregateConfidence float64               `json:"aggregate_confidence"`
	Lines               []*LineValidation     `json:"lines"`
	Reconciliation      *ReconciliationReport `json:"reconciliation"`
	SuggestedActions    []string              `json:"suggested_actions,omitempty"`
	ProcessedAt         time.Time             `json:"processed_at"`
}

// String returns a string representation of the DocumentVerdict
func (dv *DocumentVerdict) String() string {
	return fmt.Sprintf("DocumentVerdict{Status: %s, Confidence: %.3f, Lines: %d}",
		dv.Status, dv.AggregateConfidence, len(dv.Lines))
}

// Utility functions

// invoiceDateLayouts is the fixed priority order for invoice date parsing:
// day-month-year first (the dominant layout on Indonesian tax invoices),
// then year-month-day, each with '-' and '/' separators.
var invoiceDateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseInvoiceDate attempts to parse an invoice date from raw text using the
// fixed layout priority order. The first layout that yields a valid calendar
// date wins.
func ParseInvoiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// ClampConfidence clamps a confidence value to the [0, 1] interval
func ClampConfidence(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// CompareAmountsWithTolerance compares two decimal amounts with an absolute tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}
