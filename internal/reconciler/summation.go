package reconciler

import (
	"fmt"

	"invoice-validation-service/internal/models"

	"github.com/shopspring/decimal"
)

// SummationReconciler compares per-field line sums against header totals
type SummationReconciler struct {
	config *Config
}

// NewSummationReconciler creates a reconciler with the specified configuration
func NewSummationReconciler(config *Config) (*SummationReconciler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SummationReconciler{config: config}, nil
}

// fieldAccessor extracts one monetary field from a validated line
type fieldAccessor struct {
	name string
	get  func(*models.LineValidation) models.AmountField
}

var reconciledFields = []fieldAccessor{
	{"gross", func(lv *models.LineValidation) models.AmountField { return lv.Amounts.Gross }},
	{"base", func(lv *models.LineValidation) models.AmountField { return lv.Amounts.Base }},
	{"tax", func(lv *models.LineValidation) models.AmountField { return lv.Amounts.Tax }},
}

// ReconcileTotals sums the resolved line values per field and compares each
// sum against the header-declared total. Unresolved line fields are excluded
// from the sum; they already carry an Error issue from line validation.
func (sr *SummationReconciler) ReconcileTotals(lines []*models.LineValidation, header *models.HeaderTotals) *models.ReconciliationReport {
	report := &models.ReconciliationReport{}

	headerValues := map[string]decimal.Decimal{
		"gross": header.Gross,
		"base":  header.Base,
		"tax":   header.Tax,
	}

	for _, field := range reconciledFields {
		reconciliation := sr.reconcileField(lines, field, headerValues[field.name])

		switch field.name {
		case "gross":
			report.Gross = reconciliation
		case "base":
			report.Base = reconciliation
		case "tax":
			report.Tax = reconciliation
		}

		if !reconciliation.WithinTolerance {
			report.SuggestedActions = append(report.SuggestedActions,
				sr.suggestAction(lines, field, reconciliation))
		}
	}

	return report
}

// reconcileField builds the full reconciliation record for one field. Every
// struct member is set in every branch; the boolean outcome never travels
// without its supporting magnitudes.
func (sr *SummationReconciler) reconcileField(lines []*models.LineValidation, field fieldAccessor, headerValue decimal.Decimal) models.FieldReconciliation {
	sum := decimal.Zero
	recomputed := false
	for _, line := range lines {
		amount := field.get(line)
		if !amount.Resolved {
			continue
		}
		sum = sum.Add(amount.Value)
		if amount.Recomputed {
			recomputed = true
		}
	}

	tolerance := sr.extractedTolerance(headerValue)
	if recomputed {
		tolerance = sr.recomputedTolerance(headerValue, len(lines))
	}

	diff := headerValue.Sub(sum).Abs()
	percentDiff := 0.0
	if !headerValue.IsZero() {
		percentDiff, _ = diff.Div(headerValue).Float64()
	}

	return models.FieldReconciliation{
		Field:               field.name,
		HeaderValue:         headerValue,
		LineSum:             sum,
		AbsoluteDiff:        diff,
		PercentDiff:         percentDiff,
		Tolerance:           tolerance,
		RecomputedTolerance: recomputed,
		WithinTolerance:     diff.LessThanOrEqual(tolerance),
		Closeness:           sr.closeness(diff, tolerance),
	}
}

// extractedTolerance is the larger of the absolute floor and the configured
// percentage of the header total
func (sr *SummationReconciler) extractedTolerance(headerValue decimal.Decimal) decimal.Decimal {
	percent := headerValue.Mul(sr.config.ExtractedPercentTolerance)
	if percent.GreaterThan(sr.config.ExtractedAbsoluteTolerance) {
		return percent
	}
	return sr.config.ExtractedAbsoluteTolerance
}

// recomputedTolerance widens with line count because every corrected line
// rounds independently. Floored at the extracted tolerance so adding a
// correction never tightens the check.
func (sr *SummationReconciler) recomputedTolerance(headerValue decimal.Decimal, lineCount int) decimal.Decimal {
	tolerance := sr.config.RecomputedUnitTolerance.
		Mul(decimal.NewFromInt(sr.config.RecomputedMultiplier)).
		Mul(decimal.NewFromInt(int64(lineCount)))

	extracted := sr.extractedTolerance(headerValue)
	if tolerance.LessThan(extracted) {
		return extracted
	}
	return tolerance
}

// closeness scores how well a field reconciled: 1.0 at exact match, the
// configured floor at the tolerance edge, decaying proportionally beyond it
func (sr *SummationReconciler) closeness(diff, tolerance decimal.Decimal) float64 {
	if diff.IsZero() {
		return 1.0
	}
	if tolerance.IsZero() {
		return 0.0
	}

	ratio, _ := diff.Div(tolerance).Float64()
	if ratio <= 1.0 {
		return models.ClampConfidence(1.0 - (1.0-sr.config.MinCloseness)*ratio)
	}
	return models.ClampConfidence(sr.config.MinCloseness / ratio)
}

// suggestAction names the line contributing the largest deviation for an
// out-of-tolerance field, so a reviewer knows where to look first
func (sr *SummationReconciler) suggestAction(lines []*models.LineValidation, field fieldAccessor, reconciliation models.FieldReconciliation) string {
	worstLine := 0
	worstDeviation := decimal.Zero

	// The expected per-line share is the header total spread evenly; the
	// line furthest from its share contributes most of the gap.
	if len(lines) > 0 {
		share := reconciliation.HeaderValue.Div(decimal.NewFromInt(int64(len(lines))))
		for _, line := range lines {
			amount := field.get(line)
			if !amount.Resolved {
				// An unresolved field is the most likely culprit of all
				worstLine = line.LineNumber
				worstDeviation = reconciliation.AbsoluteDiff
				break
			}
			deviation := amount.Value.Sub(share).Abs()
			if deviation.GreaterThan(worstDeviation) {
				worstDeviation = deviation
				worstLine = line.LineNumber
			}
		}
	}

	fieldLabel := map[string]string{
		"gross": "gross amount",
		"base":  "DPP column",
		"tax":   "PPN column",
	}[field.name]

	if worstLine > 0 {
		return fmt.Sprintf("re-check %s for line %d: %s sum %s differs from header %s by %s (tolerance %s)",
			fieldLabel, worstLine, field.name, reconciliation.LineSum.String(),
			reconciliation.HeaderValue.String(), reconciliation.AbsoluteDiff.String(),
			reconciliation.Tolerance.String())
	}

	return fmt.Sprintf("re-check %s: sum %s differs from header %s by %s (tolerance %s)",
		fieldLabel, reconciliation.LineSum.String(), reconciliation.HeaderValue.String(),
		reconciliation.AbsoluteDiff.String(), reconciliation.Tolerance.String())
}
