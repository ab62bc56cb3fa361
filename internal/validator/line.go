package validator

import (
	"fmt"
	"time"

	"invoice-validation-service/internal/detector"
	"invoice-validation-service/internal/models"
	"invoice-validation-service/internal/normalizer"
	"invoice-validation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// LineValidator validates a single extracted invoice line: it normalizes the
// three monetary fields, runs inclusivity detection over them, applies the
// field checks, and folds everything into one confidence score.
type LineValidator struct {
	config     *Config
	normalizer *normalizer.Normalizer
	detector   *detector.Detector
	fields     *FieldValidator
	logger     logger.Logger
	now        func() time.Time
}

// NewLineValidator creates a line validator with the specified configuration
func NewLineValidator(config *Config) (*LineValidator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d, err := detector.NewDetector(config.Detector)
	if err != nil {
		return nil, err
	}

	fields, err := NewFieldValidator(config)
	if err != nil {
		return nil, err
	}

	return &LineValidator{
		config:     config,
		normalizer: normalizer.NewNormalizer(config.Normalizer),
		detector:   d,
		fields:     fields,
		logger:     logger.GetGlobalLogger().WithComponent("line_validator"),
		now:        time.Now,
	}, nil
}

// WithClock replaces the processing-time source, for tests
func (lv *LineValidator) WithClock(now func() time.Time) *LineValidator {
	lv.now = now
	return lv
}

// ValidateLine produces the per-line validation record for one raw line.
// The input is never mutated. A field that fails normalization draws an
// Error issue and is excluded from dependent steps rather than guessed at.
func (lv *LineValidator) ValidateLine(raw *models.RawLineItem) *models.LineValidation {
	result := &models.LineValidation{LineNumber: raw.LineNumber}
	confidence := raw.RowConfidence

	gross, ok := lv.resolveAmount(result, "gross", raw.GrossText, &confidence)
	base, okBase := lv.resolveAmount(result, "base", raw.BaseText, &confidence)
	tax, okTax := lv.resolveAmount(result, "tax", raw.TaxText, &confidence)
	ok = ok && okBase && okTax

	// Inclusivity detection needs all three amounts. Recomputed is set
	// explicitly in every path so downstream tolerance selection never sees
	// an ambiguous state.
	result.Amounts.Gross.Recomputed = false
	result.Amounts.Base.Recomputed = false
	result.Amounts.Tax.Recomputed = false

	if ok {
		inclusivity := lv.detector.Detect(gross, base, tax, lv.config.TaxRate)
		confidence *= inclusivity.Confidence

		if inclusivity.IsInclusive {
			result.Amounts.Base.Value = *inclusivity.RecomputedBase
			result.Amounts.Base.Recomputed = true
			result.Amounts.Tax.Value = *inclusivity.RecomputedTax
			result.Amounts.Tax.Recomputed = true

			result.AddIssue(models.Issue{
				Field:      "base",
				Severity:   models.SeverityInfo,
				Message:    fmt.Sprintf("VAT-inclusive amounts corrected: %s", inclusivity.Reason),
				Multiplier: inclusivity.Confidence,
				Correction: true,
			})
		} else if inclusivity.Confidence <= 0.5 {
			result.AddIssue(models.Issue{
				Field:      "gross",
				Severity:   models.SeverityWarning,
				Message:    inclusivity.Reason,
				Multiplier: inclusivity.Confidence,
				Correction: false,
			})
		}
	}

	lv.applyCheck(result, lv.fields.ValidateItemCode(raw.ItemCode), &confidence)

	// Date is usually header-level; a line-level value overrides it
	if raw.InvoiceDate != "" {
		lv.applyCheck(result, lv.fields.ValidateInvoiceDate(raw.InvoiceDate, lv.now()), &confidence)
	}

	result.Confidence = models.ClampConfidence(confidence)

	lv.logger.WithFields(logger.Fields{
		"line":       raw.LineNumber,
		"confidence": result.Confidence,
		"issues":     len(result.Issues),
	}).Debug("Line validated")

	return result
}

// resolveAmount normalizes one monetary field into the result, recording an
// Error issue on failure. Returns the value and whether it resolved.
func (lv *LineValidator) resolveAmount(result *models.LineValidation, field, raw string, confidence *float64) (decimal.Decimal, bool) {
	target := lv.amountField(result, field)

	normalized, err := lv.normalizer.Normalize(raw)
	if err != nil {
		target.Resolved = false
		result.AddIssue(models.Issue{
			Field:      field,
			Severity:   models.SeverityError,
			Message:    fmt.Sprintf("cannot normalize %s amount %q: %v", field, raw, err),
			Multiplier: 0.0,
			Correction: false,
		})
		*confidence = 0.0
		return decimal.Zero, false
	}

	target.Value = normalized.Value
	target.Resolved = true
	*confidence *= normalized.Confidence

	for _, warning := range normalized.Warnings {
		result.AddIssue(models.Issue{
			Field:      field,
			Severity:   models.SeverityInfo,
			Message:    warning,
			Multiplier: normalized.Confidence,
			Correction: false,
		})
	}

	return normalized.Value, true
}

// applyCheck records a field check on the line. Passing checks leave no
// issue behind; anything with a penalty or elevated severity is recorded.
func (lv *LineValidator) applyCheck(result *models.LineValidation, check models.FieldCheck, confidence *float64) {
	*confidence *= check.Multiplier
	if check.Severity == models.SeverityInfo && check.Multiplier >= 1.0 {
		return
	}
	result.AddIssue(check.ToIssue())
}

func (lv *LineValidator) amountField(result *models.LineValidation, field string) *models.AmountField {
	switch field {
	case "gross":
		return &result.Amounts.Gross
	case "base":
		return &result.Amounts.Base
	default:
		return &result.Amounts.Tax
	}
}
