package detector

import (
	"fmt"

	"invoice-validation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Detector evaluates the VAT-inclusivity hypotheses for a single line.
// It holds only configuration and is safe for concurrent use.
type Detector struct {
	config *Config
}

// NewDetector creates a detector with the specified configuration. A negative
// or zero tax rate at detection time is caller misuse and is caught here
// through config validation, not reported per call.
func NewDetector(config *Config) (*Detector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Detector{config: config}, nil
}

// Detect determines whether the declared base and tax were derived assuming
// the gross amount already includes VAT. It is total: every input yields a
// result, and every branch sets IsInclusive explicitly.
//
// The separate hypothesis expects gross ≈ base; the inclusive hypothesis
// expects gross ≈ base × (1 + rate). When the inclusive hypothesis matches,
// the corrected pair is recomputed from the gross amount: base = gross /
// (1 + rate), tax = base × rate, both rounded to the configured precision.
func (d *Detector) Detect(gross, base, tax, rate decimal.Decimal) *models.VatInclusivityResult {
	one := decimal.NewFromInt(1)
	factor := one.Add(rate)

	separateDiff := gross.Sub(base).Abs()
	inclusiveExpected := base.Mul(factor)
	inclusiveDiff := gross.Sub(inclusiveExpected).Abs()

	if separateDiff.LessThanOrEqual(d.config.Tolerance) {
		return &models.VatInclusivityResult{
			IsInclusive: false,
			Reason: fmt.Sprintf("amounts already separate: gross %s matches base %s (diff %s within tolerance %s)",
				gross.String(), base.String(), separateDiff.String(), d.config.Tolerance.String()),
			Confidence: d.matchConfidence(separateDiff),
		}
	}

	if inclusiveDiff.LessThanOrEqual(d.config.Tolerance) {
		recomputedBase := gross.Div(factor).Round(d.config.RoundingPlaces)
		recomputedTax := recomputedBase.Mul(rate).Round(d.config.RoundingPlaces)

		return &models.VatInclusivityResult{
			IsInclusive: true,
			Reason: fmt.Sprintf("gross %s matches base %s x %s (diff %s within tolerance %s); base and tax recomputed from gross",
				gross.String(), base.String(), factor.String(), inclusiveDiff.String(), d.config.Tolerance.String()),
			RecomputedBase: &recomputedBase,
			RecomputedTax:  &recomputedTax,
			Confidence:     d.matchConfidence(inclusiveDiff),
		}
	}

	// Neither hypothesis fits. Not a correction candidate, but the low
	// confidence flags the line for review rather than silently passing.
	return &models.VatInclusivityResult{
		IsInclusive: false,
		Reason: fmt.Sprintf("neither hypothesis fits: gross %s differs from base by %s and from base x %s by %s, tolerance %s",
			gross.String(), separateDiff.String(), factor.String(), inclusiveDiff.String(), d.config.Tolerance.String()),
		Confidence: d.config.AmbiguousConfidence,
	}
}

// matchConfidence scales a within-tolerance match from 1.0 (exact) down to
// the configured floor at the tolerance edge
func (d *Detector) matchConfidence(diff decimal.Decimal) float64 {
	if diff.IsZero() {
		return 1.0
	}

	ratio, _ := diff.Div(d.config.Tolerance).Float64()
	confidence := 1.0 - (1.0-d.config.MinMatchConfidence)*ratio

	return models.ClampConfidence(confidence)
}
