// Package detector decides whether a line's declared tax base and tax amount
// were derived from a VAT-inclusive gross amount.
//
// A recurring OCR extraction failure on Indonesian tax invoices is that the
// declared base (DPP) column carries the VAT-inclusive total instead of the
// tax base. The detector weighs two hypotheses against the gross amount:
//
//	separate:  gross ≈ base
//	inclusive: gross ≈ base × (1 + rate)
//
// and, when the inclusive hypothesis holds, emits a corrected base/tax pair
// recomputed from the gross amount. Detection is a total pure function: it
// never returns an error, and ambiguous input yields a low-confidence
// non-inclusive result with a reason instead of a silent default.
//
// Example usage:
//
//	d, err := detector.NewDetector(detector.DefaultConfig())
//	result := d.Detect(gross, base, tax, rate)
//	if result.IsInclusive {
//	    // use result.RecomputedBase / result.RecomputedTax
//	}
package detector

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds configuration parameters for inclusivity detection
type Config struct {
	// Tolerance is the absolute currency-minor-unit tolerance for hypothesis
	// matching. Absolute rather than percentage because VAT rounding noise is
	// sub-unit, not proportional.
	Tolerance decimal.Decimal `json:"tolerance"`

	// MinMatchConfidence is the confidence floor for a hypothesis that
	// matched within tolerance. The match confidence scales linearly from
	// 1.0 (exact) down to this floor (at the tolerance edge).
	MinMatchConfidence float64 `json:"min_match_confidence"`

	// AmbiguousConfidence is the confidence assigned when neither hypothesis
	// fits within tolerance. Must stay at or below 0.5 so downstream
	// consumers treat the line as review material.
	AmbiguousConfidence float64 `json:"ambiguous_confidence"`

	// RoundingPlaces is the decimal precision recomputed amounts are rounded
	// to. Rupiah amounts carry no minor units in practice, so the default
	// is whole units.
	RoundingPlaces int32 `json:"rounding_places"`
}

// DefaultConfig returns a configuration tuned for rupiah invoice amounts.
// The tolerance absorbs the compounding of per-line rounding conventions
// seen in production scans.
func DefaultConfig() *Config {
	return &Config{
		Tolerance:           decimal.NewFromInt(1500),
		MinMatchConfidence:  0.90,
		AmbiguousConfidence: 0.30,
		RoundingPlaces:      0,
	}
}

// StrictConfig returns a configuration with a near-exact tolerance, for
// callers reconciling machine-generated rather than scanned amounts
func StrictConfig() *Config {
	return &Config{
		Tolerance:           decimal.NewFromInt(2),
		MinMatchConfidence:  0.95,
		AmbiguousConfidence: 0.30,
		RoundingPlaces:      0,
	}
}

// Validate checks if the detector configuration is valid
func (c *Config) Validate() error {
	if !c.Tolerance.IsPositive() {
		return fmt.Errorf("tolerance must be positive: %s", c.Tolerance.String())
	}

	if c.MinMatchConfidence <= 0.0 || c.MinMatchConfidence > 1.0 {
		return fmt.Errorf("min match confidence must be in (0.0, 1.0]: %f", c.MinMatchConfidence)
	}

	if c.AmbiguousConfidence <= 0.0 || c.AmbiguousConfidence > 0.5 {
		return fmt.Errorf("ambiguous confidence must be in (0.0, 0.5]: %f", c.AmbiguousConfidence)
	}

	if c.RoundingPlaces < 0 {
		return fmt.Errorf("rounding places cannot be negative: %d", c.RoundingPlaces)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		Tolerance:           c.Tolerance,
		MinMatchConfidence:  c.MinMatchConfidence,
		AmbiguousConfidence: c.AmbiguousConfidence,
		RoundingPlaces:      c.RoundingPlaces,
	}
}
