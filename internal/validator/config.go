// Package validator provides the per-field plausibility checks and the line
// item validator that composes them with amount normalization and VAT
// inclusivity detection into a per-line validation record.
//
// Field checks are independent and data-shaped: each returns a FieldCheck
// with a severity and a confidence multiplier instead of an error, because a
// line can carry several simultaneous findings that must all be reported
// together. The line validator multiplies the OCR row confidence with every
// normalization confidence, the inclusivity confidence, and every field
// multiplier, so a single severe defect dominates the final score.
//
// Example usage:
//
//	lv, err := validator.NewLineValidator(validator.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	result := lv.ValidateLine(rawLine)
package validator

import (
	"fmt"
	"regexp"
	"time"

	"invoice-validation-service/internal/detector"
	"invoice-validation-service/internal/normalizer"

	"github.com/shopspring/decimal"
)

// ItemCodeConfig controls item code plausibility checking
type ItemCodeConfig struct {
	// MinDigits and MaxDigits bound the accepted length of purely numeric
	// codes
	MinDigits int `json:"min_digits"`
	MaxDigits int `json:"max_digits"`

	// Pattern is the permissive regular expression alphanumeric codes must
	// match to be accepted outright
	Pattern string `json:"pattern"`

	// AllZeroMultiplier penalizes the all-zero placeholder the extraction
	// layer emits when a code cell is unreadable
	AllZeroMultiplier float64 `json:"all_zero_multiplier"`

	// MissingMultiplier is near-disqualifying: a line without any item code
	// cannot be matched to a catalog entry
	MissingMultiplier float64 `json:"missing_multiplier"`

	// UnrecognizedMultiplier penalizes codes that are present but match
	// neither the numeric nor the alphanumeric shape
	UnrecognizedMultiplier float64 `json:"unrecognized_multiplier"`
}

// DateConfig controls invoice date plausibility checking
type DateConfig struct {
	// OldDateYears is the age in years beyond which a date draws a warning
	OldDateYears int `json:"old_date_years"`

	// OldDateMultiplier is the penalty for dates older than OldDateYears
	OldDateMultiplier float64 `json:"old_date_multiplier"`

	// PeriodStart and PeriodEnd bound the expected fiscal period when set.
	// Both must be set together.
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	// PeriodClosed selects the out-of-period policy: Error severity when the
	// period is closed for posting, Warning when it is still open-ended
	PeriodClosed bool `json:"period_closed"`

	// OutOfPeriodMultiplier is the penalty for dates outside the period
	OutOfPeriodMultiplier float64 `json:"out_of_period_multiplier"`
}

// Config holds configuration parameters for line validation
type Config struct {
	// TaxRate is the VAT rate used by inclusivity detection, e.g. 0.11
	TaxRate decimal.Decimal `json:"tax_rate"`

	// Normalizer configures amount normalization
	Normalizer *normalizer.Config `json:"normalizer"`

	// Detector configures VAT inclusivity detection
	Detector *detector.Config `json:"detector"`

	// ItemCode configures item code checking
	ItemCode ItemCodeConfig `json:"item_code"`

	// Date configures invoice date checking
	Date DateConfig `json:"date"`
}

// DefaultConfig returns a configuration for the current Indonesian VAT rate
// and the item code shapes seen across production invoices
func DefaultConfig() *Config {
	return &Config{
		TaxRate:    decimal.RequireFromString("0.11"),
		Normalizer: normalizer.DefaultConfig(),
		Detector:   detector.DefaultConfig(),
		ItemCode: ItemCodeConfig{
			MinDigits:              4,
			MaxDigits:              12,
			Pattern:                `^[A-Za-z0-9][A-Za-z0-9./-]{2,31}$`,
			AllZeroMultiplier:      0.5,
			MissingMultiplier:      0.05,
			UnrecognizedMultiplier: 0.7,
		},
		Date: DateConfig{
			OldDateYears:          2,
			OldDateMultiplier:     0.8,
			PeriodClosed:          false,
			OutOfPeriodMultiplier: 0.6,
		},
	}
}

// StrictConfig returns a configuration with exact-match detection tolerances
// and confusion repair disabled
func StrictConfig() *Config {
	config := DefaultConfig()
	config.Normalizer = normalizer.StrictConfig()
	config.Detector = detector.StrictConfig()
	config.Date.PeriodClosed = true
	return config
}

// Validate checks if the validator configuration is valid
func (c *Config) Validate() error {
	if !c.TaxRate.IsPositive() {
		return fmt.Errorf("tax rate must be positive: %s", c.TaxRate.String())
	}

	if c.Normalizer == nil {
		return fmt.Errorf("normalizer configuration is required")
	}
	if err := c.Normalizer.Validate(); err != nil {
		return fmt.Errorf("normalizer configuration: %w", err)
	}

	if c.Detector == nil {
		return fmt.Errorf("detector configuration is required")
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector configuration: %w", err)
	}

	if c.ItemCode.MinDigits < 1 || c.ItemCode.MaxDigits < c.ItemCode.MinDigits {
		return fmt.Errorf("item code digit range invalid: [%d, %d]",
			c.ItemCode.MinDigits, c.ItemCode.MaxDigits)
	}
	if _, err := regexp.Compile(c.ItemCode.Pattern); err != nil {
		return fmt.Errorf("item code pattern: %w", err)
	}
	for name, m := range map[string]float64{
		"all zero":     c.ItemCode.AllZeroMultiplier,
		"missing":      c.ItemCode.MissingMultiplier,
		"unrecognized": c.ItemCode.UnrecognizedMultiplier,
		"old date":     c.Date.OldDateMultiplier,
		"out of period": c.Date.OutOfPeriodMultiplier,
	} {
		if m < 0.0 || m > 1.0 {
			return fmt.Errorf("%s multiplier must be between 0.0 and 1.0: %f", name, m)
		}
	}

	if c.Date.OldDateYears < 1 {
		return fmt.Errorf("old date years must be positive: %d", c.Date.OldDateYears)
	}

	if (c.Date.PeriodStart == nil) != (c.Date.PeriodEnd == nil) {
		return fmt.Errorf("fiscal period requires both start and end")
	}
	if c.Date.PeriodStart != nil && c.Date.PeriodEnd.Before(*c.Date.PeriodStart) {
		return fmt.Errorf("fiscal period end %s precedes start %s",
			c.Date.PeriodEnd.Format("2006-01-02"), c.Date.PeriodStart.Format("2006-01-02"))
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := &Config{
		TaxRate:    c.TaxRate,
		Normalizer: c.Normalizer.Clone(),
		Detector:   c.Detector.Clone(),
		ItemCode:   c.ItemCode,
		Date:       c.Date,
	}

	if c.Date.PeriodStart != nil {
		start := *c.Date.PeriodStart
		clone.Date.PeriodStart = &start
	}
	if c.Date.PeriodEnd != nil {
		end := *c.Date.PeriodEnd
		clone.Date.PeriodEnd = &end
	}

	return clone
}
