// Package normalizer parses raw OCR-extracted numeric strings into decimal
// amounts with a format-confidence report.
//
// OCR output for scanned Indonesian tax invoices is ambiguous in two ways
// this package has to resolve:
//   - Separator roles: "1.234.567,89" uses Indonesian/European grouping while
//     "1,234,567.89" uses Western grouping, and a single separator can mean
//     either role depending on position.
//   - Character confusion: the OCR layer misreads glyphs inside digit runs
//     (capital O for zero, capital I or lowercase l for one).
//
// The normalizer resolves both with positional heuristics and a configurable
// confusion table, and reports every assumption it had to make as a warning
// with a reduced confidence score. Irreconcilable input (no digits, malformed
// digit grouping) is an error, not a guess.
//
// Example usage:
//
//	n := normalizer.NewNormalizer(normalizer.DefaultConfig())
//	amount, err := n.Normalize("1.234.567,89")
//	// amount.Value == 1234567.89, amount.Confidence == 1.0
package normalizer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds configuration parameters for amount normalization.
// The confusion table and plausibility band are configuration because they
// are empirically tuned against the OCR engine in use, not derived from a
// principle.
type Config struct {
	// ConfusionTable maps characters the OCR layer commonly misreads inside
	// digit runs to the digit they stand for. Applied only to digit groups
	// that fail to parse cleanly, never to clean input.
	ConfusionTable map[rune]rune `json:"confusion_table"`

	// RepairConfidence is the format confidence assigned when at least one
	// confusion-table repair was applied
	RepairConfidence float64 `json:"repair_confidence"`

	// AmbiguousSeparatorConfidence is the format confidence assigned when a
	// single separator followed by exactly three trailing digits was assumed
	// to be a thousands separator
	AmbiguousSeparatorConfidence float64 `json:"ambiguous_separator_confidence"`

	// SuspectDigitCount is the digit count at or above which a small parsed
	// value indicates a dropped digit or misplaced decimal point
	SuspectDigitCount int `json:"suspect_digit_count"`

	// SmallValueFloor is the value below which a long digit string is
	// considered implausible for this domain
	SmallValueFloor decimal.Decimal `json:"small_value_floor"`
}

// DefaultConfig returns a configuration with the confusion pairs observed in
// production scans and a plausibility band suited to rupiah invoice amounts
func DefaultConfig() *Config {
	return &Config{
		ConfusionTable: map[rune]rune{
			'O': '0',
			'o': '0',
			'D': '0',
			'I': '1',
			'l': '1',
			'|': '1',
			'Z': '2',
			'z': '2',
			'S': '5',
			's': '5',
			'b': '6',
			'B': '8',
			'g': '9',
			'q': '9',
		},
		RepairConfidence:             0.90,
		AmbiguousSeparatorConfidence: 0.85,
		SuspectDigitCount:            6,
		SmallValueFloor:              decimal.NewFromInt(1000),
	}
}

// StrictConfig returns a configuration that disables confusion repair
// entirely, for callers that prefer rejection over correction
func StrictConfig() *Config {
	return &Config{
		ConfusionTable:               map[rune]rune{},
		RepairConfidence:             1.0,
		AmbiguousSeparatorConfidence: 0.85,
		SuspectDigitCount:            6,
		SmallValueFloor:              decimal.NewFromInt(1000),
	}
}

// Validate checks if the normalizer configuration is valid
func (c *Config) Validate() error {
	if c.RepairConfidence < 0.0 || c.RepairConfidence > 1.0 {
		return fmt.Errorf("repair confidence must be between 0.0 and 1.0: %f", c.RepairConfidence)
	}

	if c.AmbiguousSeparatorConfidence <= 0.0 || c.AmbiguousSeparatorConfidence >= 1.0 {
		return fmt.Errorf("ambiguous separator confidence must be strictly between 0.0 and 1.0: %f",
			c.AmbiguousSeparatorConfidence)
	}

	if c.SuspectDigitCount < 1 {
		return fmt.Errorf("suspect digit count must be positive: %d", c.SuspectDigitCount)
	}

	if c.SmallValueFloor.IsNegative() {
		return fmt.Errorf("small value floor cannot be negative: %s", c.SmallValueFloor.String())
	}

	for from, to := range c.ConfusionTable {
		if to < '0' || to > '9' {
			return fmt.Errorf("confusion table must map to digits, got %q -> %q", from, to)
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	table := make(map[rune]rune, len(c.ConfusionTable))
	for from, to := range c.ConfusionTable {
		table[from] = to
	}

	return &Config{
		ConfusionTable:               table,
		RepairConfidence:             c.RepairConfidence,
		AmbiguousSeparatorConfidence: c.AmbiguousSeparatorConfidence,
		SuspectDigitCount:            c.SuspectDigitCount,
		SmallValueFloor:              c.SmallValueFloor,
	}
}
