// Package reconciler aggregates per-line validation results into a
// document-level verdict: it sums resolved line amounts, compares them to
// header-declared totals under context-aware tolerances, and derives the
// Approved / NeedsReview / Rejected status with supporting evidence.
//
// Tolerance selection is the heart of the package: a field whose line values
// were recomputed by inclusivity correction reconciles under a wider
// tolerance than a field taken as extracted, because each correction rounds
// independently and the rounding compounds across lines.
//
// Example usage:
//
//	orchestrator, err := reconciler.NewValidationOrchestrator(reconciler.DefaultOrchestratorConfig())
//	if err != nil {
//	    return err
//	}
//	verdict, err := orchestrator.ValidateDocument(ctx, lines, header)
package reconciler

import (
	"fmt"

	"invoice-validation-service/internal/validator"

	"github.com/shopspring/decimal"
)

// Config holds configuration parameters for summation reconciliation
type Config struct {
	// ExtractedAbsoluteTolerance is the absolute floor of the tolerance for
	// fields taken as extracted
	ExtractedAbsoluteTolerance decimal.Decimal `json:"extracted_absolute_tolerance"`

	// ExtractedPercentTolerance is the fraction of the header total that
	// competes with the absolute floor; the larger of the two applies
	ExtractedPercentTolerance decimal.Decimal `json:"extracted_percent_tolerance"`

	// RecomputedUnitTolerance is the per-line rounding unit for recomputed
	// fields. Whole rupiah for Indonesian invoices.
	RecomputedUnitTolerance decimal.Decimal `json:"recomputed_unit_tolerance"`

	// RecomputedMultiplier scales the per-line unit to absorb compounding
	// rounding across corrected lines
	RecomputedMultiplier int64 `json:"recomputed_multiplier"`

	// MinCloseness is the closeness floor for a within-tolerance field; the
	// score scales linearly from 1.0 (exact) to this floor at the edge, and
	// decays below it in proportion once the tolerance is exceeded
	MinCloseness float64 `json:"min_closeness"`
}

// DefaultConfig returns reconciliation tolerances tuned for rupiah amounts.
// Constants are calibration points, not derived values; recalibrate against
// sample documents when the upstream extractor changes.
func DefaultConfig() *Config {
	return &Config{
		ExtractedAbsoluteTolerance: decimal.NewFromInt(1000),
		ExtractedPercentTolerance:  decimal.RequireFromString("0.005"),
		RecomputedUnitTolerance:    decimal.NewFromInt(1),
		RecomputedMultiplier:       5,
		MinCloseness:               0.90,
	}
}

// StrictConfig returns near-exact reconciliation tolerances
func StrictConfig() *Config {
	return &Config{
		ExtractedAbsoluteTolerance: decimal.NewFromInt(1),
		ExtractedPercentTolerance:  decimal.Zero,
		RecomputedUnitTolerance:    decimal.NewFromInt(1),
		RecomputedMultiplier:       2,
		MinCloseness:               0.95,
	}
}

// Validate checks if the reconciler configuration is valid
func (c *Config) Validate() error {
	if c.ExtractedAbsoluteTolerance.IsNegative() {
		return fmt.Errorf("extracted absolute tolerance cannot be negative: %s",
			c.ExtractedAbsoluteTolerance.String())
	}

	if c.ExtractedPercentTolerance.IsNegative() || c.ExtractedPercentTolerance.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("extracted percent tolerance must be between 0 and 1: %s",
			c.ExtractedPercentTolerance.String())
	}

	if !c.RecomputedUnitTolerance.IsPositive() {
		return fmt.Errorf("recomputed unit tolerance must be positive: %s",
			c.RecomputedUnitTolerance.String())
	}

	if c.RecomputedMultiplier < 1 {
		return fmt.Errorf("recomputed multiplier must be positive: %d", c.RecomputedMultiplier)
	}

	if c.MinCloseness <= 0.0 || c.MinCloseness >= 1.0 {
		return fmt.Errorf("min closeness must be strictly between 0.0 and 1.0: %f", c.MinCloseness)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// OrchestratorConfig holds configuration for the validation orchestrator
type OrchestratorConfig struct {
	// Validator configures per-line validation
	Validator *validator.Config `json:"validator"`

	// Reconciler configures summation reconciliation
	Reconciler *Config `json:"reconciler"`

	// AutoApproveThreshold is the aggregate confidence below which a
	// document needs review even when everything reconciles
	AutoApproveThreshold float64 `json:"auto_approve_threshold"`

	// WorkerCount bounds the per-line validation fan-out
	WorkerCount int `json:"worker_count"`
}

// DefaultOrchestratorConfig returns the default orchestrator configuration
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		Validator:            validator.DefaultConfig(),
		Reconciler:           DefaultConfig(),
		AutoApproveThreshold: 0.85,
		WorkerCount:          4,
	}
}

// Validate checks if the orchestrator configuration is valid
func (c *OrchestratorConfig) Validate() error {
	if c.Validator == nil {
		return fmt.Errorf("validator configuration is required")
	}
	if err := c.Validator.Validate(); err != nil {
		return fmt.Errorf("validator configuration: %w", err)
	}

	if c.Reconciler == nil {
		return fmt.Errorf("reconciler configuration is required")
	}
	if err := c.Reconciler.Validate(); err != nil {
		return fmt.Errorf("reconciler configuration: %w", err)
	}

	if c.AutoApproveThreshold < 0.0 || c.AutoApproveThreshold > 1.0 {
		return fmt.Errorf("auto approve threshold must be between 0.0 and 1.0: %f",
			c.AutoApproveThreshold)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive: %d", c.WorkerCount)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *OrchestratorConfig) Clone() *OrchestratorConfig {
	if c == nil {
		return nil
	}
	return &OrchestratorConfig{
		Validator:            c.Validator.Clone(),
		Reconciler:           c.Reconciler.Clone(),
		AutoApproveThreshold: c.AutoApproveThreshold,
		WorkerCount:          c.WorkerCount,
	}
}
