// Package config assembles engine configurations from CLI inputs
package config

import (
	"fmt"
	"time"

	"invoice-validation-service/internal/normalizer"
	"invoice-validation-service/internal/parsers"
	"invoice-validation-service/internal/reconciler"
	"invoice-validation-service/internal/reporter"
	"invoice-validation-service/internal/validator"

	"github.com/shopspring/decimal"
)

// EngineOptions carries the CLI-level overrides for one validation run
type EngineOptions struct {
	TaxRate              string
	Strict               bool
	DetectorTolerance    int64
	ExtractedTolerance   int64
	ExtractedPercent     string
	RecomputedMultiplier int64
	AutoApproveThreshold float64
	OldDateYears         int
	PeriodStart          string
	PeriodEnd            string
	PeriodClosed         bool
	Workers              int
	UseRateSchedule      bool
}

// CreateOrchestratorConfig builds the orchestrator configuration from CLI
// options. Zero-valued options keep the engine defaults.
func CreateOrchestratorConfig(opts *EngineOptions) (*reconciler.OrchestratorConfig, error) {
	config := reconciler.DefaultOrchestratorConfig()
	if opts.Strict {
		config.Validator = validator.StrictConfig()
		config.Reconciler = reconciler.StrictConfig()
	}

	if opts.TaxRate != "" {
		rate, err := decimal.NewFromString(opts.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("invalid tax rate %q: %w", opts.TaxRate, err)
		}
		config.Validator.TaxRate = rate
	}

	if opts.DetectorTolerance > 0 {
		config.Validator.Detector.Tolerance = decimal.NewFromInt(opts.DetectorTolerance)
	}
	if opts.ExtractedTolerance > 0 {
		config.Reconciler.ExtractedAbsoluteTolerance = decimal.NewFromInt(opts.ExtractedTolerance)
	}
	if opts.ExtractedPercent != "" {
		percent, err := decimal.NewFromString(opts.ExtractedPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid extracted percent tolerance %q: %w", opts.ExtractedPercent, err)
		}
		config.Reconciler.ExtractedPercentTolerance = percent
	}
	if opts.RecomputedMultiplier > 0 {
		config.Reconciler.RecomputedMultiplier = opts.RecomputedMultiplier
	}
	if opts.AutoApproveThreshold > 0 {
		config.AutoApproveThreshold = opts.AutoApproveThreshold
	}
	if opts.OldDateYears > 0 {
		config.Validator.Date.OldDateYears = opts.OldDateYears
	}
	if opts.Workers > 0 {
		config.WorkerCount = opts.Workers
	}

	if (opts.PeriodStart == "") != (opts.PeriodEnd == "") {
		return nil, fmt.Errorf("fiscal period requires both --period-start and --period-end")
	}
	if opts.PeriodStart != "" {
		start, err := time.Parse("2006-01-02", opts.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("invalid period start %q: %w", opts.PeriodStart, err)
		}
		end, err := time.Parse("2006-01-02", opts.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid period end %q: %w", opts.PeriodEnd, err)
		}
		config.Validator.Date.PeriodStart = &start
		config.Validator.Date.PeriodEnd = &end
		config.Validator.Date.PeriodClosed = opts.PeriodClosed
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateParserConfigs builds the ingestion configurations for one run
func CreateParserConfigs(opts *EngineOptions) (*parsers.ParseConfig, *normalizer.Config) {
	normalizerConfig := normalizer.DefaultConfig()
	if opts.Strict {
		normalizerConfig = normalizer.StrictConfig()
	}
	return parsers.DefaultParseConfig(), normalizerConfig
}

// CreateReportConfig creates a report configuration for the output format
func CreateReportConfig(format string, includeCleanLines bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.IncludeCleanLines = includeCleanLines

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.IncludeCleanLines = true
	default:
		return nil, fmt.Errorf("invalid output format %q, valid formats: console, json, csv", format)
	}

	return config, nil
}
