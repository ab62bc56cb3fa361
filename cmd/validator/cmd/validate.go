package cmd

import (
	"context"
	"fmt"
	"os"

	"invoice-validation-service/cmd/validator/config"
	"invoice-validation-service/internal/parsers"
	"invoice-validation-service/internal/reconciler"
	"invoice-validation-service/internal/reporter"
	"invoice-validation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	linesFile            string
	totalsFile           string
	outputFormat         string
	outputFile           string
	taxRate              string
	strict               bool
	detectorTolerance    int64
	extractedTolerance   int64
	extractedPercent     string
	recomputedMultiplier int64
	autoApproveThreshold float64
	oldDateYears         int
	periodStart          string
	periodEnd            string
	periodClosed         bool
	includeCleanLines    bool
	workers              int
	rateSchedule         bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate extracted invoice lines against header totals",
	Long: `Validate an OCR extraction: normalize the amount text on every line,
detect VAT-inclusive gross amounts and correct the DPP/PPN split, reconcile
the line sums against the declared header totals, and emit a verdict with
an aggregate confidence score.

Examples:
  validator validate --lines extraction.csv --totals totals.csv
  validator validate --lines extraction.csv --totals totals.csv --output-format json --output-file verdict.json
  validator validate --lines extraction.csv --totals totals.csv --tax-rate 0.12
  validator validate --lines extraction.csv --totals totals.csv --strict --period-start 2024-03-01 --period-end 2024-03-31
  validator validate --lines extraction.csv --totals totals.csv --rate-schedule`,
	PreRunE: validateFlags,
	RunE:    runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&linesFile, "lines", "", "path to the extracted line items CSV (required)")
	validateCmd.Flags().StringVar(&totalsFile, "totals", "", "path to the header totals CSV (required)")
	validateCmd.Flags().StringVar(&outputFormat, "output-format", "console", "output format: console, json, csv")
	validateCmd.Flags().StringVar(&outputFile, "output-file", "", "write the report to a file instead of stdout")
	validateCmd.Flags().StringVar(&taxRate, "tax-rate", "", "VAT rate as a decimal fraction (default 0.11)")
	validateCmd.Flags().BoolVar(&strict, "strict", false, "strict mode: no OCR repair, tight tolerances, closed period")
	validateCmd.Flags().Int64Var(&detectorTolerance, "detector-tolerance", 0, "rupiah tolerance for inclusivity detection")
	validateCmd.Flags().Int64Var(&extractedTolerance, "reconcile-tolerance", 0, "absolute rupiah tolerance for total reconciliation")
	validateCmd.Flags().StringVar(&extractedPercent, "reconcile-percent", "", "percent tolerance for total reconciliation as a decimal fraction")
	validateCmd.Flags().Int64Var(&recomputedMultiplier, "recomputed-multiplier", 0, "per-line tolerance multiplier when corrected amounts feed the sums")
	validateCmd.Flags().Float64Var(&autoApproveThreshold, "auto-approve-threshold", 0, "minimum aggregate confidence for auto-approval")
	validateCmd.Flags().IntVar(&oldDateYears, "old-date-years", 0, "age in years beyond which invoice dates are flagged")
	validateCmd.Flags().StringVar(&periodStart, "period-start", "", "fiscal period start (YYYY-MM-DD)")
	validateCmd.Flags().StringVar(&periodEnd, "period-end", "", "fiscal period end (YYYY-MM-DD)")
	validateCmd.Flags().BoolVar(&periodClosed, "period-closed", false, "treat out-of-period dates as blocking errors")
	validateCmd.Flags().BoolVar(&includeCleanLines, "include-clean-lines", false, "show lines without findings in the report")
	validateCmd.Flags().IntVar(&workers, "workers", 0, "number of line validation workers")
	validateCmd.Flags().BoolVar(&rateSchedule, "rate-schedule", false, "pick the VAT rate from the Indonesian statutory schedule by invoice date")

	validateCmd.MarkFlagRequired("lines")
	validateCmd.MarkFlagRequired("totals")

	viper.BindPFlag("lines", validateCmd.Flags().Lookup("lines"))
	viper.BindPFlag("totals", validateCmd.Flags().Lookup("totals"))
	viper.BindPFlag("output_format", validateCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output_file", validateCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("tax_rate", validateCmd.Flags().Lookup("tax-rate"))
	viper.BindPFlag("strict", validateCmd.Flags().Lookup("strict"))
	viper.BindPFlag("auto_approve_threshold", validateCmd.Flags().Lookup("auto-approve-threshold"))
	viper.BindPFlag("workers", validateCmd.Flags().Lookup("workers"))
	viper.BindPFlag("rate_schedule", validateCmd.Flags().Lookup("rate-schedule"))
}

// validateFlags validates the command flags before execution
func validateFlags(cmd *cobra.Command, args []string) error {
	linesFile = viper.GetString("lines")
	totalsFile = viper.GetString("totals")
	outputFormat = viper.GetString("output_format")
	if viper.IsSet("output_file") {
		outputFile = viper.GetString("output_file")
	}
	if viper.IsSet("tax_rate") {
		taxRate = viper.GetString("tax_rate")
	}
	strict = viper.GetBool("strict")
	rateSchedule = viper.GetBool("rate_schedule")

	if err := validateFileExists(linesFile, "lines"); err != nil {
		return err
	}
	if err := validateFileExists(totalsFile, "totals"); err != nil {
		return err
	}

	switch outputFormat {
	case "console", "json", "csv":
	default:
		return fmt.Errorf("invalid output format %q, valid formats: console, json, csv", outputFormat)
	}

	return nil
}

// validateFileExists checks if a file exists and is readable
func validateFileExists(filePath, flagName string) error {
	if filePath == "" {
		return fmt.Errorf("--%s is required", flagName)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s file does not exist: %s", flagName, filePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s file %s: %w", flagName, filePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path is a directory, not a file: %s", flagName, filePath)
	}

	return nil
}

// runValidate executes the validation workflow
func runValidate(cmd *cobra.Command, args []string) error {
	if verbose {
		if debugLogger, err := logger.NewLogger(logger.DebugConfig()); err == nil {
			logger.SetGlobalLogger(debugLogger)
		}
	}
	log := logger.WithComponent("cli")

	opts := &config.EngineOptions{
		TaxRate:              taxRate,
		Strict:               strict,
		DetectorTolerance:    detectorTolerance,
		ExtractedTolerance:   extractedTolerance,
		ExtractedPercent:     extractedPercent,
		RecomputedMultiplier: recomputedMultiplier,
		AutoApproveThreshold: autoApproveThreshold,
		OldDateYears:         oldDateYears,
		PeriodStart:          periodStart,
		PeriodEnd:            periodEnd,
		PeriodClosed:         periodClosed,
		Workers:              workers,
		UseRateSchedule:      rateSchedule,
	}

	orchestratorConfig, err := config.CreateOrchestratorConfig(opts)
	if err != nil {
		return handleCLIError(err)
	}
	parseConfig, normalizerConfig := config.CreateParserConfigs(opts)

	log.WithFields(logger.Fields{
		"lines_file":  linesFile,
		"totals_file": totalsFile,
		"strict":      strict,
	}).Info("Starting invoice validation")

	lineParser := parsers.NewLineItemParser(parseConfig)
	lines, stats, err := lineParser.ParseFile(linesFile)
	if err != nil {
		return handleCLIError(err)
	}
	if stats.HasErrors() {
		log.WithFields(logger.Fields{
			"skipped": stats.ErrorCount,
		}).Warn("Some extracted rows were skipped due to structural defects")
		if verbose {
			for _, rowErr := range stats.Errors {
				fmt.Fprintln(os.Stderr, rowErr.GetDetailedError())
			}
		}
	}

	headerParser := parsers.NewHeaderParser(parseConfig, normalizerConfig)
	header, err := headerParser.ParseFile(totalsFile)
	if err != nil {
		return handleCLIError(err)
	}

	orchestrator, err := reconciler.NewValidationOrchestrator(orchestratorConfig)
	if err != nil {
		return handleCLIError(err)
	}
	if opts.UseRateSchedule {
		orchestrator = orchestrator.WithRateCache(reconciler.IndonesianRateCache())
	}

	verdict, err := orchestrator.ValidateDocument(context.Background(), lines, header)
	if err != nil {
		return handleCLIError(err)
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, includeCleanLines)
	if err != nil {
		return handleCLIError(err)
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return handleCLIError(err)
	}

	writer := os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", outputFile, err)
		}
		defer file.Close()
		writer = file
	}

	if err := generator.GenerateReport(verdict, writer); err != nil {
		return handleCLIError(err)
	}

	if outputFile != "" {
		log.WithFields(logger.Fields{
			"output_file": outputFile,
			"status":      verdict.Status,
		}).Info("Report written")
	}

	return nil
}
