package cmd

import (
	"fmt"
	"os"
	"strings"

	"invoice-validation-service/pkg/errors"
	"invoice-validation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// handleCLIError prints error details and terminates with the category exit
// code. Used from RunE so each error class maps to a distinct exit code.
func handleCLIError(err error) error {
	if err == nil {
		return nil
	}
	os.Exit(NewCLIErrorHandler().HandleError(err))
	return nil
}

// HandleError handles errors and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if validatorErr, ok := errors.AsValidatorError(err); ok {
		return h.handleValidatorError(validatorErr)
	}

	return h.handleGenericError(err)
}

// handleValidatorError handles ValidatorError with detailed context
func (h *CLIErrorHandler) handleValidatorError(err *errors.ValidatorError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-ValidatorError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nRun with --verbose for more detailed error information\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the CSV file format and structure
• Check for proper column headers (Indonesian names like dpp, ppn, jumlah are accepted)
• Ensure the file uses UTF-8 encoding
• Use 'validator validate --help' for examples of correct file formats`

	case errors.CategoryNormalization:
		return `Amount reading help:
• Header totals must be readable numbers; re-scan the totals block if not
• Indonesian (1.234.567,89) and Western (1,234,567.89) formats are accepted
• Currency markers like Rp and the ,- suffix are stripped automatically`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify dates use DD-MM-YYYY or YYYY-MM-DD
• Ensure per-row OCR confidence values are between 0.0 and 1.0`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'validator validate --help' to see all available options
• Try running with default settings first`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• Check data quality in the extraction file
• Try adjusting tolerances (--reconcile-tolerance, --reconcile-percent)
• Verify the totals file matches the same invoice as the line items`

	default:
		return `For more help:
• Use 'validator --help' for general help
• Use 'validator validate --help' for command-specific help
• Report bugs or ask for help on the project repository`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
