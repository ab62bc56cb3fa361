// Package reporter renders document verdicts for human and machine
// consumers.
//
// Supported output formats:
//   - Console: reviewer-facing summary with per-line findings
//   - JSON: the full verdict structure for the workflow layer's audit blob
//   - CSV: per-line rows for spreadsheet triage
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.GenerateReport(verdict, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-validation-service/internal/models"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for verdict rendering
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeCleanLines includes lines without issues in console and CSV
	// output; off by default so reviewers see only what needs attention
	IncludeCleanLines bool `json:"include_clean_lines"`

	// IncludeInfoIssues includes Info-severity issues (correction audit
	// records, normalization notes) in console output
	IncludeInfoIssues bool `json:"include_info_issues"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeCleanLines: false,
		IncludeInfoIssues: true,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders document verdicts in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the specified
// configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the verdict to the provided writer
func (rg *ReportGenerator) GenerateReport(verdict *models.DocumentVerdict, writer io.Writer) error {
	if verdict == nil {
		return fmt.Errorf("document verdict cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(verdict, writer)
	case FormatJSON:
		return rg.generateJSONReport(verdict, writer)
	case FormatCSV:
		return rg.generateCSVReport(verdict, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(verdict *models.DocumentVerdict, writer io.Writer) error {
	fmt.Fprintf(writer, "INVOICE VALIDATION REPORT\n")
	fmt.Fprintf(writer, "Run: %s\n", verdict.RunID.String())
	fmt.Fprintf(writer, "Processed: %s\n\n", verdict.ProcessedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== VERDICT ===\n")
	fmt.Fprintf(writer, "Status:     %s\n", verdict.Status)
	fmt.Fprintf(writer, "Confidence: %.3f\n", verdict.AggregateConfidence)
	fmt.Fprintf(writer, "Lines:      %d\n\n", len(verdict.Lines))

	fmt.Fprintf(writer, "=== RECONCILIATION ===\n")
	for _, field := range verdict.Reconciliation.Fields() {
		status := "OK"
		if !field.WithinTolerance {
			status = "OUT OF TOLERANCE"
		}
		label := field.Field
		if field.RecomputedTolerance {
			label += " (recomputed)"
		}
		fmt.Fprintf(writer, "  %-20s header %s, lines %s, diff %s (%.2f%%), tolerance %s: %s\n",
			label, field.HeaderValue.String(), field.LineSum.String(),
			field.AbsoluteDiff.String(), field.PercentDiff*100,
			field.Tolerance.String(), status)
	}
	fmt.Fprintf(writer, "\n")

	printed := false
	for _, line := range verdict.Lines {
		issues := rg.visibleIssues(line)
		if len(issues) == 0 && !rg.config.IncludeCleanLines {
			continue
		}
		if !printed {
			fmt.Fprintf(writer, "=== LINE FINDINGS ===\n")
			printed = true
		}
		fmt.Fprintf(writer, "  Line %d (confidence %.3f):\n", line.LineNumber, line.Confidence)
		for _, issue := range issues {
			marker := ""
			if issue.Correction {
				marker = " [corrected]"
			}
			fmt.Fprintf(writer, "    [%s] %s: %s%s\n", issue.Severity, issue.Field, issue.Message, marker)
		}
	}
	if printed {
		fmt.Fprintf(writer, "\n")
	}

	if len(verdict.SuggestedActions) > 0 {
		fmt.Fprintf(writer, "=== SUGGESTED ACTIONS ===\n")
		for _, action := range verdict.SuggestedActions {
			fmt.Fprintf(writer, "  - %s\n", action)
		}
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(verdict *models.DocumentVerdict, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(verdict)
}

func (rg *ReportGenerator) generateCSVReport(verdict *models.DocumentVerdict, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Line",
			"Gross",
			"Base",
			"Tax",
			"Recomputed",
			"Confidence",
			"Issues",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, line := range verdict.Lines {
		issues := rg.visibleIssues(line)
		if len(issues) == 0 && !rg.config.IncludeCleanLines {
			continue
		}

		var messages []string
		for _, issue := range issues {
			messages = append(messages, fmt.Sprintf("[%s] %s", issue.Severity, issue.Message))
		}

		recomputed := "no"
		if line.Amounts.Base.Recomputed || line.Amounts.Tax.Recomputed {
			recomputed = "yes"
		}

		record := []string{
			fmt.Sprintf("%d", line.LineNumber),
			amountCell(line.Amounts.Gross),
			amountCell(line.Amounts.Base),
			amountCell(line.Amounts.Tax),
			recomputed,
			fmt.Sprintf("%.3f", line.Confidence),
			strings.Join(messages, "; "),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write line record: %w", err)
		}
	}

	return nil
}

// visibleIssues filters a line's issues per the configured detail level
func (rg *ReportGenerator) visibleIssues(line *models.LineValidation) []models.Issue {
	if rg.config.IncludeInfoIssues {
		return line.Issues
	}
	var visible []models.Issue
	for _, issue := range line.Issues {
		if issue.Severity != models.SeverityInfo {
			visible = append(visible, issue)
		}
	}
	return visible
}

// amountCell renders a resolved amount, or a placeholder when normalization
// failed for the field
func amountCell(field models.AmountField) string {
	if !field.Resolved {
		return "unresolved"
	}
	return field.Value.String()
}
