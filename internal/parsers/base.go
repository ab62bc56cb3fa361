// Package parsers ingests OCR extraction output into the engine's data
// model. The upstream extractor emits one CSV per document: line items with
// raw (unnormalized) amount text, plus a single-row header totals file.
//
// The parsers deliberately keep amount text raw. Normalization, confusion
// repair, and separator inference belong to the validation engine, where a
// failure becomes a per-line issue instead of a dropped row. A parser only
// fails a row for structural reasons: missing columns, unreadable
// confidence, empty line numbers.
//
// Column names vary across extractor versions and invoice templates, so each
// field accepts a list of aliases, including the Indonesian tax terms (DPP
// for the tax base, PPN for the tax amount, jumlah for the gross).
//
// Example usage:
//
//	parser, err := parsers.NewLineItemParser(parsers.DefaultParseConfig())
//	lines, stats, err := parser.ParseFile("extraction.csv")
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-validation-service/pkg/errors"
	"invoice-validation-service/pkg/logger"
)

// ParseConfig holds configuration for CSV ingestion
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultParseConfig returns a configuration matching the extractor's output
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// baseParser provides the CSV plumbing shared by both parsers
type baseParser struct {
	config *ParseConfig
	logger logger.Logger
}

func newBaseParser(config *ParseConfig, component string) *baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &baseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent(component),
	}
}

// open opens the file and configures a csv.Reader for it
func (bp *baseParser) open(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open extraction file")
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// columnMap resolves header names to column indices through field aliases
type columnMap struct {
	indices map[string]int
}

// resolveColumns reads the header row and maps each logical field to its
// column through the alias table. Required fields missing from the header
// fail the whole file.
func (bp *baseParser) resolveColumns(reader *csv.Reader, filePath string, aliases map[string][]string, required []string) (*columnMap, error) {
	if !bp.config.HasHeader {
		return nil, errors.ParseError(errors.CodeMissingColumn, filePath, 0, "headers", "",
			fmt.Errorf("headerless extraction files are not supported"))
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 1, "headers", "",
				fmt.Errorf("file is empty")).
				WithSuggestion("Ensure the extraction file contains a header row and data rows")
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 1, "headers", "", err)
	}

	cm := &columnMap{indices: make(map[string]int)}
	for field, names := range aliases {
		for i, header := range headers {
			if containsFold(names, strings.TrimSpace(header)) {
				cm.indices[field] = i
				break
			}
		}
	}

	var missing []string
	for _, field := range required {
		if _, ok := cm.indices[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ParseError(errors.CodeMissingColumn, filePath, 1, "headers",
			strings.Join(missing, ", "), nil).
			WithSuggestion(fmt.Sprintf("Ensure the file has columns for: %s (aliases accepted)",
				strings.Join(missing, ", ")))
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"columns":   cm.indices,
	}).Debug("Resolved extraction columns")

	return cm, nil
}

// value returns the trimmed field value, or "" when the column is absent or
// the row is short
func (cm *columnMap) value(record []string, field string) string {
	index, ok := cm.indices[field]
	if !ok || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// has reports whether the column was present in the header
func (cm *columnMap) has(field string) bool {
	_, ok := cm.indices[field]
	return ok
}

func containsFold(names []string, candidate string) bool {
	for _, name := range names {
		if strings.EqualFold(name, candidate) {
			return true
		}
	}
	return false
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// ParseStats summarizes one ingestion run
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	ErrorCount    int
	Errors        []*errors.RowParseError
}

// AddError records a row-level error
func (ps *ParseStats) AddError(err *errors.RowParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.ErrorCount++
}

// HasErrors reports whether any rows failed
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a human-readable summary of the run
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid), %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, ps.ErrorCount)
}
