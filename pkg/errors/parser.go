package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseContext provides context information for row parsing operations
type ParseContext struct {
	File     string `json:"file"`
	Row      int    `json:"row"`
	Column   string `json:"column"`
	Value    string `json:"value"`
	Expected string `json:"expected,omitempty"`
}

// RowParseError extends the base parse error with row context and recovery
// information. Parsers report these per row so a single bad row never aborts
// the whole extraction file.
type RowParseError struct {
	*ValidatorError
	Context     *ParseContext `json:"context"`
	Recoverable bool          `json:"recoverable"`
	Examples    []string      `json:"examples,omitempty"`
}

// Error implements the error interface with location formatting
func (e *RowParseError) Error() string {
	var parts []string

	parts = append(parts, e.ValidatorError.Error())

	if e.Context != nil {
		location := fmt.Sprintf("at %s", filepath.Base(e.Context.File))
		if e.Context.Row > 0 {
			location += fmt.Sprintf(":%d", e.Context.Row)
		}
		if e.Context.Column != "" {
			location += fmt.Sprintf(" column '%s'", e.Context.Column)
		}
		parts = append(parts, location)
	}

	return strings.Join(parts, " ")
}

// GetDetailedError returns a detailed multi-line error description
func (e *RowParseError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))

	if e.Context != nil {
		lines = append(lines, fmt.Sprintf("  File: %s", e.Context.File))
		if e.Context.Row > 0 {
			lines = append(lines, fmt.Sprintf("  Row: %d", e.Context.Row))
		}
		if e.Context.Column != "" {
			lines = append(lines, fmt.Sprintf("  Column: %s", e.Context.Column))
		}
		if e.Context.Value != "" {
			lines = append(lines, fmt.Sprintf("  Value: '%s'", e.Context.Value))
		}
		if e.Context.Expected != "" {
			lines = append(lines, fmt.Sprintf("  Expected: %s", e.Context.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  Suggestion: %s", e.Suggestion))
	}

	for _, example := range e.Examples {
		lines = append(lines, fmt.Sprintf("  Example: %s", example))
	}

	return strings.Join(lines, "\n")
}

// NewRowParseError creates a parse error with full row context
func NewRowParseError(code ErrorCode, ctx *ParseContext, cause error) *RowParseError {
	base := ParseError(code, ctx.File, ctx.Row, ctx.Column, ctx.Value, cause)

	return &RowParseError{
		ValidatorError: base,
		Context:        ctx,
		Recoverable:    code != CodeMissingColumn,
	}
}

// WithExamples attaches example values showing the expected format
func (e *RowParseError) WithExamples(examples ...string) *RowParseError {
	e.Examples = append(e.Examples, examples...)
	return e
}
