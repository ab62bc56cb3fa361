package errors

import (
	"errors"
	"testing"
)

func TestValidatorError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "normalization error",
			category:   CategoryNormalization,
			code:       CodeNoDigits,
			message:    "no digits",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeInvalidDate,
			message:    "invalid date",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "reconciliation error",
			category:   CategoryReconciliation,
			code:       CodeToleranceExceeded,
			message:    "tolerance exceeded",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ValidatorError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}

			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}

			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}

			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestValidatorErrorWithContext(t *testing.T) {
	err := New(CategoryNormalization, CodeMalformedGrouping, "test error").
		WithContext("raw_text", "1.23.456,78").
		WithContext("line", 4).
		WithSuggestion("re-check the scanned amount")

	if err.Context["raw_text"] != "1.23.456,78" {
		t.Errorf("expected raw_text context '1.23.456,78', got %v", err.Context["raw_text"])
	}
	if err.Context["line"] != 4 {
		t.Errorf("expected line context 4, got %v", err.Context["line"])
	}

	if err.Suggestion != "re-check the scanned amount" {
		t.Errorf("expected suggestion 're-check the scanned amount', got %s", err.Suggestion)
	}

	expected := "test error (suggestion: re-check the scanned amount)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("NormalizationError", func(t *testing.T) {
		err := NormalizationError(CodeNoDigits, "---", nil)

		if err.Category != CategoryNormalization {
			t.Errorf("expected normalization category, got %s", err.Category)
		}
		if err.Code != CodeNoDigits {
			t.Errorf("expected no_digits code, got %s", err.Code)
		}
		if err.Context["raw_text"] != "---" {
			t.Errorf("expected raw_text context, got %v", err.Context["raw_text"])
		}
		if err.Suggestion == "" {
			t.Error("expected a suggestion to be set")
		}
	})

	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/lines.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/lines.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Unwrap() != cause {
			t.Error("expected cause to be preserved")
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidDate, "invoice_date", "31-02-2024", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "invoice_date" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeInvalidConfig, "tax_rate", -0.11, nil)

		if err.GetExitCode() != 4 {
			t.Errorf("expected exit code 4, got %d", err.GetExitCode())
		}
	})
}

func TestErrorSummary(t *testing.T) {
	errs := []*ValidatorError{
		NormalizationError(CodeNoDigits, "abc", nil),
		NormalizationError(CodeMalformedGrouping, "1.23.456,78", nil),
		ValidationError(CodeInvalidDate, "invoice_date", "bad", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("expected 3 errors, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryNormalization] != 2 {
		t.Errorf("expected 2 normalization errors, got %d", summary.ByCategory[CategoryNormalization])
	}
	if !summary.HasCategory(CategoryValidation) {
		t.Error("expected validation category to be present")
	}
	if !summary.HasCode(CodeNoDigits) {
		t.Error("expected no_digits code to be present")
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", summary.GetExitCode())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Total != 0 {
		t.Errorf("expected 0 errors, got %d", summary.Total)
	}
	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestAsValidatorError(t *testing.T) {
	inner := New(CategoryParse, CodeInvalidData, "bad row")
	wrapped := Wrap(inner, CategoryInternal, CodeUnexpectedError, "outer")

	extracted, ok := AsValidatorError(wrapped)
	if !ok {
		t.Fatal("expected to extract a ValidatorError")
	}
	if extracted.Code != CodeUnexpectedError {
		t.Errorf("expected outermost error, got code %s", extracted.Code)
	}

	if _, ok := AsValidatorError(errors.New("plain")); ok {
		t.Error("plain error should not extract as ValidatorError")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	already := New(CategoryFile, CodeFileNotFound, "missing")
	if got := WrapIfNeeded(already, CategoryInternal, CodeUnexpectedError, "outer"); got != already {
		t.Error("expected existing ValidatorError to pass through unchanged")
	}

	plain := errors.New("plain")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "outer")
	if got.Category != CategoryInternal {
		t.Errorf("expected internal category, got %s", got.Category)
	}
	if got.Unwrap() != plain {
		t.Error("expected cause to be the plain error")
	}

	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "outer") != nil {
		t.Error("expected nil for nil input")
	}
}
