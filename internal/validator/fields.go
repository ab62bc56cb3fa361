package validator

import (
	"fmt"
	"regexp"
	"time"

	"invoice-validation-service/internal/models"
)

// FieldValidator runs the independent per-field plausibility checks. It is
// stateless beyond its configuration and safe for concurrent use.
type FieldValidator struct {
	config      *Config
	codePattern *regexp.Regexp
	digitsOnly  *regexp.Regexp
}

// NewFieldValidator creates a field validator with the specified configuration
func NewFieldValidator(config *Config) (*FieldValidator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pattern, err := regexp.Compile(config.ItemCode.Pattern)
	if err != nil {
		return nil, err
	}

	return &FieldValidator{
		config:      config,
		codePattern: pattern,
		digitsOnly:  regexp.MustCompile(`^[0-9]+$`),
	}, nil
}

// ValidateItemCode checks an item code for the known extraction failure
// shapes: missing codes, the all-zero unreadable-cell placeholder, and codes
// matching neither the numeric nor the alphanumeric catalog format.
func (fv *FieldValidator) ValidateItemCode(code string) models.FieldCheck {
	if code == "" {
		return models.FieldCheck{
			Field:      "item_code",
			Severity:   models.SeverityWarning,
			Message:    "item code is missing",
			Multiplier: fv.config.ItemCode.MissingMultiplier,
		}
	}

	if isAllZeros(code) {
		return models.FieldCheck{
			Field:      "item_code",
			Severity:   models.SeverityWarning,
			Message:    fmt.Sprintf("item code %q is an all-zero placeholder", code),
			Multiplier: fv.config.ItemCode.AllZeroMultiplier,
		}
	}

	if fv.digitsOnly.MatchString(code) {
		if len(code) >= fv.config.ItemCode.MinDigits && len(code) <= fv.config.ItemCode.MaxDigits {
			return models.FieldCheck{
				Field:      "item_code",
				Severity:   models.SeverityInfo,
				Message:    "numeric item code accepted",
				Multiplier: 1.0,
			}
		}
		return models.FieldCheck{
			Field:    "item_code",
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("numeric item code %q has %d digits, expected %d to %d",
				code, len(code), fv.config.ItemCode.MinDigits, fv.config.ItemCode.MaxDigits),
			Multiplier: fv.config.ItemCode.UnrecognizedMultiplier,
		}
	}

	if fv.codePattern.MatchString(code) {
		return models.FieldCheck{
			Field:      "item_code",
			Severity:   models.SeverityInfo,
			Message:    "alphanumeric item code accepted",
			Multiplier: 1.0,
		}
	}

	return models.FieldCheck{
		Field:      "item_code",
		Severity:   models.SeverityWarning,
		Message:    fmt.Sprintf("item code %q matches no accepted format", code),
		Multiplier: fv.config.ItemCode.UnrecognizedMultiplier,
	}
}

// ValidateInvoiceDate parses and checks an invoice date against processing
// time and, when configured, the expected fiscal period. Out-of-period dates
// are Error severity only when the period is closed for posting.
func (fv *FieldValidator) ValidateInvoiceDate(raw string, now time.Time) models.FieldCheck {
	date, err := models.ParseInvoiceDate(raw)
	if err != nil {
		return models.FieldCheck{
			Field:      "invoice_date",
			Severity:   models.SeverityError,
			Message:    fmt.Sprintf("invoice date %q does not parse in any known layout", raw),
			Multiplier: 0.0,
		}
	}

	if date.After(now) {
		return models.FieldCheck{
			Field:      "invoice_date",
			Severity:   models.SeverityError,
			Message:    fmt.Sprintf("invoice date %s is in the future", date.Format("2006-01-02")),
			Multiplier: 0.0,
		}
	}

	if fv.config.Date.PeriodStart != nil {
		start := *fv.config.Date.PeriodStart
		end := *fv.config.Date.PeriodEnd
		if date.Before(start) || date.After(end) {
			severity := models.SeverityWarning
			multiplier := fv.config.Date.OutOfPeriodMultiplier
			if fv.config.Date.PeriodClosed {
				severity = models.SeverityError
				multiplier = 0.0
			}
			return models.FieldCheck{
				Field:    "invoice_date",
				Severity: severity,
				Message: fmt.Sprintf("invoice date %s outside fiscal period %s to %s",
					date.Format("2006-01-02"), start.Format("2006-01-02"), end.Format("2006-01-02")),
				Multiplier: multiplier,
			}
		}
	}

	cutoff := now.AddDate(-fv.config.Date.OldDateYears, 0, 0)
	if date.Before(cutoff) {
		return models.FieldCheck{
			Field:    "invoice_date",
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("invoice date %s is more than %d years old",
				date.Format("2006-01-02"), fv.config.Date.OldDateYears),
			Multiplier: fv.config.Date.OldDateMultiplier,
		}
	}

	return models.FieldCheck{
		Field:      "invoice_date",
		Severity:   models.SeverityInfo,
		Message:    "invoice date accepted",
		Multiplier: 1.0,
	}
}

func isAllZeros(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return len(s) > 0
}
