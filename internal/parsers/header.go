package parsers

import (
	"fmt"
	"io"

	"invoice-validation-service/internal/models"
	"invoice-validation-service/internal/normalizer"
	"invoice-validation-service/pkg/errors"
	"invoice-validation-service/pkg/logger"
)

// headerAliases maps logical header-total fields to accepted column names
var headerAliases = map[string][]string{
	"gross": {"gross", "gross_total", "jumlah", "total"},
	"base":  {"base", "base_total", "dpp", "dpp_total"},
	"tax":   {"tax", "tax_total", "ppn", "ppn_total"},
	"date":  {"date", "invoice_date", "tanggal"},
}

var headerRequired = []string{"gross", "base", "tax"}

// HeaderParser reads the single-row header totals file. Unlike line amounts,
// header totals must normalize here: a document whose declared totals cannot
// be read has nothing to reconcile against, so this is a file-level failure
// rather than a per-line issue.
type HeaderParser struct {
	*baseParser
	normalizer *normalizer.Normalizer
}

// NewHeaderParser creates a header parser with the given configurations
func NewHeaderParser(config *ParseConfig, normalizerConfig *normalizer.Config) *HeaderParser {
	return &HeaderParser{
		baseParser: newBaseParser(config, "header_parser"),
		normalizer: normalizer.NewNormalizer(normalizerConfig),
	}
}

// ParseFile reads the header totals from the first data row of the file
func (p *HeaderParser) ParseFile(filePath string) (*models.HeaderTotals, error) {
	file, reader, err := p.open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	columns, err := p.resolveColumns(reader, filePath, headerAliases, headerRequired)
	if err != nil {
		return nil, err
	}

	record, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 2, "totals", "",
			fmt.Errorf("no data row after header")).
			WithSuggestion("Ensure the totals file contains one data row")
	}
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 2, "totals", "", err)
	}

	header := &models.HeaderTotals{
		InvoiceDate: columns.value(record, "date"),
	}

	for _, field := range headerRequired {
		raw := columns.value(record, field)
		normalized, err := p.normalizer.Normalize(raw)
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidData, filePath, 2, field, raw, err).
				WithSuggestion("Header totals must be readable numbers; re-scan the totals block")
		}
		switch field {
		case "gross":
			header.Gross = normalized.Value
		case "base":
			header.Base = normalized.Value
		case "tax":
			header.Tax = normalized.Value
		}
	}

	if err := header.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidAmount, "header_totals", header.String(), err)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"totals":    header.String(),
	}).Info("Parsed header totals")

	return header, nil
}
