package parsers

import (
	"fmt"
	"io"
	"strconv"

	"invoice-validation-service/internal/models"
	"invoice-validation-service/pkg/errors"
	"invoice-validation-service/pkg/logger"
)

// lineItemAliases maps logical fields to the header names seen across
// extractor versions and invoice templates
var lineItemAliases = map[string][]string{
	"line_number": {"line_number", "line", "no", "nomor"},
	"item_code":   {"item_code", "code", "kode", "kode_barang"},
	"description": {"description", "desc", "nama_barang", "uraian"},
	"gross":       {"gross", "gross_amount", "jumlah", "total"},
	"base":        {"base", "tax_base", "dpp"},
	"tax":         {"tax", "tax_amount", "ppn"},
	"confidence":  {"confidence", "ocr_confidence", "row_confidence"},
	"date":        {"date", "invoice_date", "tanggal"},
}

var lineItemRequired = []string{"item_code", "gross", "base", "tax"}

// LineItemParser reads extracted invoice rows from a CSV file
type LineItemParser struct {
	*baseParser
}

// NewLineItemParser creates a line item parser with the given configuration
func NewLineItemParser(config *ParseConfig) *LineItemParser {
	return &LineItemParser{baseParser: newBaseParser(config, "lineitem_parser")}
}

// ParseFile reads every extracted row from the file. Rows with structural
// defects are recorded in the stats and skipped; the remaining rows are
// returned in file order. Amount text is passed through raw for the
// normalizer to interpret.
func (p *LineItemParser) ParseFile(filePath string) ([]*models.RawLineItem, *ParseStats, error) {
	file, reader, err := p.open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	columns, err := p.resolveColumns(reader, filePath, lineItemAliases, lineItemRequired)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{TotalLines: 1}
	var items []*models.RawLineItem
	lineNumber := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNumber++
		stats.TotalLines++

		if err != nil {
			stats.AddError(errors.NewRowParseError(errors.CodeInvalidFormat, &errors.ParseContext{
				File:   filePath,
				Row:    lineNumber,
				Column: "record",
			}, err))
			continue
		}
		if p.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		stats.RecordsParsed++

		item, rowErr := p.parseRow(columns, record, filePath, lineNumber, len(items)+1)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}

		stats.RecordsValid++
		items = append(items, item)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"stats":     stats.String(),
	}).Info("Parsed line item file")

	return items, stats, nil
}

// parseRow builds one RawLineItem from a CSV record. defaultLine numbers
// rows sequentially when the extractor omitted the line number column.
func (p *LineItemParser) parseRow(columns *columnMap, record []string, filePath string, fileLine, defaultLine int) (*models.RawLineItem, *errors.RowParseError) {
	item := &models.RawLineItem{
		LineNumber:    defaultLine,
		ItemCode:      columns.value(record, "item_code"),
		Description:   columns.value(record, "description"),
		GrossText:     columns.value(record, "gross"),
		BaseText:      columns.value(record, "base"),
		TaxText:       columns.value(record, "tax"),
		InvoiceDate:   columns.value(record, "date"),
		RowConfidence: 1.0,
	}

	if raw := columns.value(record, "line_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, errors.NewRowParseError(errors.CodeInvalidData, &errors.ParseContext{
				File:     filePath,
				Row:      fileLine,
				Column:   "line_number",
				Value:    raw,
				Expected: "positive integer",
			}, fmt.Errorf("line number must be a positive integer")).WithExamples("1", "2", "15")
		}
		item.LineNumber = n
	}

	if raw := columns.value(record, "confidence"); raw != "" {
		c, err := strconv.ParseFloat(raw, 64)
		if err != nil || c < 0.0 || c > 1.0 {
			return nil, errors.NewRowParseError(errors.CodeInvalidData, &errors.ParseContext{
				File:     filePath,
				Row:      fileLine,
				Column:   "confidence",
				Value:    raw,
				Expected: "number between 0.0 and 1.0",
			}, fmt.Errorf("confidence must be a number between 0.0 and 1.0")).WithExamples("0.95", "1.0")
		}
		item.RowConfidence = c
	} else if columns.has("confidence") {
		// Column present but cell empty: the extractor failed to score the
		// row, which is not the same as full confidence
		return nil, errors.NewRowParseError(errors.CodeInvalidData, &errors.ParseContext{
			File:     filePath,
			Row:      fileLine,
			Column:   "confidence",
			Expected: "number between 0.0 and 1.0",
		}, fmt.Errorf("confidence cell is empty"))
	}

	return item, nil
}
