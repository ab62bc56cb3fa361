package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceGenerator generates paired extraction and totals CSV files that
// mimic OCR output from scanned Indonesian tax invoices
type InvoiceGenerator struct {
	Count          int
	TaxRate        decimal.Decimal
	InclusiveRatio float64
	NoiseRatio     float64
	HeaderDrift    int64
	InvoiceDate    time.Time
	Seed           int64

	rng *rand.Rand
}

// lineTemplate holds the true values of one generated line before formatting
type lineTemplate struct {
	LineNumber int
	ItemCode   string
	Desc       string
	Gross      decimal.Decimal
	Base       decimal.Decimal
	Tax        decimal.Decimal
	Inclusive  bool
	Confidence float64
}

var descriptions = []string{
	"Kertas HVS A4 80gsm",
	"Tinta Printer Hitam",
	"Jasa Pemeliharaan Server",
	"Kabel UTP Cat6 305m",
	"Lisensi Perangkat Lunak",
	"Meja Kantor Standar",
	"Kursi Ergonomis",
	"Jasa Konsultasi IT",
	"Toner Fotokopi",
	"Amplop Coklat Folio",
}

// confusions are the glyph swaps injected to simulate OCR misreads
var confusions = map[rune]rune{
	'0': 'O',
	'1': 'l',
	'5': 'S',
}

func main() {
	var (
		linesOutput    = flag.String("lines-output", "extraction.csv", "Output path for the line items CSV")
		totalsOutput   = flag.String("totals-output", "totals.csv", "Output path for the header totals CSV")
		count          = flag.Int("count", 20, "Number of invoice lines to generate")
		taxRate        = flag.String("tax-rate", "0.11", "VAT rate as a decimal fraction")
		inclusiveRatio = flag.Float64("inclusive-ratio", 0.3, "Fraction of lines where base and tax mistakenly repeat the gross")
		noiseRatio     = flag.Float64("noise-ratio", 0.1, "Fraction of lines with OCR glyph confusion injected")
		headerDrift    = flag.Int64("header-drift", 0, "Rupiah offset added to the declared gross total")
		invoiceDate    = flag.String("date", "2024-03-15", "Invoice date (YYYY-MM-DD)")
		seed           = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
	)
	flag.Parse()

	rate, err := decimal.NewFromString(*taxRate)
	if err != nil {
		log.Fatalf("Invalid tax rate: %v", err)
	}
	date, err := time.Parse("2006-01-02", *invoiceDate)
	if err != nil {
		log.Fatalf("Invalid invoice date: %v", err)
	}

	generator := &InvoiceGenerator{
		Count:          *count,
		TaxRate:        rate,
		InclusiveRatio: *inclusiveRatio,
		NoiseRatio:     *noiseRatio,
		HeaderDrift:    *headerDrift,
		InvoiceDate:    date,
		Seed:           *seed,
		rng:            rand.New(rand.NewSource(*seed)),
	}

	lines := generator.GenerateLines()

	if err := generator.WriteLinesCSV(*linesOutput, lines); err != nil {
		log.Fatalf("Failed to write lines CSV: %v", err)
	}
	if err := generator.WriteTotalsCSV(*totalsOutput, lines); err != nil {
		log.Fatalf("Failed to write totals CSV: %v", err)
	}

	fmt.Printf("Generated %d invoice lines in %s\n", len(lines), *linesOutput)
	fmt.Printf("Header totals written to %s\n", *totalsOutput)
	fmt.Printf("Tax rate: %s, inclusive ratio: %.2f, noise ratio: %.2f\n",
		rate.String(), *inclusiveRatio, *noiseRatio)
	fmt.Printf("Seed used: %d\n", *seed)
}

// GenerateLines creates the true line values before OCR-style formatting
func (g *InvoiceGenerator) GenerateLines() []lineTemplate {
	lines := make([]lineTemplate, g.Count)

	one := decimal.NewFromInt(1)
	for i := 0; i < g.Count; i++ {
		// Round rupiah bases between 10,000 and 10,000,000
		base := decimal.NewFromInt(int64(g.rng.Intn(9990)+10) * 1000)
		tax := base.Mul(g.TaxRate).Round(0)
		gross := base.Add(tax)

		line := lineTemplate{
			LineNumber: i + 1,
			ItemCode:   fmt.Sprintf("%06d", g.rng.Intn(900000)+100000),
			Desc:       descriptions[g.rng.Intn(len(descriptions))],
			Gross:      gross,
			Base:       base,
			Tax:        tax,
			Confidence: 0.85 + g.rng.Float64()*0.15,
		}

		// VAT-inclusive extraction defect: DPP and PPN repeat the gross
		if g.rng.Float64() < g.InclusiveRatio {
			line.Inclusive = true
			line.Base = gross
			line.Tax = gross.Div(one.Add(g.TaxRate)).Round(0).Mul(g.TaxRate).Round(0)
		}

		lines[i] = line
	}

	return lines
}

// WriteLinesCSV writes the extraction file with Indonesian column names and
// Indonesian amount formatting
func (g *InvoiceGenerator) WriteLinesCSV(filename string, lines []lineTemplate) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"no", "kode", "nama_barang", "jumlah", "dpp", "ppn", "confidence", "tanggal"}); err != nil {
		return err
	}

	for _, line := range lines {
		noisy := g.rng.Float64() < g.NoiseRatio
		record := []string{
			fmt.Sprintf("%d", line.LineNumber),
			line.ItemCode,
			line.Desc,
			g.formatAmount(line.Gross, noisy),
			g.formatAmount(line.Base, noisy),
			g.formatAmount(line.Tax, false),
			fmt.Sprintf("%.2f", line.Confidence),
			g.InvoiceDate.Format("02-01-2006"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// WriteTotalsCSV writes the single-row header totals file. The declared
// totals sum the true per-line values, so inclusive-defect lines reconcile
// only after correction.
func (g *InvoiceGenerator) WriteTotalsCSV(filename string, lines []lineTemplate) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	one := decimal.NewFromInt(1)
	gross, base, tax := decimal.Zero, decimal.Zero, decimal.Zero
	for _, line := range lines {
		gross = gross.Add(line.Gross)
		if line.Inclusive {
			trueBase := line.Gross.Div(one.Add(g.TaxRate)).Round(0)
			base = base.Add(trueBase)
			tax = tax.Add(trueBase.Mul(g.TaxRate).Round(0))
		} else {
			base = base.Add(line.Base)
			tax = tax.Add(line.Tax)
		}
	}
	gross = gross.Add(decimal.NewFromInt(g.HeaderDrift))

	if err := writer.Write([]string{"jumlah", "dpp", "ppn", "tanggal"}); err != nil {
		return err
	}
	record := []string{
		g.formatAmount(gross, false),
		g.formatAmount(base, false),
		g.formatAmount(tax, false),
		g.InvoiceDate.Format("02-01-2006"),
	}
	return writer.Write(record)
}

// formatAmount renders a value in Indonesian grouping, optionally injecting
// one glyph confusion the way the OCR layer does
func (g *InvoiceGenerator) formatAmount(value decimal.Decimal, noisy bool) string {
	digits := value.Round(0).String()

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	text := strings.Join(groups, ".")

	if noisy {
		runes := []rune(text)
		for attempt := 0; attempt < len(runes); attempt++ {
			pos := g.rng.Intn(len(runes))
			if swap, ok := confusions[runes[pos]]; ok {
				runes[pos] = swap
				break
			}
		}
		text = string(runes)
	}

	return text
}
