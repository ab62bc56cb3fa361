package reconciler

import (
	"strings"
	"testing"

	"invoice-validation-service/internal/models"

	"github.com/shopspring/decimal"
)

func mustSummation(t *testing.T, config *Config) *SummationReconciler {
	t.Helper()
	sr, err := NewSummationReconciler(config)
	if err != nil {
		t.Fatalf("NewSummationReconciler() error = %v", err)
	}
	return sr
}

func resolvedLine(lineNumber int, gross, base, tax string) *models.LineValidation {
	return &models.LineValidation{
		LineNumber: lineNumber,
		Amounts: models.ResolvedAmounts{
			Gross: models.AmountField{Value: decimal.RequireFromString(gross), Resolved: true},
			Base:  models.AmountField{Value: decimal.RequireFromString(base), Resolved: true},
			Tax:   models.AmountField{Value: decimal.RequireFromString(tax), Resolved: true},
		},
		Confidence: 1.0,
	}
}

func TestReconcileTotalsWithinTolerance(t *testing.T) {
	config := DefaultConfig()
	config.ExtractedAbsoluteTolerance = decimal.NewFromInt(10000)
	sr := mustSummation(t, config)

	lines := []*models.LineValidation{
		resolvedLine(1, "495000", "450000", "49500"),
		resolvedLine(2, "495000", "450000", "49500"),
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1000000"),
		Base:  decimal.RequireFromString("900000"),
		Tax:   decimal.RequireFromString("99000"),
	}

	report := sr.ReconcileTotals(lines, header)

	if !report.Gross.WithinTolerance {
		t.Errorf("gross diff 10000 should be within tolerance 10000: %+v", report.Gross)
	}
	if !report.AllWithinTolerance() {
		t.Errorf("all fields should reconcile: %+v", report)
	}
	if len(report.SuggestedActions) != 0 {
		t.Errorf("no actions expected, got %v", report.SuggestedActions)
	}

	if report.Gross.AbsoluteDiff.String() != "10000" {
		t.Errorf("gross AbsoluteDiff = %s, want 10000", report.Gross.AbsoluteDiff.String())
	}
	if report.Gross.PercentDiff != 0.01 {
		t.Errorf("gross PercentDiff = %f, want 0.01", report.Gross.PercentDiff)
	}
}

func TestReconcileTotalsOutOfTolerance(t *testing.T) {
	config := DefaultConfig()
	config.ExtractedAbsoluteTolerance = decimal.NewFromInt(10000)
	config.ExtractedPercentTolerance = decimal.Zero
	sr := mustSummation(t, config)

	// Line 2 carries the bulk of the 50,000 shortfall
	lines := []*models.LineValidation{
		resolvedLine(1, "500000", "450000", "49500"),
		resolvedLine(2, "450000", "405000", "44550"),
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1000000"),
		Base:  decimal.RequireFromString("900000"),
		Tax:   decimal.RequireFromString("99000"),
	}

	report := sr.ReconcileTotals(lines, header)

	if report.Gross.WithinTolerance {
		t.Errorf("gross diff 50000 should exceed tolerance 10000: %+v", report.Gross)
	}
	if len(report.SuggestedActions) == 0 {
		t.Fatal("out-of-tolerance field must produce a suggested action")
	}
	found := false
	for _, action := range report.SuggestedActions {
		if strings.Contains(action, "line 2") {
			found = true
		}
	}
	if !found {
		t.Errorf("suggested action should name the largest-deviation line 2: %v",
			report.SuggestedActions)
	}
}

func TestReconcileTolerancesSelectRecomputed(t *testing.T) {
	sr := mustSummation(t, DefaultConfig())

	lines := []*models.LineValidation{
		resolvedLine(1, "1110000", "1000000", "110000"),
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1110000"),
		Base:  decimal.RequireFromString("1000000"),
		Tax:   decimal.RequireFromString("110000"),
	}

	extracted := sr.ReconcileTotals(lines, header)
	if extracted.Base.RecomputedTolerance {
		t.Error("no recomputed line, base must use extracted tolerance")
	}

	lines[0].Amounts.Base.Recomputed = true
	recomputed := sr.ReconcileTotals(lines, header)
	if !recomputed.Base.RecomputedTolerance {
		t.Error("recomputed line must select the recomputed tolerance")
	}
	if recomputed.Gross.RecomputedTolerance {
		t.Error("gross without recomputed lines keeps the extracted tolerance")
	}
}

func TestReconcileToleranceMonotonicity(t *testing.T) {
	sr := mustSummation(t, DefaultConfig())

	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1110000"),
		Base:  decimal.RequireFromString("1000000"),
		Tax:   decimal.RequireFromString("110000"),
	}

	for _, lineCount := range []int{1, 3, 10, 100} {
		lines := make([]*models.LineValidation, lineCount)
		for i := range lines {
			lines[i] = resolvedLine(i+1, "1110000", "1000000", "110000")
		}

		plain := sr.ReconcileTotals(lines, header).Base.Tolerance

		for i := range lines {
			lines[i].Amounts.Base.Recomputed = true
		}
		widened := sr.ReconcileTotals(lines, header).Base.Tolerance

		if widened.LessThan(plain) {
			t.Errorf("%d lines: recomputed tolerance %s narrower than extracted %s",
				lineCount, widened.String(), plain.String())
		}
	}
}

func TestReconcilePercentToleranceWins(t *testing.T) {
	sr := mustSummation(t, DefaultConfig())

	// 0.5% of 10,000,000 = 50,000 beats the 1,000 absolute floor
	lines := []*models.LineValidation{
		resolvedLine(1, "9970000", "9000000", "990000"),
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("10000000"),
		Base:  decimal.RequireFromString("9000000"),
		Tax:   decimal.RequireFromString("990000"),
	}

	report := sr.ReconcileTotals(lines, header)
	if !report.Gross.WithinTolerance {
		t.Errorf("diff 30000 should fit the percentage tolerance 50000: %+v", report.Gross)
	}
	if report.Gross.Tolerance.String() != "50000" {
		t.Errorf("tolerance = %s, want 50000", report.Gross.Tolerance.String())
	}
}

func TestReconcileExcludesUnresolvedFields(t *testing.T) {
	sr := mustSummation(t, DefaultConfig())

	broken := resolvedLine(1, "500000", "450000", "49500")
	broken.Amounts.Gross.Resolved = false

	lines := []*models.LineValidation{
		broken,
		resolvedLine(2, "500000", "450000", "49500"),
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1000000"),
		Base:  decimal.RequireFromString("900000"),
		Tax:   decimal.RequireFromString("99000"),
	}

	report := sr.ReconcileTotals(lines, header)

	if report.Gross.LineSum.String() != "500000" {
		t.Errorf("unresolved gross must be excluded from the sum: got %s",
			report.Gross.LineSum.String())
	}
	if report.Gross.WithinTolerance {
		t.Error("missing half the gross must be out of tolerance")
	}
	found := false
	for _, action := range report.SuggestedActions {
		if strings.Contains(action, "line 1") {
			found = true
		}
	}
	if !found {
		t.Errorf("unresolved line should be named first suspect: %v", report.SuggestedActions)
	}
}

func TestClosenessScoring(t *testing.T) {
	sr := mustSummation(t, DefaultConfig())
	tolerance := decimal.NewFromInt(1000)

	exact := sr.closeness(decimal.Zero, tolerance)
	if exact != 1.0 {
		t.Errorf("exact match closeness = %f, want 1.0", exact)
	}

	atEdge := sr.closeness(decimal.NewFromInt(1000), tolerance)
	if atEdge != DefaultConfig().MinCloseness {
		t.Errorf("edge closeness = %f, want %f", atEdge, DefaultConfig().MinCloseness)
	}

	beyond := sr.closeness(decimal.NewFromInt(2000), tolerance)
	if beyond >= atEdge {
		t.Errorf("beyond-tolerance closeness %f must fall below edge %f", beyond, atEdge)
	}
	if beyond <= 0.0 {
		t.Errorf("closeness must stay positive for finite diffs: %f", beyond)
	}
}
