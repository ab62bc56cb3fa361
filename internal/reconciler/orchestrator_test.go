package reconciler

import (
	"context"
	"testing"
	"time"

	"invoice-validation-service/internal/models"

	"github.com/shopspring/decimal"
)

func mustOrchestrator(t *testing.T, config *OrchestratorConfig) *ValidationOrchestrator {
	t.Helper()
	vo, err := NewValidationOrchestrator(config)
	if err != nil {
		t.Fatalf("NewValidationOrchestrator() error = %v", err)
	}
	return vo
}

func cleanLine(n int) *models.RawLineItem {
	return &models.RawLineItem{
		LineNumber:    n,
		ItemCode:      "100234",
		Description:   "Kertas A4 80gsm",
		GrossText:     "1.110.000",
		BaseText:      "1.110.000",
		TaxText:       "122.100",
		RowConfidence: 1.0,
	}
}

func cleanHeader(lineCount int) *models.HeaderTotals {
	factor := decimal.NewFromInt(int64(lineCount))
	return &models.HeaderTotals{
		Gross: decimal.RequireFromString("1110000").Mul(factor),
		Base:  decimal.RequireFromString("1110000").Mul(factor),
		Tax:   decimal.RequireFromString("122100").Mul(factor),
	}
}

func TestValidateDocumentApproved(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	lines := []*models.RawLineItem{cleanLine(1), cleanLine(2), cleanLine(3)}
	verdict, err := vo.ValidateDocument(context.Background(), lines, cleanHeader(3))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if verdict.Status != models.StatusApproved {
		t.Errorf("Status = %s, want %s (verdict: %+v)", verdict.Status, models.StatusApproved, verdict)
	}
	if verdict.AggregateConfidence < 0.9 {
		t.Errorf("AggregateConfidence = %f, want >= 0.9", verdict.AggregateConfidence)
	}
	if len(verdict.Lines) != 3 {
		t.Errorf("Lines = %d, want 3", len(verdict.Lines))
	}
	if verdict.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("verdict must carry a run ID")
	}
	if verdict.ProcessedAt.IsZero() {
		t.Error("verdict must carry a processing timestamp")
	}
}

func TestValidateDocumentRejectedOnUnparseableAmount(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	broken := cleanLine(2)
	broken.GrossText = "###"

	lines := []*models.RawLineItem{cleanLine(1), broken, cleanLine(3)}
	verdict, err := vo.ValidateDocument(context.Background(), lines, cleanHeader(3))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	// One bad line rejects the whole document, regardless of the rest
	if verdict.Status != models.StatusRejected {
		t.Errorf("Status = %s, want %s", verdict.Status, models.StatusRejected)
	}
	if len(verdict.SuggestedActions) == 0 {
		t.Error("rejection must carry suggested actions")
	}
}

func TestValidateDocumentNeedsReviewOnWarning(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	placeholder := cleanLine(1)
	placeholder.ItemCode = "000000"

	lines := []*models.RawLineItem{placeholder, cleanLine(2)}
	verdict, err := vo.ValidateDocument(context.Background(), lines, cleanHeader(2))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if verdict.Status != models.StatusNeedsReview {
		t.Errorf("Status = %s, want %s", verdict.Status, models.StatusNeedsReview)
	}
}

func TestValidateDocumentNeedsReviewOnReconciliationGap(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	lines := []*models.RawLineItem{cleanLine(1), cleanLine(2)}
	header := cleanHeader(2)
	header.Gross = header.Gross.Add(decimal.NewFromInt(500000))

	verdict, err := vo.ValidateDocument(context.Background(), lines, header)
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if verdict.Status != models.StatusNeedsReview {
		t.Errorf("Status = %s, want %s", verdict.Status, models.StatusNeedsReview)
	}
	if verdict.Reconciliation.Gross.WithinTolerance {
		t.Error("gross must be out of tolerance")
	}
	if len(verdict.SuggestedActions) == 0 {
		t.Error("out-of-tolerance verdict must carry suggested actions")
	}
}

func TestValidateDocumentInclusiveCorrectionApproves(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	// Base column carries near-inclusive values; after correction the sums
	// reconcile under the recomputed tolerance.
	inclusive := &models.RawLineItem{
		LineNumber:    1,
		ItemCode:      "100234",
		GrossText:     "1.232.100,00",
		BaseText:      "1.111.000,00",
		TaxText:       "121.100,00",
		RowConfidence: 1.0,
	}
	header := &models.HeaderTotals{
		Gross: decimal.RequireFromString("1232100"),
		Base:  decimal.RequireFromString("1110000"),
		Tax:   decimal.RequireFromString("122100"),
	}

	verdict, err := vo.ValidateDocument(context.Background(), []*models.RawLineItem{inclusive}, header)
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if verdict.Status != models.StatusApproved {
		t.Errorf("Status = %s, want %s (actions: %v)",
			verdict.Status, models.StatusApproved, verdict.SuggestedActions)
	}
	if !verdict.Reconciliation.Base.RecomputedTolerance {
		t.Error("corrected base must reconcile under the recomputed tolerance")
	}
	if verdict.AggregateConfidence <= 0.9 {
		t.Errorf("AggregateConfidence = %f, want > 0.9", verdict.AggregateConfidence)
	}
}

func TestValidateDocumentCallerMisuse(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())
	ctx := context.Background()

	if _, err := vo.ValidateDocument(ctx, []*models.RawLineItem{cleanLine(1)}, nil); err == nil {
		t.Error("nil header must error")
	}

	if _, err := vo.ValidateDocument(ctx, nil, cleanHeader(1)); err == nil {
		t.Error("empty line list must error")
	}

	bad := cleanLine(1)
	bad.RowConfidence = 2.0
	if _, err := vo.ValidateDocument(ctx, []*models.RawLineItem{bad}, cleanHeader(1)); err == nil {
		t.Error("malformed line record must error")
	}

	negative := cleanHeader(1)
	negative.Gross = decimal.NewFromInt(-1)
	if _, err := vo.ValidateDocument(ctx, []*models.RawLineItem{cleanLine(1)}, negative); err == nil {
		t.Error("negative header total must error")
	}
}

func TestValidateDocumentCancellation(t *testing.T) {
	config := DefaultOrchestratorConfig()
	config.WorkerCount = 1
	vo := mustOrchestrator(t, config)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines := make([]*models.RawLineItem, 64)
	for i := range lines {
		lines[i] = cleanLine(i + 1)
	}

	if _, err := vo.ValidateDocument(ctx, lines, cleanHeader(64)); err == nil {
		t.Error("cancelled context must abort validation with an error")
	}
}

func TestValidateDocumentConfidenceBounded(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())

	noisy := cleanLine(1)
	noisy.ItemCode = ""
	noisy.RowConfidence = 0.4

	verdict, err := vo.ValidateDocument(context.Background(),
		[]*models.RawLineItem{noisy, cleanLine(2)}, cleanHeader(2))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if verdict.AggregateConfidence < 0.0 || verdict.AggregateConfidence > 1.0 {
		t.Errorf("AggregateConfidence %f outside [0, 1]", verdict.AggregateConfidence)
	}
	for _, line := range verdict.Lines {
		if line.Confidence < 0.0 || line.Confidence > 1.0 {
			t.Errorf("line %d confidence %f outside [0, 1]", line.LineNumber, line.Confidence)
		}
	}
}

func TestValidateDocumentRunsAreIndependent(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig())
	ctx := context.Background()

	lines := []*models.RawLineItem{cleanLine(1)}
	header := cleanHeader(1)

	first, err := vo.ValidateDocument(ctx, lines, header)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	second, err := vo.ValidateDocument(ctx, lines, header)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if first.RunID == second.RunID {
		t.Error("each run must mint its own run ID")
	}
	if first.Status != second.Status || first.AggregateConfidence != second.AggregateConfidence {
		t.Error("identical input must yield identical verdict content")
	}
}

func TestStaticRateCache(t *testing.T) {
	cache := IndonesianRateCache()

	tests := []struct {
		date string
		want string
	}{
		{"2021-06-15", "0.1"},
		{"2022-04-01", "0.11"},
		{"2024-06-15", "0.11"},
		{"2025-03-01", "0.12"},
	}

	for _, tt := range tests {
		date, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatal(err)
		}
		rate, ok := cache.Rate(date)
		if !ok {
			t.Fatalf("no rate for %s", tt.date)
		}
		if rate.String() != tt.want {
			t.Errorf("rate(%s) = %s, want %s", tt.date, rate.String(), tt.want)
		}
	}

	before, err := time.Parse("2006-01-02", "2005-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Rate(before); ok {
		t.Error("dates before the schedule must report no rate")
	}
}

func TestOrchestratorUsesHistoricalRate(t *testing.T) {
	vo := mustOrchestrator(t, DefaultOrchestratorConfig()).WithRateCache(IndonesianRateCache())

	// A 2021 invoice under the 10% regime: gross carries the inclusive
	// value of the declared base.
	line := &models.RawLineItem{
		LineNumber:    1,
		ItemCode:      "100234",
		GrossText:     "1.100.000",
		BaseText:      "1.000.000",
		TaxText:       "100.000",
		RowConfidence: 1.0,
	}
	header := &models.HeaderTotals{
		Gross:       decimal.RequireFromString("1100000"),
		Base:        decimal.RequireFromString("1000000"),
		Tax:         decimal.RequireFromString("100000"),
		InvoiceDate: "15-06-2021",
	}

	verdict, err := vo.ValidateDocument(context.Background(), []*models.RawLineItem{line}, header)
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	// Under the 11% rate the gross/base relation would be ambiguous; with
	// the historical 10% rate the inclusive hypothesis matches exactly.
	if verdict.Status == models.StatusRejected {
		t.Errorf("historical-rate document must not be rejected: %+v", verdict)
	}
	if !verdict.Reconciliation.Base.RecomputedTolerance {
		t.Error("inclusive correction under the historical rate should recompute base")
	}
}
