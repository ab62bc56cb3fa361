package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoice-validation-service/internal/models"
	"invoice-validation-service/internal/validator"
	"invoice-validation-service/pkg/errors"
	"invoice-validation-service/pkg/logger"

	"github.com/google/uuid"
)

// ValidationOrchestrator runs the full document validation pipeline: per-line
// validation fanned out across workers, summation reconciliation, and verdict
// derivation. It is the only component exposed to the surrounding workflow
// layer.
type ValidationOrchestrator struct {
	config        *OrchestratorConfig
	lineValidator *validator.LineValidator
	summation     *SummationReconciler
	rates         RateCache
	logger        logger.Logger
}

// NewValidationOrchestrator creates an orchestrator with the specified
// configuration
func NewValidationOrchestrator(config *OrchestratorConfig) (*ValidationOrchestrator, error) {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "orchestrator", nil, err)
	}

	lineValidator, err := validator.NewLineValidator(config.Validator)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "validator", nil, err)
	}

	summation, err := NewSummationReconciler(config.Reconciler)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}

	return &ValidationOrchestrator{
		config:        config,
		lineValidator: lineValidator,
		summation:     summation,
		logger:        logger.GetGlobalLogger().WithComponent("orchestrator"),
	}, nil
}

// WithRateCache attaches a caller-scoped VAT rate cache. When present and
// the header carries a parseable invoice date, the rate in force on that
// date replaces the configured tax rate for the whole run.
func (vo *ValidationOrchestrator) WithRateCache(rates RateCache) *ValidationOrchestrator {
	vo.rates = rates
	return vo
}

// ValidateDocument validates every line, reconciles sums against the header,
// and merges everything into one immutable DocumentVerdict.
//
// The error return is reserved for caller misuse: nil header, empty line
// list, or malformed line records. Bad OCR data inside well-formed records
// degrades the verdict, it never fails the call.
func (vo *ValidationOrchestrator) ValidateDocument(ctx context.Context, lines []*models.RawLineItem, header *models.HeaderTotals) (*models.DocumentVerdict, error) {
	if header == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "validate document: header totals are required", nil)
	}
	if err := header.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidAmount, "header_totals", header.String(), err)
	}
	if len(lines) == 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "lines", 0, nil)
	}
	for _, line := range lines {
		if line == nil {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "validate document: nil line item", nil)
		}
		if err := line.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeOutOfRange, "line_item", line.String(), err)
		}
	}

	lineValidator, err := vo.resolveLineValidator(header)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vo.logger.WithFields(logger.Fields{
		"lines": len(lines),
	}).Info("Starting document validation")

	results, err := vo.validateLines(ctx, lineValidator, lines)
	if err != nil {
		return nil, err
	}

	report := vo.summation.ReconcileTotals(results, header)

	verdict := &models.DocumentVerdict{
		RunID:               uuid.New(),
		Status:              vo.deriveStatus(results, report),
		AggregateConfidence: vo.aggregateConfidence(results, report),
		Lines:               results,
		Reconciliation:      report,
		SuggestedActions:    vo.collectActions(results, report),
		ProcessedAt:         time.Now().UTC(),
	}

	vo.logger.WithFields(logger.Fields{
		"run_id":     verdict.RunID.String(),
		"status":     verdict.Status.String(),
		"confidence": verdict.AggregateConfidence,
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("Document validation completed")

	return verdict, nil
}

// resolveLineValidator swaps the configured tax rate for the rate in force
// on the header invoice date when a rate cache is attached
func (vo *ValidationOrchestrator) resolveLineValidator(header *models.HeaderTotals) (*validator.LineValidator, error) {
	if vo.rates == nil || header.InvoiceDate == "" {
		return vo.lineValidator, nil
	}

	date, err := models.ParseInvoiceDate(header.InvoiceDate)
	if err != nil {
		// Date validation reports this on the line level; rate resolution
		// just falls back to the configured rate.
		return vo.lineValidator, nil
	}

	rate, ok := vo.rates.Rate(date)
	if !ok || rate.Equal(vo.config.Validator.TaxRate) {
		return vo.lineValidator, nil
	}

	vo.logger.WithFields(logger.Fields{
		"invoice_date": date.Format("2006-01-02"),
		"rate":         rate.String(),
	}).Info("Using historical VAT rate for invoice date")

	resolved := vo.config.Validator.Clone()
	resolved.TaxRate = rate
	lineValidator, err := validator.NewLineValidator(resolved)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "tax_rate", rate.String(), err)
	}
	return lineValidator, nil
}

// validateLines fans per-line validation out across the worker pool. Lines
// are independent, so order of execution does not matter; results keep the
// input order.
func (vo *ValidationOrchestrator) validateLines(ctx context.Context, lineValidator *validator.LineValidator, lines []*models.RawLineItem) ([]*models.LineValidation, error) {
	results := make([]*models.LineValidation, len(lines))

	workers := vo.config.WorkerCount
	if workers > len(lines) {
		workers = len(lines)
	}

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "line_validation",
		Total:     int64(len(lines)),
		Logger:    vo.logger,
	})
	defer tracker.Complete()

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = lineValidator.ValidateLine(lines[idx])
				tracker.Increment()
			}
		}()
	}

	for i := range lines {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, errors.InternalError(errors.CodeProcessingError, "line validation cancelled", ctx.Err())
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// deriveStatus applies the status priority order: Rejected on any blocking
// line error, NeedsReview on reconciliation failure, low aggregate
// confidence, or any warning, Approved otherwise.
func (vo *ValidationOrchestrator) deriveStatus(lines []*models.LineValidation, report *models.ReconciliationReport) models.DocumentStatus {
	for _, line := range lines {
		if line.HasBlockingError() {
			return models.StatusRejected
		}
	}

	if !report.AllWithinTolerance() {
		return models.StatusNeedsReview
	}
	if vo.aggregateConfidence(lines, report) < vo.config.AutoApproveThreshold {
		return models.StatusNeedsReview
	}
	for _, line := range lines {
		if line.HasWarning() {
			return models.StatusNeedsReview
		}
	}

	return models.StatusApproved
}

// aggregateConfidence is the minimum over all line confidences and all
// reconciliation closeness scores: the document is only as trustworthy as
// its weakest evidence.
func (vo *ValidationOrchestrator) aggregateConfidence(lines []*models.LineValidation, report *models.ReconciliationReport) float64 {
	confidence := 1.0
	for _, line := range lines {
		if line.Confidence < confidence {
			confidence = line.Confidence
		}
	}
	for _, field := range report.Fields() {
		if field.Closeness < confidence {
			confidence = field.Closeness
		}
	}
	return models.ClampConfidence(confidence)
}

// collectActions merges reconciliation suggestions with per-line pointers
// for blocking defects
func (vo *ValidationOrchestrator) collectActions(lines []*models.LineValidation, report *models.ReconciliationReport) []string {
	actions := append([]string(nil), report.SuggestedActions...)

	for _, line := range lines {
		for _, issue := range line.Issues {
			if issue.IsBlocking() {
				actions = append(actions,
					fmt.Sprintf("resolve %s on line %d: %s", issue.Field, line.LineNumber, issue.Message))
			}
		}
	}

	return actions
}
