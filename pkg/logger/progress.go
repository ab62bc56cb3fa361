package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks progress of long-running validation operations,
// such as validating every line of a large multi-page invoice batch.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.RWMutex
}

// ProgressConfig configures progress tracking behavior
type ProgressConfig struct {
	Operation   string        `json:"operation"`
	Total       int64         `json:"total"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      config.Logger.WithComponent("progress"),
		operation:   config.Operation,
		total:       config.Total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: config.LogInterval,
	}

	tracker.logger.WithFields(Fields{
		"operation": config.Operation,
		"total":     config.Total,
	}).Info("Starting operation")

	return tracker
}

// Increment advances the tracker by one processed item and logs progress
// when the configured interval has elapsed.
func (pt *ProgressTracker) Increment() {
	pt.Add(1)
}

// Add advances the tracker by n processed items.
func (pt *ProgressTracker) Add(n int64) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.current += n

	now := time.Now()
	if now.Sub(pt.lastLogTime) < pt.logInterval && pt.current < pt.total {
		return
	}
	pt.lastLogTime = now

	elapsed := now.Sub(pt.startTime)
	fields := Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"total":     pt.total,
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}

	if pt.total > 0 {
		percent := float64(pt.current) / float64(pt.total) * 100
		fields["percent"] = fmt.Sprintf("%.1f%%", percent)
	}

	pt.logger.WithFields(fields).Info("Operation progress")
}

// Complete marks the operation finished and logs the final timing.
func (pt *ProgressTracker) Complete() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	elapsed := time.Since(pt.startTime)
	pt.logger.WithFields(Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}).Info("Operation completed")
}

// Current returns the number of processed items so far.
func (pt *ProgressTracker) Current() int64 {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()
	return pt.current
}
