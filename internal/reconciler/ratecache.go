package reconciler

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RateCache resolves the VAT rate in force on a given date. The Indonesian
// rate changed from 10% to 11% in April 2022 and to 12% in January 2025, so
// older invoices must not be validated against the current rate.
//
// The cache is supplied by the caller and scoped by the caller; the engine
// holds no module-level rate state, keeping validation runs independent.
type RateCache interface {
	// Rate returns the VAT rate for the given date and whether it was found
	Rate(date time.Time) (decimal.Decimal, bool)
}

// StaticRateCache resolves rates from a fixed schedule of effective dates.
// Safe for concurrent use.
type StaticRateCache struct {
	mu       sync.RWMutex
	schedule []rateEntry
}

type rateEntry struct {
	effective time.Time
	rate      decimal.Decimal
}

// NewStaticRateCache creates an empty rate schedule
func NewStaticRateCache() *StaticRateCache {
	return &StaticRateCache{}
}

// IndonesianRateCache returns the published PPN rate schedule
func IndonesianRateCache() *StaticRateCache {
	cache := NewStaticRateCache()
	cache.Add(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("0.10"))
	cache.Add(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("0.11"))
	cache.Add(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("0.12"))
	return cache
}

// Add registers a rate effective from the given date onward
func (c *StaticRateCache) Add(effective time.Time, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Keep the schedule ordered by effective date
	inserted := false
	for i, entry := range c.schedule {
		if effective.Before(entry.effective) {
			c.schedule = append(c.schedule[:i], append([]rateEntry{{effective, rate}}, c.schedule[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		c.schedule = append(c.schedule, rateEntry{effective, rate})
	}
}

// Rate returns the most recent rate effective on or before the given date
func (c *StaticRateCache) Rate(date time.Time) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found decimal.Decimal
	ok := false
	for _, entry := range c.schedule {
		if entry.effective.After(date) {
			break
		}
		found = entry.rate
		ok = true
	}
	return found, ok
}
