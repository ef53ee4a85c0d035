// Package telemetry records daily usage counters. Writes are fire-and-forget:
// a telemetry outage never delays or fails an extraction.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/store"
)

// Recorder accumulates per-day, per-backend usage into a UsageStore.
type Recorder struct {
	store   store.UsageStore
	timeout time.Duration

	wg sync.WaitGroup

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewRecorder creates a usage recorder. A nil store disables recording.
func NewRecorder(st store.UsageStore) *Recorder {
	return &Recorder{
		store:   st,
		timeout: 5 * time.Second,
		nowFunc: time.Now,
	}
}

// RecordExtraction logs one processed episode's units and cost for a backend.
// The write happens on a background goroutine; failures are logged and
// swallowed.
func (r *Recorder) RecordExtraction(method model.Method, units int64, costUSD float64) {
	if r == nil || r.store == nil {
		return
	}
	date := r.nowFunc().UTC().Format("2006-01-02")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.store.AddDailyUsage(ctx, date, method, units, costUSD, 1); err != nil {
			zap.L().Warn("telemetry: daily usage write failed",
				zap.String("date", date),
				zap.String("method", string(method)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until all in-flight writes finish. Used on shutdown and in tests.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
