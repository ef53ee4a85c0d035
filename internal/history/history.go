// Package history keeps a bounded in-process log of recent extraction
// attempts for observability. It is intentionally process-local and
// best-effort: a fresh instance starts empty.
package history

import (
	"sync"
	"time"

	"github.com/podrewind/guest-engine/internal/model"
)

const (
	// DefaultCapacity bounds the attempt ring buffer.
	DefaultCapacity = 100
	// DefaultHealthWindow is how many recent attempts feed the success rate.
	DefaultHealthWindow = 20
)

// Recorder is a fixed-capacity FIFO ring of attempts plus a matching ring of
// request durations. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	attempts  []model.ExtractionAttempt
	durations []time.Duration
	capacity  int
	window    int
}

// NewRecorder creates a Recorder. Non-positive arguments fall back to the
// defaults.
func NewRecorder(capacity, healthWindow int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if healthWindow <= 0 {
		healthWindow = DefaultHealthWindow
	}
	return &Recorder{capacity: capacity, window: healthWindow}
}

// Record appends an attempt, evicting the oldest entry past capacity.
func (r *Recorder) Record(a model.ExtractionAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	if len(r.attempts) > r.capacity {
		r.attempts = r.attempts[len(r.attempts)-r.capacity:]
	}
}

// RecordDuration appends one request's wall-clock processing time.
func (r *Recorder) RecordDuration(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)
	if len(r.durations) > r.capacity {
		r.durations = r.durations[len(r.durations)-r.capacity:]
	}
}

// Len returns the number of retained attempts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// Recent returns up to n most recent attempts, oldest first.
func (r *Recorder) Recent(n int) []model.ExtractionAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.attempts) {
		n = len(r.attempts)
	}
	out := make([]model.ExtractionAttempt, n)
	copy(out, r.attempts[len(r.attempts)-n:])
	return out
}

// SuccessRate computes the success rate over the most recent health-window
// attempts. An empty history reads as healthy.
func (r *Recorder) SuccessRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.attempts)
	if n == 0 {
		return 1.0
	}
	if n > r.window {
		n = r.window
	}
	recent := r.attempts[len(r.attempts)-n:]
	var ok int
	for _, a := range recent {
		if a.Success {
			ok++
		}
	}
	return float64(ok) / float64(n)
}

// AvgProcessingMS returns the mean request duration in milliseconds over the
// retained window, or 0 when nothing has been recorded.
func (r *Recorder) AvgProcessingMS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range r.durations {
		total += d
	}
	return float64(total.Milliseconds()) / float64(len(r.durations))
}
