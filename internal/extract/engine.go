// Package extract coordinates the guest-extraction backends: it picks a
// primary strategy, executes it, falls back through the remaining strategies
// on failure, and records every attempt.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/budget"
	"github.com/podrewind/guest-engine/internal/extract/backend"
	"github.com/podrewind/guest-engine/internal/history"
	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/resilience"
	"github.com/podrewind/guest-engine/internal/telemetry"
)

// Params wires an Engine. Breakers, ledger, and history are explicit injected
// dependencies rather than package-level state so tests can swap them.
type Params struct {
	// Backends in fixed fallback order (premium first).
	Backends []backend.Backend
	Breakers *resilience.Registry
	Ledger   *budget.Ledger
	History  *history.Recorder
	// Usage is optional; nil disables telemetry.
	Usage *telemetry.Recorder
}

// Engine is the top-level extraction coordinator.
type Engine struct {
	backends map[model.Method]backend.Backend
	order    []model.Method
	breakers *resilience.Registry
	ledger   *budget.Ledger
	history  *history.Recorder
	usage    *telemetry.Recorder
}

// New creates an Engine from its collaborators.
func New(p Params) *Engine {
	e := &Engine{
		backends: make(map[model.Method]backend.Backend, len(p.Backends)),
		breakers: p.Breakers,
		ledger:   p.Ledger,
		history:  p.History,
		usage:    p.Usage,
	}
	for _, b := range p.Backends {
		e.backends[b.Method()] = b
		e.order = append(e.order, b.Method())
	}
	if e.breakers == nil {
		e.breakers = resilience.NewRegistry()
	}
	if e.history == nil {
		e.history = history.NewRecorder(0, 0)
	}
	return e
}

// Extract runs the full orchestration for one request. It never returns an
// error: every internal failure becomes a fallback trigger, and total failure
// is reported as success=false with the collected error strings.
func (e *Engine) Extract(ctx context.Context, req model.ExtractionRequest) model.ExtractionResult {
	start := time.Now()

	sel := e.selectPrimary(ctx, req.Text())
	zap.L().Debug("extraction strategy selected",
		zap.String("episode_id", req.EpisodeID),
		zap.String("method", string(sel.Method)),
		zap.String("reason", sel.Reason),
	)

	result := model.ExtractionResult{Guests: []model.Guest{}}
	var errs []string
	var totalCost float64

	// Fallback attempts are strictly sequential, never speculative.
	for _, m := range e.attemptOrder(sel.Method) {
		b := e.backends[m]
		if b == nil {
			continue
		}
		if !e.breakers.Available(string(m)) {
			errs = append(errs, fmt.Sprintf("%s: backend unavailable (circuit open)", m))
			continue
		}

		outcome, err := b.Extract(ctx, req)
		totalCost += outcome.CostUSD

		attempt := model.ExtractionAttempt{
			Method:    m,
			Success:   err == nil,
			Timestamp: time.Now().UTC(),
			CostUSD:   outcome.CostUSD,
		}
		if err != nil {
			attempt.Error = err.Error()
		}
		e.history.Record(attempt)
		e.recordBreaker(m, err)

		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", m, err.Error()))
			zap.L().Warn("extraction backend failed",
				zap.String("episode_id", req.EpisodeID),
				zap.String("backend", string(m)),
				zap.Error(err),
			)
			continue
		}

		result.Guests = outcome.Guests
		if result.Guests == nil {
			result.Guests = []model.Guest{}
		}
		result.Method = m
		result.Success = true
		result.FallbackUsed = m != sel.Method
		if e.usage != nil {
			e.usage.RecordExtraction(m, outcome.Units, outcome.CostUSD)
		}
		break
	}

	elapsed := time.Since(start)
	result.Errors = errs
	result.CostUSD = totalCost
	result.ProcessingTimeMS = elapsed.Milliseconds()
	e.history.RecordDuration(elapsed)

	if !result.Success {
		zap.L().Error("all extraction methods exhausted",
			zap.String("episode_id", req.EpisodeID),
			zap.Strings("errors", errs),
		)
	}
	return result
}

// attemptOrder returns the primary method followed by the remaining methods
// in the fixed fallback order.
func (e *Engine) attemptOrder(primary model.Method) []model.Method {
	out := make([]model.Method, 0, len(e.order))
	out = append(out, primary)
	for _, m := range e.order {
		if m != primary {
			out = append(out, m)
		}
	}
	return out
}

// recordBreaker reports the attempt outcome to the backend's breaker. A
// budget denial never issued a call, so it does not count against the
// backend's health.
func (e *Engine) recordBreaker(m model.Method, err error) {
	if err == nil {
		e.breakers.RecordSuccess(string(m))
		return
	}
	if errors.Is(err, backend.ErrBudgetExceeded) {
		return
	}
	e.breakers.RecordFailure(string(m))
}
