// Package budget enforces the rolling monthly cost cap and recommends which
// extraction backend a request should use.
package budget

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/store"
)

// Config controls ledger behavior.
type Config struct {
	// MonthlyLimitUSD is the hard spend cap per calendar month.
	MonthlyLimitUSD float64
	// WarningThreshold is the fraction of the limit at which a warning is
	// logged (once per period). Default: 0.8.
	WarningThreshold float64
	// LowBudgetFraction is the remaining-budget fraction below which the
	// cheapest backend is preferred. Default: 0.1.
	LowBudgetFraction float64
	// ShortTextChars is the text length below which the premium backend is
	// not worth its cost. Default: 80.
	ShortTextChars int
}

func (c Config) withDefaults() Config {
	if c.MonthlyLimitUSD <= 0 {
		c.MonthlyLimitUSD = 10.00
	}
	if c.WarningThreshold <= 0 {
		c.WarningThreshold = 0.8
	}
	if c.LowBudgetFraction <= 0 {
		c.LowBudgetFraction = 0.1
	}
	if c.ShortTextChars <= 0 {
		c.ShortTextChars = 80
	}
	return c
}

// Authorization is the outcome of a pre-flight spend check.
type Authorization struct {
	Allowed         bool    `json:"allowed"`
	Reason          string  `json:"reason,omitempty"`
	CurrentSpendUSD float64 `json:"current_spend_usd"`
	RemainingUSD    float64 `json:"remaining_usd"`
}

// Ledger authorizes and commits spend against the current period's budget.
// The authoritative counter lives in the injected BudgetStore so concurrent
// warm instances share one view of spend.
type Ledger struct {
	store store.BudgetStore
	cfg   Config

	mu     sync.Mutex
	warned map[string]bool

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewLedger creates a Ledger backed by the given store.
func NewLedger(st store.BudgetStore, cfg Config) *Ledger {
	return &Ledger{
		store:   st,
		cfg:     cfg.withDefaults(),
		warned:  make(map[string]bool),
		nowFunc: time.Now,
	}
}

// Period returns the current budget period key.
func (l *Ledger) Period() string {
	return model.Period(l.nowFunc())
}

// Current returns the current period's budget, materializing a fresh row
// with zero spend the first time a request lands in a new month.
func (l *Ledger) Current(ctx context.Context) (model.Budget, error) {
	period := l.Period()
	b, err := l.store.GetBudget(ctx, period)
	if err != nil {
		return model.Budget{}, err
	}
	if b != nil {
		return *b, nil
	}

	fresh := model.Budget{
		Period:           period,
		MonthlyLimitUSD:  l.cfg.MonthlyLimitUSD,
		CurrentSpendUSD:  0,
		WarningThreshold: l.cfg.WarningThreshold,
	}
	if err := l.store.InitBudget(ctx, fresh); err != nil {
		return model.Budget{}, err
	}
	return fresh, nil
}

// Authorize rejects estimated spend that would exceed the monthly limit.
// Crossing the warning threshold logs once per period but never blocks.
// Circuit state plays no part here.
func (l *Ledger) Authorize(ctx context.Context, estimatedUSD float64) Authorization {
	b, err := l.Current(ctx)
	if err != nil {
		// Without a readable spend counter the ledger cannot vouch for the
		// cap, so paid calls are denied and the caller falls back.
		zap.L().Error("budget: store unreachable, denying paid call", zap.Error(err))
		return Authorization{Allowed: false, Reason: "budget store unavailable"}
	}

	projected := b.CurrentSpendUSD + estimatedUSD
	auth := Authorization{
		CurrentSpendUSD: b.CurrentSpendUSD,
		RemainingUSD:    b.RemainingUSD(),
	}

	if projected > b.MonthlyLimitUSD {
		auth.Reason = "monthly budget exceeded"
		zap.L().Warn("budget: authorization denied",
			zap.String("period", b.Period),
			zap.Float64("current_spend_usd", b.CurrentSpendUSD),
			zap.Float64("estimated_usd", estimatedUSD),
			zap.Float64("limit_usd", b.MonthlyLimitUSD),
		)
		return auth
	}

	if projected >= b.WarningThreshold*b.MonthlyLimitUSD {
		l.warnOnce(b, projected)
	}

	auth.Allowed = true
	return auth
}

// Commit atomically adds to the current period's spend. Store failures are
// logged and swallowed: a failed commit must never block returning an
// otherwise-successful extraction, at the cost of possible under-counting.
func (l *Ledger) Commit(ctx context.Context, amountUSD float64) {
	if amountUSD <= 0 {
		return
	}
	period := l.Period()
	if err := l.store.AddSpend(ctx, period, amountUSD); err != nil {
		zap.L().Error("budget: spend commit failed",
			zap.String("period", period),
			zap.Float64("amount_usd", amountUSD),
			zap.Error(err),
		)
	}
}

// RecommendMethod picks a backend for the given text on cost grounds alone:
// low remaining budget or short content prefers the free heuristic, anything
// else the premium LLM. Breaker availability is the selector's concern, not
// the ledger's. This function mutates no spend state.
func (l *Ledger) RecommendMethod(ctx context.Context, text string) (model.Method, string) {
	b, err := l.Current(ctx)
	if err != nil {
		zap.L().Error("budget: store unreachable, recommending cheapest backend", zap.Error(err))
		return model.MethodHeuristic, "budget store unavailable"
	}

	if b.RemainingUSD() < l.cfg.LowBudgetFraction*b.MonthlyLimitUSD {
		return model.MethodHeuristic, "remaining budget below threshold"
	}
	if len(text) < l.cfg.ShortTextChars {
		return model.MethodHeuristic, "short content, premium not worth the cost"
	}
	return model.MethodLLM, "premium extraction"
}

func (l *Ledger) warnOnce(b model.Budget, projectedUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.warned[b.Period] {
		return
	}
	l.warned[b.Period] = true
	zap.L().Warn("budget: spend crossing warning threshold",
		zap.String("period", b.Period),
		zap.Float64("projected_spend_usd", projectedUSD),
		zap.Float64("warning_threshold", b.WarningThreshold),
		zap.Float64("limit_usd", b.MonthlyLimitUSD),
	)
}
