// Package store provides durable persistence for budget periods and daily
// usage telemetry.
package store

import (
	"context"

	"github.com/podrewind/guest-engine/internal/model"
)

// BudgetStore persists monthly budget records keyed by "YYYY-MM" period.
// AddSpend must be an atomic increment so concurrent warm instances sharing
// the store do not under-count.
type BudgetStore interface {
	// GetBudget returns the budget row for the period, or nil when absent.
	GetBudget(ctx context.Context, period string) (*model.Budget, error)
	// InitBudget creates the budget row for a period if it does not exist.
	InitBudget(ctx context.Context, b model.Budget) error
	// AddSpend atomically increments the period's current spend.
	AddSpend(ctx context.Context, period string, amountUSD float64) error
}

// UsageStore accumulates daily usage telemetry per backend. Writes are
// fire-and-forget from the engine's perspective; failures are logged and
// swallowed upstream.
type UsageStore interface {
	// AddDailyUsage upserts usage for (date, method), accumulating units,
	// cost, and processed-episode counts. Date is "YYYY-MM-DD".
	AddDailyUsage(ctx context.Context, date string, method model.Method, units int64, costUSD float64, episodes int) error
}

// Store is the combined persistence interface.
type Store interface {
	BudgetStore
	UsageStore

	Migrate(ctx context.Context) error
	Close() error
}
