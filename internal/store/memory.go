package store

import (
	"context"
	"sync"

	"github.com/podrewind/guest-engine/internal/model"
)

// MemoryStore is an in-process Store for tests and single-shot CLI runs.
// Spend tracked here is not shared across instances.
type MemoryStore struct {
	mu      sync.Mutex
	budgets map[string]model.Budget
	usage   map[string]usageRow
}

type usageRow struct {
	units    int64
	costUSD  float64
	episodes int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		budgets: make(map[string]model.Budget),
		usage:   make(map[string]usageRow),
	}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetBudget(ctx context.Context, period string) (*model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[period]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *MemoryStore) InitBudget(ctx context.Context, b model.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.Period]; !ok {
		s.budgets[b.Period] = b
	}
	return nil
}

func (s *MemoryStore) AddSpend(ctx context.Context, period string, amountUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.budgets[period]
	if b.Period == "" {
		b.Period = period
	}
	b.CurrentSpendUSD += amountUSD
	s.budgets[period] = b
	return nil
}

func (s *MemoryStore) AddDailyUsage(ctx context.Context, date string, method model.Method, units int64, costUSD float64, episodes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := date + "/" + string(method)
	row := s.usage[key]
	row.units += units
	row.costUSD += costUSD
	row.episodes += episodes
	s.usage[key] = row
	return nil
}

// DailyUsage returns accumulated usage for (date, method). Test helper.
func (s *MemoryStore) DailyUsage(date string, method model.Method) (units int64, costUSD float64, episodes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.usage[date+"/"+string(method)]
	return row.units, row.costUSD, row.episodes
}
