// Package backend holds the interchangeable guest-extraction strategies.
// Each adapter owns its own call policy (timeouts, retries, truncation) and
// its own intra-call dedup; the orchestrator never merges guests across
// adapters because only one adapter's result is ever returned.
package backend

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/podrewind/guest-engine/internal/model"
)

// ErrBudgetExceeded is returned by a paid backend when the pre-flight spend
// check denies the call. No network request was issued.
var ErrBudgetExceeded = eris.New("monthly budget exceeded")

// Outcome is the result of a single adapter invocation. CostUSD reports what
// the invocation committed to the ledger even when the call itself failed.
type Outcome struct {
	Guests  []model.Guest
	CostUSD float64
	Units   int64
}

// Backend is one guest-extraction strategy.
type Backend interface {
	Method() model.Method
	Extract(ctx context.Context, req model.ExtractionRequest) (Outcome, error)
}

// dedupeGuests drops case-insensitive duplicate names, preserving discovery
// order.
func dedupeGuests(in []model.Guest) []model.Guest {
	out := make([]model.Guest, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, g := range in {
		key := strings.ToLower(strings.TrimSpace(g.Name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
