package extract

import (
	"context"

	"github.com/podrewind/guest-engine/internal/model"
)

// Selection is the chosen primary method and the reason it was picked.
type Selection struct {
	Method model.Method `json:"method"`
	Reason string       `json:"reason"`
}

// selectPrimary composes breaker availability with the ledger's cost
// recommendation. Breaker state wins: an open premium circuit routes to the
// secondary before cost policy is even consulted.
func (e *Engine) selectPrimary(ctx context.Context, text string) Selection {
	if !e.breakers.Available(string(model.MethodLLM)) {
		if e.breakers.Available(string(model.MethodNER)) {
			return Selection{Method: model.MethodNER, Reason: "primary circuit open"}
		}
		return Selection{Method: model.MethodHeuristic, Reason: "both remote backends unavailable"}
	}

	if e.ledger == nil {
		return Selection{Method: model.MethodLLM, Reason: "premium extraction"}
	}
	m, reason := e.ledger.RecommendMethod(ctx, text)
	return Selection{Method: m, Reason: reason}
}
