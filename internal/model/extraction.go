// Package model defines the domain types shared across the extraction engine.
package model

import "time"

// Method identifies one extraction backend.
type Method string

const (
	// MethodLLM is the premium language-model backend.
	MethodLLM Method = "llm"
	// MethodNER is the hosted named-entity-recognition backend.
	MethodNER Method = "ner"
	// MethodHeuristic is the free local pattern matcher.
	MethodHeuristic Method = "heuristic"
)

// Methods lists all backends in fixed fallback order, premium first.
var Methods = []Method{MethodLLM, MethodNER, MethodHeuristic}

// ExtractionRequest is one episode's text to extract guests from.
type ExtractionRequest struct {
	EpisodeID   string `json:"episode_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Text returns the combined title and description that backends operate on.
func (r ExtractionRequest) Text() string {
	switch {
	case r.Title == "":
		return r.Description
	case r.Description == "":
		return r.Title
	default:
		return r.Title + "\n\n" + r.Description
	}
}

// Guest is one extracted guest candidate.
type Guest struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     Method  `json:"source"`
	Context    string  `json:"context,omitempty"`
}

// ExtractionResult is the outcome of one orchestrated extraction. Success
// false with a populated Errors slice means every method was exhausted.
type ExtractionResult struct {
	Guests           []Guest  `json:"guests"`
	Method           Method   `json:"method,omitempty"`
	Success          bool     `json:"success"`
	FallbackUsed     bool     `json:"fallback_used"`
	Errors           []string `json:"errors,omitempty"`
	CostUSD          float64  `json:"cost_usd"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
}

// ExtractionAttempt is one backend invocation, recorded for health reporting.
type ExtractionAttempt struct {
	Method    Method    `json:"method"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	CostUSD   float64   `json:"cost_usd"`
	Error     string    `json:"error,omitempty"`
}

// Budget is one calendar month's spend counter.
type Budget struct {
	Period           string  `json:"period"`
	MonthlyLimitUSD  float64 `json:"monthly_limit_usd"`
	CurrentSpendUSD  float64 `json:"current_spend_usd"`
	WarningThreshold float64 `json:"warning_threshold"`
}

// RemainingUSD returns the unspent portion of the monthly limit, floored at
// zero.
func (b Budget) RemainingUSD() float64 {
	rem := b.MonthlyLimitUSD - b.CurrentSpendUSD
	if rem < 0 {
		return 0
	}
	return rem
}

// Period returns the budget period key for t, e.g. "2026-08". Periods are
// always derived in UTC so all instances agree on month boundaries.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}
