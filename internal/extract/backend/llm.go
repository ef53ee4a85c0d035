package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/budget"
	"github.com/podrewind/guest-engine/internal/cost"
	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/resilience"
	"github.com/podrewind/guest-engine/pkg/anthropic"
)

// LLMConfig controls the premium backend's call policy.
type LLMConfig struct {
	Model          string
	MaxTokens      int64
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultLLMConfig returns the production call policy: a 15s per-attempt
// timeout with three attempts at 1s/2s/4s backoff.
func DefaultLLMConfig(llmModel string) LLMConfig {
	return LLMConfig{
		Model:          llmModel,
		MaxTokens:      1024,
		Timeout:        15 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
	}
}

// LLM extracts guests by prompting a language model. It is the premium
// backend: every call is pre-authorized against the budget ledger and every
// attempted call is committed as spend, since the provider bills regardless
// of whether usable guests come back.
type LLM struct {
	client    anthropic.Client
	ledger    *budget.Ledger
	estimator *cost.Estimator
	cfg       LLMConfig
}

// NewLLM creates the LLM backend.
func NewLLM(client anthropic.Client, ledger *budget.Ledger, estimator *cost.Estimator, cfg LLMConfig) *LLM {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	return &LLM{client: client, ledger: ledger, estimator: estimator, cfg: cfg}
}

func (b *LLM) Method() model.Method { return model.MethodLLM }

// Extract authorizes the estimated spend, calls the model with a per-attempt
// timeout and retry on transient failures, commits spend, and parses the
// response. A malformed response is zero guests, not a failure.
func (b *LLM) Extract(ctx context.Context, req model.ExtractionRequest) (Outcome, error) {
	text := req.Text()
	est := b.estimator.EstimateLLM(text)

	auth := b.ledger.Authorize(ctx, est.USD)
	if !auth.Allowed {
		return Outcome{}, eris.Wrap(ErrBudgetExceeded, auth.Reason)
	}

	policy := resilience.RetryPolicy{
		MaxAttempts:    b.cfg.MaxAttempts,
		InitialBackoff: b.cfg.InitialBackoff,
		OnRetry:        resilience.RetryLogger(string(model.MethodLLM), "create_message"),
	}

	resp, err := resilience.Retry(ctx, policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
		return b.client.CreateMessage(callCtx, anthropic.MessageRequest{
			Model:     b.cfg.Model,
			MaxTokens: b.cfg.MaxTokens,
			Messages: []anthropic.Message{
				{Role: "user", Content: buildPrompt(req)},
			},
		})
	})
	if err != nil {
		// The calls went out; charge the estimate even though they failed.
		b.ledger.Commit(ctx, est.USD)
		return Outcome{CostUSD: est.USD, Units: int64(est.InputTokens)},
			eris.Wrap(err, "llm extraction failed")
	}

	actual := b.estimator.ActualLLM(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	b.ledger.Commit(ctx, actual)

	guests, perr := ParseGuestResponse(resp.Text)
	if perr != nil {
		zap.L().Warn("llm response unparseable, treating as zero guests",
			zap.String("episode_id", req.EpisodeID),
			zap.Error(perr),
		)
		guests = nil
	}
	for i := range guests {
		guests[i].Source = model.MethodLLM
	}

	return Outcome{
		Guests:  dedupeGuests(guests),
		CostUSD: actual,
		Units:   resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func buildPrompt(req model.ExtractionRequest) string {
	return fmt.Sprintf(`Identify the guests appearing in this podcast episode. Hosts are not guests.

Title: %s

Description: %s

Respond with only a JSON object of the form
{"guests": [{"name": "Full Name", "confidence": 0.95, "context": "short quote mentioning them"}]}.
If no guests are identifiable, respond with {"guests": []}.`, req.Title, req.Description)
}
