package backend

import (
	"context"
	"strings"
	"time"

	"github.com/podrewind/guest-engine/internal/budget"
	"github.com/podrewind/guest-engine/internal/cost"
	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/pkg/ner"
)

// NERConfig controls the entity-recognition backend's call policy.
type NERConfig struct {
	Language      string
	Timeout       time.Duration
	MaxChars      int
	MinConfidence float64
}

// DefaultNERConfig returns the production call policy for the NER backend.
func DefaultNERConfig() NERConfig {
	return NERConfig{
		Language:      "en",
		Timeout:       10 * time.Second,
		MaxChars:      5000,
		MinConfidence: 0.8,
	}
}

// NER extracts guests through the managed entity-recognition service: one
// attempt, no client-side retry, input truncated to the service limit. Only
// person entities at or above the confidence floor survive. The small
// per-request cost is committed on success.
type NER struct {
	client    ner.Client
	ledger    *budget.Ledger
	estimator *cost.Estimator
	cfg       NERConfig
}

// NewNER creates the NER backend.
func NewNER(client ner.Client, ledger *budget.Ledger, estimator *cost.Estimator, cfg NERConfig) *NER {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 5000
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.8
	}
	return &NER{client: client, ledger: ledger, estimator: estimator, cfg: cfg}
}

func (b *NER) Method() model.Method { return model.MethodNER }

func (b *NER) Extract(ctx context.Context, req model.ExtractionRequest) (Outcome, error) {
	text := truncate(req.Text(), b.cfg.MaxChars)

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	entities, err := b.client.DetectEntities(callCtx, text, b.cfg.Language)
	if err != nil {
		return Outcome{}, err
	}

	requestCost := b.estimator.NERCost(text)
	b.ledger.Commit(ctx, requestCost)

	guests := make([]model.Guest, 0, len(entities))
	for _, e := range entities {
		if !strings.EqualFold(e.Type, "PERSON") {
			continue
		}
		if e.Score < b.cfg.MinConfidence {
			continue
		}
		guests = append(guests, model.Guest{
			Name:       strings.TrimSpace(e.Text),
			Confidence: e.Score,
			Source:     model.MethodNER,
		})
	}

	return Outcome{
		Guests:  dedupeGuests(guests),
		CostUSD: requestCost,
		Units:   b.estimator.NERUnits(text),
	}, nil
}
