package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/budget"
	"github.com/podrewind/guest-engine/internal/config"
	"github.com/podrewind/guest-engine/internal/cost"
	"github.com/podrewind/guest-engine/internal/extract"
	"github.com/podrewind/guest-engine/internal/extract/backend"
	"github.com/podrewind/guest-engine/internal/history"
	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/resilience"
	"github.com/podrewind/guest-engine/internal/store"
	"github.com/podrewind/guest-engine/internal/telemetry"
	"github.com/podrewind/guest-engine/pkg/anthropic"
	"github.com/podrewind/guest-engine/pkg/ner"
)

// env holds the wired extraction engine and its collaborators for a command's
// lifetime.
type env struct {
	store  store.Store
	ledger *budget.Ledger
	engine *extract.Engine
	usage  *telemetry.Recorder
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	estimator := cost.NewEstimator(cost.Rates{
		LLMInputPerMTok:  cfg.Pricing.LLMInputPerMTok,
		LLMOutputPerMTok: cfg.Pricing.LLMOutputPerMTok,
		NERPerUnit:       cfg.Pricing.NERPerUnit,
	})

	ledger := budget.NewLedger(st, budget.Config{
		MonthlyLimitUSD:   cfg.Budget.MonthlyLimitUSD,
		WarningThreshold:  cfg.Budget.WarningThreshold,
		LowBudgetFraction: cfg.Budget.LowBudgetFraction,
		ShortTextChars:    cfg.Extract.ShortTextChars,
	})

	breakers := resilience.NewRegistry()
	breakers.Register(string(model.MethodLLM), breakerConfig(string(model.MethodLLM), cfg.Breaker.LLM))
	breakers.Register(string(model.MethodNER), breakerConfig(string(model.MethodNER), cfg.Breaker.NER))

	llmClient := anthropic.NewClient(cfg.Anthropic.Key)
	nerClient := ner.NewClient(cfg.NER.Key,
		ner.WithBaseURL(cfg.NER.BaseURL),
		ner.WithRateLimit(cfg.NER.RequestsPerSec, int(cfg.NER.RequestsPerSec)+1),
	)

	llmCfg := backend.DefaultLLMConfig(cfg.Anthropic.Model)
	llmCfg.MaxTokens = int64(cfg.Anthropic.MaxTokens)
	llmCfg.Timeout = time.Duration(cfg.Extract.LLMTimeoutSecs) * time.Second
	llmCfg.MaxAttempts = cfg.Extract.LLMMaxAttempts

	nerCfg := backend.NERConfig{
		Language:      cfg.NER.Language,
		Timeout:       time.Duration(cfg.Extract.NERTimeoutSecs) * time.Second,
		MaxChars:      cfg.Extract.NERMaxChars,
		MinConfidence: cfg.Extract.NERMinConfidence,
	}

	usage := telemetry.NewRecorder(st)

	engine := extract.New(extract.Params{
		Backends: []backend.Backend{
			backend.NewLLM(llmClient, ledger, estimator, llmCfg),
			backend.NewNER(nerClient, ledger, estimator, nerCfg),
			backend.NewHeuristic(),
		},
		Breakers: breakers,
		Ledger:   ledger,
		History:  history.NewRecorder(cfg.History.Capacity, cfg.History.HealthWindow),
		Usage:    usage,
	})

	return &env{store: st, ledger: ledger, engine: engine, usage: usage}, nil
}

func (e *env) Close() {
	e.usage.Wait()
	if err := e.store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL)
	case "memory":
		st = store.NewMemory()
	default:
		return nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func breakerConfig(name string, p config.BreakerPolicy) resilience.CircuitConfig {
	return resilience.CircuitConfig{
		FailureThreshold: p.FailureThreshold,
		RecoveryTimeout:  time.Duration(p.RecoverySecs) * time.Second,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("circuit state change",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}
