package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "guest-engine.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 10.00, cfg.Budget.MonthlyLimitUSD)
	assert.Equal(t, 0.8, cfg.Budget.WarningThreshold)
	assert.Equal(t, 0.1, cfg.Budget.LowBudgetFraction)
	assert.Equal(t, 80, cfg.Extract.ShortTextChars)
	assert.Equal(t, 15, cfg.Extract.LLMTimeoutSecs)
	assert.Equal(t, 3, cfg.Extract.LLMMaxAttempts)
	assert.Equal(t, 10, cfg.Extract.NERTimeoutSecs)
	assert.Equal(t, 5000, cfg.Extract.NERMaxChars)
	assert.Equal(t, 5, cfg.Breaker.LLM.FailureThreshold)
	assert.Equal(t, 60, cfg.Breaker.LLM.RecoverySecs)
	assert.Equal(t, 3, cfg.Breaker.NER.FailureThreshold)
	assert.Equal(t, 30, cfg.Breaker.NER.RecoverySecs)
	assert.Equal(t, 3.00, cfg.Pricing.LLMInputPerMTok)
	assert.Equal(t, 15.00, cfg.Pricing.LLMOutputPerMTok)
	assert.Equal(t, 0.0001, cfg.Pricing.NERPerUnit)
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.Equal(t, 20, cfg.History.HealthWindow)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
store:
  driver: memory
budget:
  monthly_limit_usd: 25.50
breaker:
  llm:
    failure_threshold: 9
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 25.50, cfg.Budget.MonthlyLimitUSD)
	assert.Equal(t, 9, cfg.Breaker.LLM.FailureThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.8, cfg.Budget.WarningThreshold)
	assert.Equal(t, 3, cfg.Breaker.NER.FailureThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GUEST_BUDGET_MONTHLY_LIMIT_USD", "5.00")
	t.Setenv("GUEST_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5.00, cfg.Budget.MonthlyLimitUSD)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	assert.Error(t, err)
}
