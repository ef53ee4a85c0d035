// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Budget    BudgetConfig    `yaml:"budget" mapstructure:"budget"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Breaker   BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	NER       NERConfig       `yaml:"ner" mapstructure:"ner"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the budget/usage persistence backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres", or "memory".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BudgetConfig configures the monthly spend cap.
type BudgetConfig struct {
	MonthlyLimitUSD   float64 `yaml:"monthly_limit_usd" mapstructure:"monthly_limit_usd"`
	WarningThreshold  float64 `yaml:"warning_threshold" mapstructure:"warning_threshold"`
	LowBudgetFraction float64 `yaml:"low_budget_fraction" mapstructure:"low_budget_fraction"`
}

// ExtractConfig configures orchestration behavior.
type ExtractConfig struct {
	ShortTextChars   int     `yaml:"short_text_chars" mapstructure:"short_text_chars"`
	LLMTimeoutSecs   int     `yaml:"llm_timeout_secs" mapstructure:"llm_timeout_secs"`
	LLMMaxAttempts   int     `yaml:"llm_max_attempts" mapstructure:"llm_max_attempts"`
	NERTimeoutSecs   int     `yaml:"ner_timeout_secs" mapstructure:"ner_timeout_secs"`
	NERMaxChars      int     `yaml:"ner_max_chars" mapstructure:"ner_max_chars"`
	NERMinConfidence float64 `yaml:"ner_min_confidence" mapstructure:"ner_min_confidence"`
}

// BreakerConfig holds per-backend circuit breaker policies. The premium
// backend tolerates more failures with a longer recovery window.
type BreakerConfig struct {
	LLM BreakerPolicy `yaml:"llm" mapstructure:"llm"`
	NER BreakerPolicy `yaml:"ner" mapstructure:"ner"`
}

// BreakerPolicy is one backend's breaker tuning.
type BreakerPolicy struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	RecoverySecs     int `yaml:"recovery_secs" mapstructure:"recovery_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NERConfig holds entity-recognition service settings.
type NERConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Language       string  `yaml:"language" mapstructure:"language"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// PricingConfig holds per-backend pricing rates.
type PricingConfig struct {
	LLMInputPerMTok  float64 `yaml:"llm_input_per_mtok" mapstructure:"llm_input_per_mtok"`
	LLMOutputPerMTok float64 `yaml:"llm_output_per_mtok" mapstructure:"llm_output_per_mtok"`
	NERPerUnit       float64 `yaml:"ner_per_unit" mapstructure:"ner_per_unit"`
}

// HistoryConfig configures the attempt history buffer.
type HistoryConfig struct {
	Capacity     int `yaml:"capacity" mapstructure:"capacity"`
	HealthWindow int `yaml:"health_window" mapstructure:"health_window"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "guest-engine.db")
	v.SetDefault("budget.monthly_limit_usd", 10.00)
	v.SetDefault("budget.warning_threshold", 0.8)
	v.SetDefault("budget.low_budget_fraction", 0.1)
	v.SetDefault("extract.short_text_chars", 80)
	v.SetDefault("extract.llm_timeout_secs", 15)
	v.SetDefault("extract.llm_max_attempts", 3)
	v.SetDefault("extract.ner_timeout_secs", 10)
	v.SetDefault("extract.ner_max_chars", 5000)
	v.SetDefault("extract.ner_min_confidence", 0.8)
	v.SetDefault("breaker.llm.failure_threshold", 5)
	v.SetDefault("breaker.llm.recovery_secs", 60)
	v.SetDefault("breaker.ner.failure_threshold", 3)
	v.SetDefault("breaker.ner.recovery_secs", 30)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("ner.base_url", "https://api.entity-insight.dev/v1")
	v.SetDefault("ner.language", "en")
	v.SetDefault("ner.requests_per_sec", 10)
	v.SetDefault("pricing.llm_input_per_mtok", 3.00)
	v.SetDefault("pricing.llm_output_per_mtok", 15.00)
	v.SetDefault("pricing.ner_per_unit", 0.0001)
	v.SetDefault("history.capacity", 100)
	v.SetDefault("history.health_window", 20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
