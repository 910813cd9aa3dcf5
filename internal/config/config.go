// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ScorerConfig configures the LLM scoring calls.
type ScorerConfig struct {
	MaxOutputTokens   int  `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	PartitionSize     int  `yaml:"partition_size" mapstructure:"partition_size"`
	MaxDescriptionLen int  `yaml:"max_description_len" mapstructure:"max_description_len"`
	CallTimeoutSecs   int  `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	RetryRateLimited  bool `yaml:"retry_rate_limited" mapstructure:"retry_rate_limited"`
}

// MatchConfig configures the batch matching runs.
type MatchConfig struct {
	PrefilterK         int     `yaml:"prefilter_k" mapstructure:"prefilter_k"`
	IncentiveBudgetUSD float64 `yaml:"incentive_budget_usd" mapstructure:"incentive_budget_usd"`
	BatchBudgetUSD     float64 `yaml:"batch_budget_usd" mapstructure:"batch_budget_usd"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// PricingConfig points at per-model token rates.
type PricingConfig struct {
	RatesFile string `yaml:"rates_file" mapstructure:"rates_file"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("INCENTIVES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("scorer.max_output_tokens", 2000)
	v.SetDefault("scorer.partition_size", 10)
	v.SetDefault("scorer.max_description_len", 400)
	v.SetDefault("scorer.call_timeout_secs", 60)
	v.SetDefault("scorer.retry_rate_limited", true)
	v.SetDefault("match.prefilter_k", 30)
	v.SetDefault("match.incentive_budget_usd", 0.30)
	v.SetDefault("match.concurrency", 5)

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
