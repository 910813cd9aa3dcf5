// Package scorer evaluates pre-filtered candidates against an incentive with
// the Portugal 2030 rubric, one structured LLM call per partition.
package scorer

import (
	"time"

	"github.com/rotisserie/eris"
)

// Config controls the criterion scorer.
type Config struct {
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxOutputTokens   int64         `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	PartitionSize     int           `yaml:"partition_size" mapstructure:"partition_size"`
	MaxDescriptionLen int           `yaml:"max_description_len" mapstructure:"max_description_len"`
	CallTimeout       time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	RetryRateLimited  bool          `yaml:"retry_rate_limited" mapstructure:"retry_rate_limited"`
}

// DefaultConfig returns scorer defaults tuned to keep one partition call
// well inside the per-incentive ceiling.
func DefaultConfig() Config {
	return Config{
		Model:             "claude-haiku-4-5-20251001",
		MaxOutputTokens:   2000,
		PartitionSize:     10,
		MaxDescriptionLen: 400,
		CallTimeout:       60 * time.Second,
		RetryRateLimited:  true,
	}
}

// Validate checks that a Config is internally consistent.
func (c Config) Validate() error {
	if c.Model == "" {
		return eris.New("scorer: model must be set")
	}
	if c.MaxOutputTokens <= 0 {
		return eris.New("scorer: max_output_tokens must be > 0")
	}
	if c.PartitionSize <= 0 {
		return eris.New("scorer: partition_size must be > 0")
	}
	if c.MaxDescriptionLen <= 0 {
		return eris.New("scorer: max_description_len must be > 0")
	}
	if c.CallTimeout <= 0 {
		return eris.New("scorer: call_timeout must be > 0")
	}
	return nil
}
