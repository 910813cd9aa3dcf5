// Package budget enforces the dollar ceilings that bound LLM spend per
// incentive and per batch run, and computes call costs from token usage.
package budget

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

// Rates holds per-model pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input"`
	Output        float64 `yaml:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul"`
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	}
}

// LoadRates reads a pricing override file. Models present in the file
// replace the defaults; absent models keep default pricing.
func LoadRates(path string) (Rates, error) {
	rates := DefaultRates()
	data, err := os.ReadFile(path)
	if err != nil {
		return rates, eris.Wrapf(err, "budget: read rates file %s", path)
	}
	var override Rates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return rates, eris.Wrapf(err, "budget: parse rates file %s", path)
	}
	for model, r := range override.Anthropic {
		rates.Anthropic[model] = r
	}
	return rates, nil
}

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Actual computes the realized cost of a completed call from its usage.
// Unknown models cost 0 so a pricing gap never blocks a run.
func (c *Calculator) Actual(model string, usage llm.TokenUsage) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	cwCost := (float64(usage.CacheCreationInputTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(usage.CacheReadInputTokens) / 1e6) * rate.Input * rate.CacheReadMul
	return inCost + outCost + cwCost + crCost
}

// Estimate computes the pre-call cost estimate used by the guard: full price
// on the estimated input plus the worst case for the output allowance.
func (c *Calculator) Estimate(model string, inputTokens, maxOutputTokens int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	inCost := (float64(inputTokens) / 1e6) * rate.Input
	outCost := (float64(maxOutputTokens) / 1e6) * rate.Output
	return inCost + outCost
}
