package budget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

const haiku = "claude-haiku-4-5-20251001"

func TestCalculatorActual(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	usage := llm.TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}
	// 1M input at $0.80 + 0.5M output at $4.00
	assert.InDelta(t, 0.80+2.00, calc.Actual(haiku, usage), 0.0001)
}

func TestCalculatorActualCacheTokens(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	usage := llm.TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	// cache write 0.80*1.25, cache read 0.80*0.1
	assert.InDelta(t, 1.00+0.08, calc.Actual(haiku, usage), 0.0001)
}

func TestCalculatorUnknownModel(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	assert.Zero(t, calc.Actual("unknown-model", llm.TokenUsage{InputTokens: 1000}))
	assert.Zero(t, calc.Estimate("unknown-model", 1000, 1000))
}

func TestCalculatorEstimate(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	// 10k input + 2k worst-case output
	want := (10_000.0/1e6)*0.80 + (2_000.0/1e6)*4.00
	assert.InDelta(t, want, calc.Estimate(haiku, 10_000, 2_000), 0.000001)
}

func TestLoadRatesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.yaml")
	yaml := `
anthropic:
  claude-haiku-4-5-20251001:
    input: 1.00
    output: 5.00
    cache_write_mul: 1.25
    cache_read_mul: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	rates, err := LoadRates(path)
	require.NoError(t, err)

	assert.InDelta(t, 1.00, rates.Anthropic[haiku].Input, 0.0001)
	// Models absent from the file keep default pricing.
	assert.InDelta(t, 3.00, rates.Anthropic["claude-sonnet-4-5-20250929"].Input, 0.0001)
}

func TestLoadRatesMissingFile(t *testing.T) {
	_, err := LoadRates(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
