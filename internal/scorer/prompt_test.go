package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
)

func TestBuildUserPromptListsEveryCandidate(t *testing.T) {
	inc := model.Incentive{ID: 1, Title: "Apoio à Inovação"}
	candidates := []prefilter.Candidate{
		{Company: model.Company{ID: 42, Name: "Alfa", CAELabel: "Indústria", TradeDescription: "Fabrico de componentes"}},
		{Company: model.Company{ID: 99, Name: "Beta"}},
	}

	prompt := buildUserPrompt(inc, candidates, 400)

	assert.Contains(t, prompt, "these 2 pre-filtered companies")
	assert.Contains(t, prompt, "(id=42)")
	assert.Contains(t, prompt, "(id=99)")
	assert.Contains(t, prompt, "Name: Alfa")
	// Empty sector and description render a placeholder, never blank lines.
	assert.Contains(t, prompt, "Not specified")
}

func TestBuildUserPromptTruncatesDescriptions(t *testing.T) {
	long := strings.Repeat("a", 1000)
	candidates := []prefilter.Candidate{
		{Company: model.Company{ID: 1, Name: "Alfa", TradeDescription: long}},
	}
	prompt := buildUserPrompt(model.Incentive{Title: "T"}, candidates, 100)
	assert.NotContains(t, prompt, long)
	assert.Contains(t, prompt, strings.Repeat("a", 100)+"...")
}

func TestFormatIncentiveDeterministicCriteria(t *testing.T) {
	inc := model.Incentive{
		Title: "Programa",
		EligibilityCriteria: map[string]string{
			"regiao":       "Norte",
			"dimensao":     "PME",
			"antiguidade":  "2 anos",
			"faturacao":    "500k",
			"setor":        "C",
			"colaborador":  "10",
			"certificacao": "ISO 9001",
		},
	}

	first := formatIncentive(inc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, formatIncentive(inc))
	}
	// Keys come out sorted so the cached context block is byte-stable.
	assert.Less(t, strings.Index(first, "antiguidade"), strings.Index(first, "regiao"))
}

func TestFormatIncentiveStructuredFields(t *testing.T) {
	inc := model.Incentive{
		Title: "Apoio",
		Structured: &model.StructuredDescription{
			Objective:     "Transição digital",
			TargetSectors: []string{"Indústria", "Comércio"},
			FundingType:   "Fundo perdido",
		},
		TotalBudget: 1_000_000,
	}
	out := formatIncentive(inc)
	assert.Contains(t, out, "Objective: Transição digital")
	assert.Contains(t, out, "Target Sectors: Indústria, Comércio")
	assert.Contains(t, out, "Funding Type: Fundo perdido")
	assert.Contains(t, out, "Budget: 1000000.00")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "ab...", truncate("abcd", 2))
	// Rune-safe on accented text.
	assert.Equal(t, "áé...", truncate("áéíóú", 2))
}
