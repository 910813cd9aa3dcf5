package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
)

// systemPrompt fixes the rubric. Committing to one documented rubric keeps
// repeated evaluations consistent in criterion definition even though the
// model's numeric output may vary.
const systemPrompt = `You are an expert analyst specializing in Portuguese public incentive programs and company matching.

Your role is to evaluate how well companies match a specific incentive based on the Portugal 2030 methodology:
1. Adequação à Estratégia (strategic_fit, 40%): sectoral alignment, regional strategy (RIS3)
2. Qualidade (quality, 35%): innovation potential, diversification, project complexity
3. Capacidade de Execução (execution_capacity, 25%): resources, experience, organizational maturity

Score each criterion from 0 to 5:
- 0-1: very poor match
- 2: poor match
- 3: moderate match
- 4: good match
- 5: excellent match

Provide objective, consistent scoring based on clear criteria. Return ONLY valid JSON without markdown formatting or code blocks.`

// buildUserPrompt renders one partition's evaluation request: incentive
// context, eligibility criteria, and the candidate block. Every candidate in
// the partition must be scored; selection of the top five happens locally.
func buildUserPrompt(inc model.Incentive, candidates []prefilter.Candidate, maxDescLen int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Score every one of these %d pre-filtered companies against the incentive below.\n\n", len(candidates))

	b.WriteString("INCENTIVE:\n")
	b.WriteString(formatIncentive(inc))
	b.WriteString("\n\nCOMPANIES:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "Company %d (id=%d):\n", i+1, c.Company.ID)
		fmt.Fprintf(&b, "Name: %s\n", c.Company.Name)
		fmt.Fprintf(&b, "Sector: %s\n", orNotSpecified(c.Company.CAELabel))
		fmt.Fprintf(&b, "Description: %s\n", orNotSpecified(truncate(c.Company.TradeDescription, maxDescLen)))
		b.WriteString("---\n")
	}

	b.WriteString(`
Return a JSON array with one entry per company, in any order:
[
  {
    "company_id": <id from the listing>,
    "strategic_fit": <0-5>,
    "quality": <0-5>,
    "execution_capacity": <0-5>,
    "rationale": "1-2 sentence justification"
  }
]
Score ALL listed companies. Use the numeric id exactly as given.`)

	return b.String()
}

// formatIncentive renders the incentive context block shared by all
// partition calls for one incentive, so it is served from the prompt cache
// after the first partition.
func formatIncentive(inc model.Incentive) string {
	parts := []string{"Title: " + inc.Title}

	if s := inc.Structured; s != nil {
		if s.Objective != "" {
			parts = append(parts, "Objective: "+s.Objective)
		}
		if len(s.TargetSectors) > 0 {
			parts = append(parts, "Target Sectors: "+strings.Join(s.TargetSectors, ", "))
		}
		if len(s.TargetRegions) > 0 {
			parts = append(parts, "Target Regions: "+strings.Join(s.TargetRegions, ", "))
		}
		if len(s.EligibleActivities) > 0 {
			parts = append(parts, "Eligible Activities: "+strings.Join(s.EligibleActivities, ", "))
		}
		if s.FundingType != "" {
			parts = append(parts, "Funding Type: "+s.FundingType)
		}
		if len(s.KeyRequirements) > 0 {
			parts = append(parts, "Requirements: "+strings.Join(s.KeyRequirements, ", "))
		}
	}

	if len(inc.EligibilityCriteria) > 0 {
		keys := make([]string, 0, len(inc.EligibilityCriteria))
		for k := range inc.EligibilityCriteria {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var crit []string
		for _, k := range keys {
			crit = append(crit, k+": "+inc.EligibilityCriteria[k])
		}
		parts = append(parts, "Eligibility Criteria: "+strings.Join(crit, "; "))
	}

	if inc.Description != "" {
		parts = append(parts, "Description: "+truncate(inc.Description, 300))
	}
	if inc.TotalBudget > 0 {
		parts = append(parts, fmt.Sprintf("Budget: %.2f", inc.TotalBudget))
	}

	return strings.Join(parts, "\n")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
