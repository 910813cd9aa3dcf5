// Package prefilter narrows the full company population to a bounded
// candidate list per incentive using cheap lexical signals, so the paid LLM
// evaluation only ever sees a shortlist.
package prefilter

import (
	"sort"

	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// DefaultK bounds the candidate list handed to the criterion scorer.
const DefaultK = 30

// Signal weights. A sector-label hit is the strongest evidence; free-text
// activity and requirement overlap refine within a sector.
const (
	weightSector   = 3.0
	weightActivity = 2.0
	weightFocus    = 1.5
	weightRegion   = 0.5
	weightCriteria = 1.0
)

// Focus keyword lists matched against trade descriptions when the incentive
// flags a thematic focus.
var (
	innovationTerms = []string{
		"inovação", "inovacao", "i&d", "r&d", "investigação", "desenvolvimento",
		"tecnologia", "digital", "automatização", "inteligência artificial",
		"startup", "patente", "laboratório",
	}
	sustainabilityTerms = []string{
		"sustentável", "sustentavel", "verde", "eco", "ambiente", "renovável",
		"eficiência energética", "carbono", "reciclagem", "circular",
	}
	digitalTerms = []string{
		"digital", "digitalização", "online", "e-commerce", "plataforma",
		"software", "app", "website", "sistema", "cloud", "automatização",
	}
)

// Candidate is one pre-filtered company with its lexical relevance score.
type Candidate struct {
	Company model.Company
	Score   float64
}

// Select scores every company against the incentive's structured terms and
// returns at most k candidates ordered by descending score, ties broken by
// ascending company ID. Companies with zero overlap are excluded, so an
// incentive no company matches yields an empty (valid) result. Pure function
// of its inputs.
func Select(inc model.Incentive, companies []model.Company, k int) []Candidate {
	if k <= 0 {
		k = DefaultK
	}

	terms := incentiveTerms(inc)

	candidates := make([]Candidate, 0, k*2)
	seen := make(map[int64]bool, len(companies))
	for _, c := range companies {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		score := scoreCompany(c, terms)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{Company: c, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Company.ID < candidates[j].Company.ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	zap.L().Debug("prefilter: selected candidates",
		zap.Int64("incentive_id", inc.ID),
		zap.Int("population", len(companies)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates
}

// incentiveTerms extracts the weighted term sets from an incentive.
type weightedTerms struct {
	sector   map[string]bool
	activity map[string]bool
	region   map[string]bool
	criteria map[string]bool
	focus    map[string]bool
}

func incentiveTerms(inc model.Incentive) weightedTerms {
	t := weightedTerms{
		sector:   map[string]bool{},
		activity: map[string]bool{},
		region:   map[string]bool{},
		criteria: map[string]bool{},
		focus:    map[string]bool{},
	}

	if s := inc.Structured; s != nil {
		t.sector = termSet(s.TargetSectors)
		t.activity = termSet(s.EligibleActivities)
		t.region = termSet(s.TargetRegions)
		t.criteria = termSet(s.KeyRequirements)

		if s.InnovationFocus {
			t.focus = termSet(innovationTerms)
		}
		if s.SustainabilityFocus {
			for tok := range termSet(sustainabilityTerms) {
				t.focus[tok] = true
			}
		}
		if s.DigitalFocus {
			for tok := range termSet(digitalTerms) {
				t.focus[tok] = true
			}
		}
	}

	for key, val := range inc.EligibilityCriteria {
		for tok := range termSet([]string{key, val}) {
			t.criteria[tok] = true
		}
	}

	// Title terms count as activity-grade signal when no structured
	// description exists yet.
	if len(t.sector) == 0 && len(t.activity) == 0 {
		t.activity = termSet([]string{inc.Title})
	}

	return t
}

// scoreCompany computes the weighted lexical overlap between one company and
// the incentive's term sets.
func scoreCompany(c model.Company, t weightedTerms) float64 {
	caeTokens := tokenize(c.CAELabel)
	descTokens := tokenize(c.TradeDescription)

	var score float64
	score += weightSector * overlap(caeTokens, t.sector)
	score += weightSector * 0.5 * overlap(descTokens, t.sector)
	score += weightActivity * overlap(descTokens, t.activity)
	score += weightFocus * overlap(descTokens, t.focus)
	score += weightRegion * overlap(descTokens, t.region)
	score += weightCriteria * overlap(descTokens, t.criteria)
	return score
}

// overlap counts distinct tokens present in the term set.
func overlap(tokens []string, set map[string]bool) float64 {
	if len(set) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(tokens))
	var hits float64
	for _, tok := range tokens {
		if set[tok] && !seen[tok] {
			seen[tok] = true
			hits++
		}
	}
	return hits
}
