package scorer

import (
	"sort"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// Rank combines sub-scores into final weighted scores, orders the candidates
// and returns the top-five Match rows with contiguous rank positions. Ties
// on aggregate score prefer the higher strategic fit, then the lower company
// ID, so rank order is fully deterministic. An empty input returns an empty
// (never fabricated) result.
func Rank(scores []model.CandidateScore) []model.Match {
	if len(scores) == 0 {
		return nil
	}

	ranked := make([]model.CandidateScore, len(scores))
	copy(ranked, scores)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		aggA, aggB := a.Aggregate(), b.Aggregate()
		if aggA != aggB {
			return aggA > aggB
		}
		if a.StrategicFit != b.StrategicFit {
			return a.StrategicFit > b.StrategicFit
		}
		return a.CompanyID < b.CompanyID
	})

	n := len(ranked)
	if n > model.MaxMatchesPerIncentive {
		n = model.MaxMatchesPerIncentive
	}

	matches := make([]model.Match, 0, n)
	for i := 0; i < n; i++ {
		s := ranked[i]
		matches = append(matches, model.Match{
			IncentiveID:  s.IncentiveID,
			CompanyID:    s.CompanyID,
			Score:        s.Aggregate(),
			RankPosition: i + 1,
			Reasoning: model.Reasoning{
				StrategicFit:      s.StrategicFit,
				Quality:           s.Quality,
				ExecutionCapacity: s.ExecutionCapacity,
				Rationale:         s.Rationale,
			},
		})
	}
	return matches
}
