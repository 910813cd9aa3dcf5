package model

import "github.com/rotisserie/eris"

// Sub-score bounds for the Portugal 2030 rubric.
const (
	ScoreMin = 0.0
	ScoreMax = 5.0
)

// Rubric weights. They sum to 1.0 and are fixed by the scoring methodology.
const (
	WeightStrategicFit      = 0.40
	WeightQuality           = 0.35
	WeightExecutionCapacity = 0.25
)

// MaxMatchesPerIncentive bounds the persisted shortlist size.
const MaxMatchesPerIncentive = 5

// CandidateScore is the per-candidate output of one LLM evaluation. It is
// ephemeral: only aggregated Match rows are persisted.
type CandidateScore struct {
	IncentiveID       int64   `json:"incentive_id"`
	CompanyID         int64   `json:"company_id"`
	StrategicFit      float64 `json:"strategic_fit"`
	Quality           float64 `json:"quality"`
	ExecutionCapacity float64 `json:"execution_capacity"`
	Rationale         string  `json:"rationale"`
}

// Validate checks that all three sub-scores are within the rubric scale.
// An out-of-range score marks the whole candidate as a scoring error.
func (s CandidateScore) Validate() error {
	check := func(name string, v float64) error {
		if v < ScoreMin || v > ScoreMax {
			return eris.Errorf("candidate score: %s %.2f out of range [%g,%g] for company %d",
				name, v, ScoreMin, ScoreMax, s.CompanyID)
		}
		return nil
	}
	if err := check("strategic_fit", s.StrategicFit); err != nil {
		return err
	}
	if err := check("quality", s.Quality); err != nil {
		return err
	}
	return check("execution_capacity", s.ExecutionCapacity)
}

// Aggregate computes the weighted final score on the 0-5 scale.
func (s CandidateScore) Aggregate() float64 {
	return s.StrategicFit*WeightStrategicFit +
		s.Quality*WeightQuality +
		s.ExecutionCapacity*WeightExecutionCapacity
}

// Reasoning is the persisted explanation attached to a Match.
type Reasoning struct {
	StrategicFit      float64 `json:"strategic_fit"`
	Quality           float64 `json:"quality"`
	ExecutionCapacity float64 `json:"execution_capacity"`
	Rationale         string  `json:"rationale"`
}

// Match is one persisted row of an incentive's ranked shortlist. Rows for one
// incentive are only ever written as a complete ordered set.
type Match struct {
	IncentiveID  int64     `json:"incentive_id"`
	CompanyID    int64     `json:"company_id"`
	Score        float64   `json:"score"`
	RankPosition int       `json:"rank_position"`
	Reasoning    Reasoning `json:"reasoning"`
}

// ValidateMatchSet checks the invariants of a full per-incentive match set:
// at most five rows, contiguous ranks starting at 1, no duplicate companies,
// and non-increasing score by rank.
func ValidateMatchSet(matches []Match) error {
	if len(matches) > MaxMatchesPerIncentive {
		return eris.Errorf("match set: %d rows exceeds limit of %d", len(matches), MaxMatchesPerIncentive)
	}
	seen := make(map[int64]bool, len(matches))
	for i, m := range matches {
		if m.RankPosition != i+1 {
			return eris.Errorf("match set: rank %d at position %d breaks contiguity", m.RankPosition, i)
		}
		if seen[m.CompanyID] {
			return eris.Errorf("match set: duplicate company %d", m.CompanyID)
		}
		seen[m.CompanyID] = true
		if i > 0 && m.Score > matches[i-1].Score {
			return eris.Errorf("match set: score increases from rank %d to %d", i, i+1)
		}
	}
	return nil
}
