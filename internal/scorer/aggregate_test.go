package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

func candidateScore(companyID int64, sf, q, ec float64) model.CandidateScore {
	return model.CandidateScore{
		IncentiveID:       1,
		CompanyID:         companyID,
		StrategicFit:      sf,
		Quality:           q,
		ExecutionCapacity: ec,
		Rationale:         "r",
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Nil(t, Rank(nil))
	assert.Nil(t, Rank([]model.CandidateScore{}))
}

func TestRankTopFive(t *testing.T) {
	scores := []model.CandidateScore{
		candidateScore(1, 1, 1, 1),
		candidateScore(2, 5, 5, 5),
		candidateScore(3, 3, 3, 3),
		candidateScore(4, 4, 4, 4),
		candidateScore(5, 2, 2, 2),
		candidateScore(6, 4.5, 4.5, 4.5),
		candidateScore(7, 0.5, 0.5, 0.5),
	}

	matches := Rank(scores)
	require.Len(t, matches, 5)
	require.NoError(t, model.ValidateMatchSet(matches))

	assert.Equal(t, int64(2), matches[0].CompanyID)
	assert.Equal(t, int64(6), matches[1].CompanyID)
	assert.Equal(t, int64(4), matches[2].CompanyID)
	assert.Equal(t, int64(3), matches[3].CompanyID)
	assert.Equal(t, int64(5), matches[4].CompanyID)
	for i, m := range matches {
		assert.Equal(t, i+1, m.RankPosition)
	}
}

func TestRankFewerThanFive(t *testing.T) {
	matches := Rank([]model.CandidateScore{candidateScore(1, 3, 3, 3), candidateScore(2, 4, 4, 4)})
	require.Len(t, matches, 2)
	assert.Equal(t, int64(2), matches[0].CompanyID)
	require.NoError(t, model.ValidateMatchSet(matches))
}

func TestRankTieBreakStrategicFitThenID(t *testing.T) {
	// Same aggregate 2.0; company 8 has higher strategic fit.
	// 2.5*0.40 + 0*0.35 + 4.0*0.25 = 1.0 + 0 + 1.0 = 2.0
	// 5.0*0.40 + 0*0.35 + 0*0.25   = 2.0 + 0 + 0   = 2.0
	a := candidateScore(2, 2.5, 0, 4.0)
	b := candidateScore(8, 5.0, 0, 0)
	// Fully identical sub-scores; lower ID wins.
	c := candidateScore(7, 3.0, 3.0, 3.0)
	d := candidateScore(3, 3.0, 3.0, 3.0)

	matches := Rank([]model.CandidateScore{a, b, c, d})
	require.Len(t, matches, 4)
	// c and d aggregate to 3.0 and sort first, lower ID winning their tie.
	assert.Equal(t, int64(3), matches[0].CompanyID)
	assert.Equal(t, int64(7), matches[1].CompanyID)
	// a and b aggregate to 2.0; higher strategic fit wins.
	assert.Equal(t, int64(8), matches[2].CompanyID)
	assert.Equal(t, int64(2), matches[3].CompanyID)
}

func TestRankCarriesReasoning(t *testing.T) {
	s := candidateScore(1, 4, 3, 5)
	s.Rationale = "Strong fit with the program objectives."

	matches := Rank([]model.CandidateScore{s})
	require.Len(t, matches, 1)
	m := matches[0]
	assert.InDelta(t, 3.90, m.Score, 0.0001)
	assert.InDelta(t, 4.0, m.Reasoning.StrategicFit, 0.0001)
	assert.InDelta(t, 3.0, m.Reasoning.Quality, 0.0001)
	assert.InDelta(t, 5.0, m.Reasoning.ExecutionCapacity, 0.0001)
	assert.Equal(t, "Strong fit with the program objectives.", m.Reasoning.Rationale)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	scores := []model.CandidateScore{
		candidateScore(1, 1, 1, 1),
		candidateScore(2, 5, 5, 5),
	}
	Rank(scores)
	assert.Equal(t, int64(1), scores[0].CompanyID)
}
