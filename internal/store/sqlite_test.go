package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedReferenceData(t *testing.T, st *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	pub := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	incentives := []model.Incentive{
		{
			ID:                 1,
			IncentiveProjectID: "INC-001",
			Title:              "Apoio à Transição Digital",
			Description:        "Apoio a projetos de digitalização de PME",
			Structured: &model.StructuredDescription{
				Objective:    "Transição digital",
				DigitalFocus: true,
			},
			EligibilityCriteria: map[string]string{"dimensao": "PME"},
			TotalBudget:         5_000_000,
			DatePublication:     &pub,
		},
		{ID: 2, Title: "Eficiência Energética"},
	}
	n, err := st.UpsertIncentives(ctx, incentives)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	companies := []model.Company{
		{ID: 10, Name: "TechNorte", CAELabel: "Indústria", TradeDescription: "Software", Website: "technorte.pt"},
		{ID: 11, Name: "Verde Lda", CAELabel: "Energia", TradeDescription: "Solar"},
		{ID: 12, Name: "Loja Online"},
	}
	n, err = st.UpsertCompanies(ctx, companies)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func testMatches(incentiveID int64, companyIDs ...int64) []model.Match {
	out := make([]model.Match, 0, len(companyIDs))
	score := 4.5
	for i, id := range companyIDs {
		out = append(out, model.Match{
			IncentiveID:  incentiveID,
			CompanyID:    id,
			Score:        score,
			RankPosition: i + 1,
			Reasoning: model.Reasoning{
				StrategicFit: 4, Quality: 4, ExecutionCapacity: 4,
				Rationale: "boa adequação setorial",
			},
		})
		score -= 0.5
	}
	return out
}

func TestSQLiteRoundTripIncentive(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)

	inc, err := st.GetIncentive(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Apoio à Transição Digital", inc.Title)
	assert.Equal(t, "INC-001", inc.IncentiveProjectID)
	require.NotNil(t, inc.Structured)
	assert.True(t, inc.Structured.DigitalFocus)
	assert.Equal(t, map[string]string{"dimensao": "PME"}, inc.EligibilityCriteria)
	assert.InDelta(t, 5_000_000, inc.TotalBudget, 0.001)
	require.NotNil(t, inc.DatePublication)
	assert.Equal(t, "2024-03-05", inc.DatePublication.Format("2006-01-02"))
	assert.Nil(t, inc.DateEnd)
}

func TestSQLiteGetIncentiveNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetIncentive(context.Background(), 404)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteListCompanies(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)

	companies, err := st.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, int64(10), companies[0].ID)
	assert.Equal(t, "TechNorte", companies[0].Name)
	assert.Equal(t, "technorte.pt", companies[0].Website)
}

func TestSQLiteUpsertIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	// Second load with a changed name must update, not duplicate.
	_, err := st.UpsertCompanies(context.Background(), []model.Company{
		{ID: 10, Name: "TechNorte Renamed"},
	})
	require.NoError(t, err)

	companies, err := st.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "TechNorte Renamed", companies[0].Name)
}

func TestSQLiteReplaceMatches(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 10, 11)))

	got, err := st.MatchesForIncentive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].CompanyID)
	assert.Equal(t, 1, got[0].RankPosition)
	assert.InDelta(t, 4.5, got[0].Score, 0.0001)
	assert.Equal(t, "boa adequação setorial", got[0].Reasoning.Rationale)
	assert.InDelta(t, 4.0, got[0].Reasoning.StrategicFit, 0.0001)
}

func TestSQLiteReplaceMatchesIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	set := testMatches(1, 10, 11)
	require.NoError(t, st.ReplaceMatches(ctx, 1, set))
	require.NoError(t, st.ReplaceMatches(ctx, 1, set))

	got, err := st.MatchesForIncentive(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteReplaceMatchesFullySwapsSet(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 10, 11, 12)))
	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 12)))

	got, err := st.MatchesForIncentive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].CompanyID)
}

func TestSQLiteReplaceMatchesEmptyClearsRows(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 10)))
	require.NoError(t, st.ReplaceMatches(ctx, 1, nil))

	got, err := st.MatchesForIncentive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteReplaceMatchesRejectsInvalidSet(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	bad := testMatches(1, 10, 11)
	bad[1].RankPosition = 3 // rank gap
	assert.Error(t, st.ReplaceMatches(ctx, 1, bad))

	got, err := st.MatchesForIncentive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteIncentivesMissingMatches(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	missing, err := st.IncentivesMissingMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 10)))

	missing, err = st.IncentivesMissingMatches(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, int64(2), missing[0].ID)

	// Clearing the set puts the incentive back in the missing list.
	require.NoError(t, st.ReplaceMatches(ctx, 1, nil))
	missing, err = st.IncentivesMissingMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestSQLiteAllMatchesOrdered(t *testing.T) {
	st := newTestStore(t)
	seedReferenceData(t, st)
	ctx := context.Background()

	require.NoError(t, st.ReplaceMatches(ctx, 2, testMatches(2, 12)))
	require.NoError(t, st.ReplaceMatches(ctx, 1, testMatches(1, 10, 11)))

	all, err := st.AllMatches(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].IncentiveID)
	assert.Equal(t, 1, all[0].RankPosition)
	assert.Equal(t, int64(1), all[1].IncentiveID)
	assert.Equal(t, 2, all[1].RankPosition)
	assert.Equal(t, int64(2), all[2].IncentiveID)
}
