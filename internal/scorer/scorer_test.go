package scorer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/budget"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

// fakeClient scripts one response (or error) per call, in order.
type fakeClient struct {
	responses []fakeResponse
	requests  []llm.MessageRequest
}

type fakeResponse struct {
	text  string
	usage llm.TokenUsage
	err   error
}

func (f *fakeClient) CreateMessage(_ context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if idx >= len(f.responses) {
		return nil, eris.Errorf("unexpected call %d", idx)
	}
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.MessageResponse{
		Content: []llm.ContentBlock{{Type: "text", Text: r.text}},
		Usage:   r.usage,
	}, nil
}

func testConfig() Config {
	return Config{
		Model:             "claude-haiku-4-5-20251001",
		MaxOutputTokens:   2000,
		PartitionSize:     10,
		MaxDescriptionLen: 400,
		CallTimeout:       5 * time.Second,
		RetryRateLimited:  false,
	}
}

func testCandidates(n int) []prefilter.Candidate {
	out := make([]prefilter.Candidate, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, prefilter.Candidate{
			Company: model.Company{
				ID:               int64(i),
				Name:             fmt.Sprintf("Empresa %d", i),
				TradeDescription: "Desenvolvimento de software",
			},
			Score: float64(n - i),
		})
	}
	return out
}

// partitionJSON builds a valid response body for company IDs [lo, hi].
func partitionJSON(lo, hi int64) string {
	body := "["
	for id := lo; id <= hi; id++ {
		if id > lo {
			body += ","
		}
		body += fmt.Sprintf(`{"company_id": %d, "strategic_fit": 3, "quality": 3, "execution_capacity": 3, "rationale": "ok"}`, id)
	}
	return body + "]"
}

func TestScorePartitionsAndMerges(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{text: partitionJSON(1, 10), usage: llm.TokenUsage{InputTokens: 1000, OutputTokens: 500}},
		{text: partitionJSON(11, 20), usage: llm.TokenUsage{InputTokens: 1000, OutputTokens: 500}},
		{text: partitionJSON(21, 25), usage: llm.TokenUsage{InputTokens: 1000, OutputTokens: 300}},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())
	guard := budget.NewGuard(0.30)

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Digitalização"}, testCandidates(25), guard)
	require.NoError(t, err)

	assert.Len(t, scores, 25)
	assert.Equal(t, 3, stats.Partitions)
	assert.Zero(t, stats.FailedPartitions)
	assert.Zero(t, stats.Invalid)
	assert.Greater(t, stats.SpendUSD, 0.0)
	assert.Len(t, client.requests, 3)
}

func TestScoreRequestShape(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{text: partitionJSON(1, 5), usage: llm.TokenUsage{InputTokens: 100, OutputTokens: 100}},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())

	_, _, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Apoio"}, testCandidates(5), budget.NewGuard(0.30))
	require.NoError(t, err)

	req := client.requests[0]
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	require.Len(t, req.System, 2)
	assert.Nil(t, req.System[0].CacheControl)
	require.NotNil(t, req.System[1].CacheControl)
	assert.Equal(t, "5m", req.System[1].CacheControl.TTL)
	assert.Contains(t, req.System[1].Text, "Apoio")
}

func TestScoreStopsWhenBudgetExhausted(t *testing.T) {
	// Each call settles at $0.148; after two calls the $0.30 guard has only
	// $0.004 headroom, under the worst-case cost of even a minimum partition.
	usage := llm.TokenUsage{OutputTokens: 37_000}
	client := &fakeClient{responses: []fakeResponse{
		{text: partitionJSON(1, 10), usage: usage},
		{text: partitionJSON(11, 20), usage: usage},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())
	guard := budget.NewGuard(0.30)

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Apoio"}, testCandidates(30), guard)
	require.Error(t, err)
	assert.True(t, eris.Is(err, budget.ErrExceeded))

	// Partial results from the two granted calls survive.
	assert.Len(t, scores, 20)
	assert.Equal(t, 2, stats.Partitions)
	assert.Len(t, client.requests, 2)
	assert.InDelta(t, 0.296, guard.Spent(), 0.001)
}

func TestScoreAbsorbsFailedPartition(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{text: "I cannot evaluate these companies.", usage: llm.TokenUsage{OutputTokens: 50}},
		{text: partitionJSON(11, 20), usage: llm.TokenUsage{OutputTokens: 500}},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Apoio"}, testCandidates(20), budget.NewGuard(0.30))
	require.NoError(t, err)

	assert.Len(t, scores, 10)
	assert.Equal(t, int64(11), scores[0].CompanyID)
	assert.Equal(t, 2, stats.Partitions)
	assert.Equal(t, 1, stats.FailedPartitions)
}

func TestScoreAbsorbsProviderError(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{err: eris.New("connection reset")},
		{text: partitionJSON(11, 20), usage: llm.TokenUsage{OutputTokens: 500}},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())
	guard := budget.NewGuard(0.30)

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Apoio"}, testCandidates(20), guard)
	require.NoError(t, err)

	assert.Len(t, scores, 10)
	assert.Equal(t, 1, stats.FailedPartitions)
	// The failed call's reservation was cancelled, not spent.
	assert.Less(t, guard.Spent(), 0.01)
}

func TestScoreCountsInvalidEntries(t *testing.T) {
	body := `[
		{"company_id": 1, "strategic_fit": 9, "quality": 3, "execution_capacity": 3, "rationale": "bad"},
		{"company_id": 2, "strategic_fit": 3, "quality": 3, "execution_capacity": 3, "rationale": "ok"}
	]`
	client := &fakeClient{responses: []fakeResponse{
		{text: body, usage: llm.TokenUsage{OutputTokens: 200}},
	}}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1, Title: "Apoio"}, testCandidates(2), budget.NewGuard(0.30))
	require.NoError(t, err)
	assert.Len(t, scores, 1)
	assert.Equal(t, 1, stats.Invalid)
}

func TestScoreEmptyCandidates(t *testing.T) {
	client := &fakeClient{}
	s := New(client, budget.NewCalculator(budget.DefaultRates()), nil, testConfig())

	scores, stats, err := s.Score(context.Background(), model.Incentive{ID: 1}, nil, budget.NewGuard(0.30))
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Zero(t, stats.Partitions)
	assert.Empty(t, client.requests)
}
