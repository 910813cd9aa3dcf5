package scorer

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/budget"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/resilience"
	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

// minPartition is the smallest partition worth a call when budget headroom
// shrinks the configured size.
const minPartition = 2

// Stats reports what happened inside one incentive's scoring pass.
type Stats struct {
	Partitions       int
	FailedPartitions int
	Invalid          int
	SpendUSD         float64
}

// Scorer issues structured rubric evaluations through the shared rate
// limiter and budget guard. All dependencies are injected; there is no
// ambient client state.
type Scorer struct {
	client  llm.Client
	calc    *budget.Calculator
	limiter *rate.Limiter
	cfg     Config
}

// New creates a Scorer. The limiter is shared across workers so the batch
// respects the provider's requests-per-minute ceiling; it may be nil in
// tests.
func New(client llm.Client, calc *budget.Calculator, limiter *rate.Limiter, cfg Config) *Scorer {
	return &Scorer{client: client, calc: calc, limiter: limiter, cfg: cfg}
}

// Score evaluates the candidate list in partitions and merges the results.
// Per-candidate validation failures and per-partition provider failures are
// absorbed into Stats; the only error returned is budget exhaustion, and
// even then the scores gathered so far are returned alongside it so the
// caller can persist a partial ranking.
func (s *Scorer) Score(ctx context.Context, inc model.Incentive, candidates []prefilter.Candidate, guard *budget.Guard) ([]model.CandidateScore, Stats, error) {
	var (
		scores []model.CandidateScore
		stats  Stats
	)

	log := zap.L().With(zap.Int64("incentive_id", inc.ID))

	system := []llm.SystemBlock{
		{Text: systemPrompt},
		{Text: "INCENTIVE CONTEXT:\n" + formatIncentive(inc), CacheControl: &llm.CacheControl{TTL: "5m"}},
	}
	systemTokens := llm.EstimateTokens(systemPrompt) + llm.EstimateTokens(formatIncentive(inc))

	remaining := candidates
	for len(remaining) > 0 {
		part, budgetErr := s.fitPartition(inc, remaining, systemTokens, guard)
		if budgetErr != nil {
			return scores, stats, budgetErr
		}

		partScores, invalid, err := s.scorePartition(ctx, inc, part, system, systemTokens, guard)
		stats.Partitions++
		stats.Invalid += invalid
		if err != nil {
			if errors.Is(err, budget.ErrExceeded) {
				return scores, stats, err
			}
			// Provider timeout or malformed output: the whole partition is
			// a scoring failure, remaining partitions still run.
			stats.FailedPartitions++
			log.Warn("scorer: partition failed",
				zap.Int("partition_size", len(part)),
				zap.Error(err),
			)
		} else {
			scores = append(scores, partScores...)
		}

		remaining = remaining[len(part):]
	}

	stats.SpendUSD = guard.Spent()
	return scores, stats, nil
}

// fitPartition returns the next partition, shrunk if needed so its estimated
// cost fits the guard's headroom. When even the minimum partition does not
// fit, scoring stops with ErrExceeded rather than issuing a call the guard
// would refuse.
func (s *Scorer) fitPartition(inc model.Incentive, remaining []prefilter.Candidate, systemTokens int64, guard *budget.Guard) ([]prefilter.Candidate, error) {
	size := s.cfg.PartitionSize
	if size > len(remaining) {
		size = len(remaining)
	}

	for size >= 1 {
		part := remaining[:size]
		est := s.estimateCall(inc, part, systemTokens)
		if est <= guard.Headroom() {
			return part, nil
		}
		if size <= minPartition || size == 1 {
			break
		}
		size = size / 2
		if size < minPartition {
			size = minPartition
		}
	}

	return nil, eris.Wrapf(budget.ErrExceeded,
		"scorer: no budget headroom for next partition (incentive %d, headroom $%.4f)",
		inc.ID, guard.Headroom())
}

func (s *Scorer) estimateCall(inc model.Incentive, part []prefilter.Candidate, systemTokens int64) float64 {
	prompt := buildUserPrompt(inc, part, s.cfg.MaxDescriptionLen)
	inputTokens := systemTokens + llm.EstimateTokens(prompt)
	return s.calc.Estimate(s.cfg.Model, inputTokens, s.cfg.MaxOutputTokens)
}

// scorePartition runs one evaluation call end to end: rate limit, budget
// reservation, timeout-bounded call, settlement, parse.
func (s *Scorer) scorePartition(ctx context.Context, inc model.Incentive, part []prefilter.Candidate, system []llm.SystemBlock, systemTokens int64, guard *budget.Guard) ([]model.CandidateScore, int, error) {
	prompt := buildUserPrompt(inc, part, s.cfg.MaxDescriptionLen)
	est := s.estimateCall(inc, part, systemTokens)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "scorer: rate limiter wait")
		}
	}

	res, err := guard.Reserve(est)
	if err != nil {
		return nil, 0, err
	}

	temp := 0.0 // deterministic decoding per the rubric contract
	req := llm.MessageRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxOutputTokens,
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, s.retryConfig(), func(ctx context.Context) (*llm.MessageResponse, error) {
		return s.callOnce(ctx, req)
	})
	if err != nil {
		res.Cancel()
		return nil, 0, eris.Wrap(err, "scorer: partition call")
	}

	actual := s.calc.Actual(s.cfg.Model, resp.Usage)
	res.Settle(actual)
	resp.Usage.LogCost(s.cfg.Model, "criterion_scoring", actual)

	allowed := make(map[int64]bool, len(part))
	for _, c := range part {
		allowed[c.Company.ID] = true
	}

	return parseResponse(resp.Text(), inc.ID, allowed)
}

// retryConfig allows a single backed-off retry for rate limits and 5xx when
// enabled. Timeouts are never retried so worst-case partition latency stays
// fixed.
func (s *Scorer) retryConfig() resilience.RetryConfig {
	attempts := 1
	if s.cfg.RetryRateLimited {
		attempts = 2
	}
	return resilience.RetryConfig{
		MaxAttempts: attempts,
		ShouldRetry: llm.Retryable,
		OnRetry:     resilience.RetryLogger("criterion_scoring"),
	}
}

func (s *Scorer) callOnce(ctx context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.client.CreateMessage(callCtx, req)
}
