// Package match drives the per-incentive matching state machine and the
// bounded-parallelism batch runner on top of it.
package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/budget"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/scorer"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
)

// CandidateScorer is the scoring dependency, satisfied by scorer.Scorer and
// by fakes in tests.
type CandidateScorer interface {
	Score(ctx context.Context, inc model.Incentive, candidates []prefilter.Candidate, guard *budget.Guard) ([]model.CandidateScore, scorer.Stats, error)
}

// Config controls a matching run.
type Config struct {
	K                  int     `yaml:"prefilter_k" mapstructure:"prefilter_k"`
	IncentiveBudgetUSD float64 `yaml:"incentive_budget_usd" mapstructure:"incentive_budget_usd"`
	BatchBudgetUSD     float64 `yaml:"batch_budget_usd" mapstructure:"batch_budget_usd"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// DefaultConfig mirrors the nominal product limits: $0.30 per incentive,
// thirty candidates per shortlist, five workers.
func DefaultConfig() Config {
	return Config{
		K:                  prefilter.DefaultK,
		IncentiveBudgetUSD: 0.30,
		Concurrency:        5,
	}
}

// Options adjusts one batch invocation.
type Options struct {
	// ForceRefresh re-scores incentives that already have matches; the
	// default processes only incentives with no persisted match set.
	ForceRefresh bool
	// BatchBudgetUSD overrides Config.BatchBudgetUSD when > 0.
	BatchBudgetUSD float64
	// IncentiveBudgetUSD overrides Config.IncentiveBudgetUSD when > 0.
	IncentiveBudgetUSD float64
	// Concurrency overrides Config.Concurrency when > 0.
	Concurrency int
}

// Runner owns one batch's collaborators. All dependencies are injected.
type Runner struct {
	store  store.Store
	scorer CandidateScorer
	cfg    Config
}

// NewRunner wires a Runner.
func NewRunner(st store.Store, sc CandidateScorer, cfg Config) *Runner {
	if cfg.K <= 0 {
		cfg.K = prefilter.DefaultK
	}
	if cfg.IncentiveBudgetUSD <= 0 {
		cfg.IncentiveBudgetUSD = 0.30
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Runner{store: st, scorer: sc, cfg: cfg}
}

// MatchAll processes the selected incentives with bounded parallelism and a
// shared batch budget. Individual incentive failures never fail the batch;
// cancellation stops launching new incentives while in-flight ones finish or
// time out, and whatever completed stays persisted.
func (r *Runner) MatchAll(ctx context.Context, opts Options) (*model.BatchReport, error) {
	incentives, err := r.selectIncentives(ctx, opts.ForceRefresh)
	if err != nil {
		return nil, err
	}

	companies, err := r.store.ListCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "match: load company snapshot")
	}

	batchBudget := r.cfg.BatchBudgetUSD
	if opts.BatchBudgetUSD > 0 {
		batchBudget = opts.BatchBudgetUSD
	}
	incentiveBudget := r.cfg.IncentiveBudgetUSD
	if opts.IncentiveBudgetUSD > 0 {
		incentiveBudget = opts.IncentiveBudgetUSD
	}
	concurrency := r.cfg.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	report := &model.BatchReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("match: batch starting",
		zap.Int("incentives", len(incentives)),
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
		zap.Bool("force_refresh", opts.ForceRefresh),
		zap.Float64("batch_budget_usd", batchBudget),
	)

	batchGuard := budget.NewGuard(batchBudget)

	// Cancellation only gates launches. Runs already in flight continue on a
	// detached context so their paid-for scores still reach the store; the
	// scorer's per-call timeouts bound how long that drain can take.
	runCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, inc := range incentives {
		if ctx.Err() != nil {
			log.Warn("match: batch cancelled, stopping new launches")
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil // cancelled while waiting for a worker slot
			}
			run := r.matchOne(runCtx, inc, companies, batchGuard.Child(incentiveBudget))
			mu.Lock()
			report.Add(run)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	report.FinishedAt = time.Now()
	report.SpendUSD = batchGuard.Spent()

	log.Info("match: batch finished",
		zap.Int("total", report.Total),
		zap.Int("persisted", report.Persisted),
		zap.Int("zero_match", report.ZeroMatch),
		zap.Int("failed", report.Failed),
		zap.Float64("spend_usd", report.SpendUSD),
	)
	return report, nil
}

// MatchIncentive runs matching for a single incentive with its own budget.
func (r *Runner) MatchIncentive(ctx context.Context, incentiveID int64, opts Options) (*model.RunReport, error) {
	inc, err := r.store.GetIncentive(ctx, incentiveID)
	if err != nil {
		return nil, err
	}
	companies, err := r.store.ListCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "match: load company snapshot")
	}

	incentiveBudget := r.cfg.IncentiveBudgetUSD
	if opts.IncentiveBudgetUSD > 0 {
		incentiveBudget = opts.IncentiveBudgetUSD
	}

	run := r.matchOne(ctx, *inc, companies, budget.NewGuard(incentiveBudget))
	return &run, nil
}

func (r *Runner) selectIncentives(ctx context.Context, force bool) ([]model.Incentive, error) {
	if force {
		return r.store.ListIncentives(ctx)
	}
	return r.store.IncentivesMissingMatches(ctx)
}

// matchOne walks one incentive through
// PENDING → PREFILTERED → SCORING → AGGREGATED → terminal.
func (r *Runner) matchOne(ctx context.Context, inc model.Incentive, companies []model.Company, guard *budget.Guard) model.RunReport {
	started := time.Now()
	log := zap.L().With(zap.Int64("incentive_id", inc.ID))
	report := model.RunReport{IncentiveID: inc.ID, Status: model.RunStatusPending}

	finish := func(status model.RunStatus, err error) model.RunReport {
		report.Status = status
		report.SpendUSD = guard.Spent()
		report.Duration = time.Since(started)
		if err != nil {
			report.Error = err.Error()
		}
		log.Info("match: incentive run finished",
			zap.String("status", string(status)),
			zap.Int("matches", report.Matches),
			zap.Float64("spend_usd", report.SpendUSD),
		)
		return report
	}

	candidates := prefilter.Select(inc, companies, r.cfg.K)
	report.Status = model.RunStatusPrefiltered
	report.Candidates = len(candidates)

	if len(candidates) == 0 {
		// Zero overlap is a valid outcome, persisted as an empty match set
		// so downstream readers see a definitive "no matches".
		if err := r.store.ReplaceMatches(ctx, inc.ID, nil); err != nil {
			return finish(model.RunStatusPersistFailed, err)
		}
		return finish(model.RunStatusNoMatch, nil)
	}

	report.Status = model.RunStatusScoring
	scores, stats, scoreErr := r.scorer.Score(ctx, inc, candidates, guard)
	report.Scored = len(scores)
	report.Invalid = stats.Invalid

	budgetStopped := scoreErr != nil && errors.Is(scoreErr, budget.ErrExceeded)
	if scoreErr != nil && !budgetStopped {
		return finish(model.RunStatusScoringFailed, scoreErr)
	}

	if len(scores) == 0 {
		if budgetStopped {
			// Nothing scored before the ceiling hit; leave any previous
			// match set untouched and flag for retry with fresh budget.
			return finish(model.RunStatusBudgetExceeded, scoreErr)
		}
		return finish(model.RunStatusScoringFailed,
			eris.Errorf("match: no valid candidate scores for incentive %d (%d partitions failed, %d invalid entries)",
				inc.ID, stats.FailedPartitions, stats.Invalid))
	}

	report.Status = model.RunStatusAggregated
	matches := scorer.Rank(scores)
	report.Matches = len(matches)

	if err := r.store.ReplaceMatches(ctx, inc.ID, matches); err != nil {
		return finish(model.RunStatusPersistFailed, err)
	}

	if budgetStopped {
		// Partial ranking persisted; the run still reports the ceiling hit
		// so the batch driver can schedule a retry.
		return finish(model.RunStatusBudgetExceeded, scoreErr)
	}
	return finish(model.RunStatusPersisted, nil)
}
