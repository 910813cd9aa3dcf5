package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/budget"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/match"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/scorer"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "incentives.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRunner(st store.Store) (*match.Runner, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (INCENTIVES_ANTHROPIC_KEY)")
	}

	rates := budget.DefaultRates()
	if cfg.Pricing.RatesFile != "" {
		loaded, err := budget.LoadRates(cfg.Pricing.RatesFile)
		if err != nil {
			return nil, err
		}
		rates = loaded
	}

	scorerCfg := scorer.Config{
		Model:             cfg.Anthropic.Model,
		MaxOutputTokens:   int64(cfg.Scorer.MaxOutputTokens),
		PartitionSize:     cfg.Scorer.PartitionSize,
		MaxDescriptionLen: cfg.Scorer.MaxDescriptionLen,
		CallTimeout:       time.Duration(cfg.Scorer.CallTimeoutSecs) * time.Second,
		RetryRateLimited:  cfg.Scorer.RetryRateLimited,
	}
	if err := scorerCfg.Validate(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if rpm := cfg.Anthropic.RequestsPerMinute; rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}

	sc := scorer.New(
		llm.NewAnthropic(cfg.Anthropic.Key),
		budget.NewCalculator(rates),
		limiter,
		scorerCfg,
	)

	return match.NewRunner(st, sc, match.Config{
		K:                  cfg.Match.PrefilterK,
		IncentiveBudgetUSD: cfg.Match.IncentiveBudgetUSD,
		BatchBudgetUSD:     cfg.Match.BatchBudgetUSD,
		Concurrency:        cfg.Match.Concurrency,
	}), nil
}
