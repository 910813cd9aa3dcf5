package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/match"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/prefilter"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
)

var (
	matchIncentiveID int64
	matchForce       bool
	matchBudget      float64
	matchBatchBudget float64
	matchConcurrency int
	matchDryRun      bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run incentive-to-company matching",
	Long:  "Scores prefiltered candidate companies against incentives and persists the top-5 shortlist per incentive. By default only incentives without persisted matches are processed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if matchDryRun {
			return dryRun(ctx, st)
		}

		runner, err := initRunner(st)
		if err != nil {
			return err
		}

		opts := match.Options{
			ForceRefresh:       matchForce,
			IncentiveBudgetUSD: matchBudget,
			BatchBudgetUSD:     matchBatchBudget,
			Concurrency:        matchConcurrency,
		}

		if matchIncentiveID != 0 {
			run, err := runner.MatchIncentive(ctx, matchIncentiveID, opts)
			if err != nil {
				return err
			}
			zap.L().Info("match finished",
				zap.Int64("incentive_id", run.IncentiveID),
				zap.String("status", string(run.Status)),
				zap.Int("matches", run.Matches),
				zap.Float64("spend_usd", run.SpendUSD),
			)
			return nil
		}

		report, err := runner.MatchAll(ctx, opts)
		if err != nil {
			return err
		}
		zap.L().Info("batch finished",
			zap.String("run_id", report.RunID),
			zap.Int("total", report.Total),
			zap.Int("persisted", report.Persisted),
			zap.Int("zero_match", report.ZeroMatch),
			zap.Int("failed", report.Failed),
			zap.Float64("spend_usd", report.SpendUSD),
			zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		)
		return nil
	},
}

// dryRun reports prefilter shortlists without making any LLM calls or
// touching persisted matches.
func dryRun(ctx context.Context, st store.Store) error {
	companies, err := st.ListCompanies(ctx)
	if err != nil {
		return err
	}

	var incentives []model.Incentive
	if matchIncentiveID != 0 {
		inc, err := st.GetIncentive(ctx, matchIncentiveID)
		if err != nil {
			return err
		}
		incentives = []model.Incentive{*inc}
	} else if matchForce {
		incentives, err = st.ListIncentives(ctx)
		if err != nil {
			return err
		}
	} else {
		incentives, err = st.IncentivesMissingMatches(ctx)
		if err != nil {
			return err
		}
	}

	k := cfg.Match.PrefilterK
	for _, inc := range incentives {
		candidates := prefilter.Select(inc, companies, k)
		zap.L().Info("dry run: prefilter shortlist",
			zap.Int64("incentive_id", inc.ID),
			zap.String("title", inc.Title),
			zap.Int("candidates", len(candidates)),
		)
	}
	return nil
}

func init() {
	matchCmd.Flags().Int64Var(&matchIncentiveID, "incentive", 0, "match a single incentive by ID")
	matchCmd.Flags().BoolVar(&matchForce, "force", false, "re-match incentives that already have persisted matches")
	matchCmd.Flags().Float64Var(&matchBudget, "budget", 0, "per-incentive budget in USD (default from config)")
	matchCmd.Flags().Float64Var(&matchBatchBudget, "batch-budget", 0, "whole-batch budget in USD (0 = unlimited)")
	matchCmd.Flags().IntVar(&matchConcurrency, "concurrency", 0, "concurrent incentives (default from config)")
	matchCmd.Flags().BoolVar(&matchDryRun, "dry-run", false, "prefilter only, no LLM calls or writes")
	rootCmd.AddCommand(matchCmd)
}
