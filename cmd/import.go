package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/ingest"
)

var (
	importIncentivesCSV string
	importCompaniesCSV  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import incentives and companies from CSV exports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if importIncentivesCSV == "" && importCompaniesCSV == "" {
			return eris.New("at least one of --incentives or --companies is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if importCompaniesCSV != "" {
			companies, res, err := ingest.ReadCompanies(importCompaniesCSV)
			if err != nil {
				return err
			}
			n, err := st.UpsertCompanies(ctx, companies)
			if err != nil {
				return err
			}
			zap.L().Info("companies imported",
				zap.String("csv", importCompaniesCSV),
				zap.Int64("upserted", n),
				zap.Int("skipped", res.Skipped),
			)
		}

		if importIncentivesCSV != "" {
			incentives, res, err := ingest.ReadIncentives(importIncentivesCSV)
			if err != nil {
				return err
			}
			n, err := st.UpsertIncentives(ctx, incentives)
			if err != nil {
				return err
			}
			zap.L().Info("incentives imported",
				zap.String("csv", importIncentivesCSV),
				zap.Int64("upserted", n),
				zap.Int("skipped", res.Skipped),
			)
		}

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importIncentivesCSV, "incentives", "", "path to incentives CSV")
	importCmd.Flags().StringVar(&importCompaniesCSV, "companies", "", "path to companies CSV")
	rootCmd.AddCommand(importCmd)
}
