package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "incentives",
	Short: "Incentive-to-company matching engine",
	Long:  "Matches Portuguese public funding incentives to the companies best positioned to apply, using keyword prefiltering and LLM scoring under a per-incentive cost ceiling.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
