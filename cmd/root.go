package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "talent-inbound",
	Short: "Recruiter-message processing pipeline",
	Long:  "Classifies, extracts, scores, and drafts replies to inbound recruiter messages via tiered Claude models, with heuristic fallbacks for offline runs.",
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
