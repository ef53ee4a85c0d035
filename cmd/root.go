package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "guestctl",
	Short: "Podcast guest-extraction engine",
	Long:  "Extracts guest names from podcast episode titles and descriptions via an LLM, a managed entity-recognition service, or local heuristics, with per-backend circuit breakers and a monthly cost budget.",
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
