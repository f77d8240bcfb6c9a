package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grocer",
	Short: "Grocery cart reconciliation engine",
	Long:  "Resolves desired products against the discount catalog, adds them to the online cart through a browser session, and converges the cart total toward a minimum target.",
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
