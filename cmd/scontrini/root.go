package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scontrini",
	Short: "Italian retail receipt extraction pipeline",
	Long:  "Turns receipt photos into structured records: image preprocessing, tesseract OCR, layout-aware item parsing and consistency auditing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		if err := cfg.InitLogger(); err != nil {
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
