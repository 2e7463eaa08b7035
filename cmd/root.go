package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/config"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/dataset"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "afluencia",
	Short: "Metro CDMX ridership dashboard",
	Long:  "Loads metro ridership and station geometry sources, joins them on normalized names, and serves an interactive dashboard with per-line charts, maps, and tables.",
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

// newLoader builds the memoized dataset loader from the configured sources.
func newLoader() (*dataset.Loader, error) {
	norm, err := normalize.LoadAliases(cfg.Sources.AliasesFile)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	return dataset.NewLoader(cfg.Sources.RidershipCSV, cfg.Sources.StationsFile, norm, ttl), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
