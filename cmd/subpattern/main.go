package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/config"
	"github.com/tunogya/subpattern/pkg/logger"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "subpattern",
		Short: "B-point subpattern segmentation and similarity forecasting",
		Long: `Subpattern cuts each stock's price history into segments between B-points,
matches the current open segment against past segments by shape, and produces
a forecast with an investment score and a buy ladder.

Examples:
  subpattern backfill --prices prices.csv --bpoints bpoints.csv --universe universe.csv
  subpattern run --workers 16
  subpattern run --format json > predictions.json
  subpattern search --stock AAPL --cross-stock`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(
		newBackfillCmd(),
		newRunCmd(),
		newWriterCmd(),
		newSearchCmd(),
		newLatestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand loads first
type app struct {
	cfg *config.Config
	log *logger.Logger
}

func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
