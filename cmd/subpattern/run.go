package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/engine"
	"github.com/tunogya/subpattern/pkg/logger"
	"github.com/tunogya/subpattern/pkg/metrics"
	"github.com/tunogya/subpattern/pkg/queue/nats"
	"github.com/tunogya/subpattern/pkg/store/duckdb"
)

func newRunCmd() *cobra.Command {
	var (
		format      string
		workers     int
		crossStock  bool
		metricsAddr string
		top         int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch over the active universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			cfg := a.cfg

			if cmd.Flags().Changed("workers") {
				cfg.Engine.Workers = workers
			}
			if cmd.Flags().Changed("cross-stock") {
				cfg.Match.CrossStock = crossStock
			}
			if metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Addr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			store, err := duckdb.Open(ctx, cfg.DuckDB.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			stocks, err := store.ActiveStocks(ctx)
			if err != nil {
				return fmt.Errorf("loading universe: %w", err)
			}
			if len(stocks) == 0 {
				return fmt.Errorf("no active stocks in %s, run backfill first", cfg.DuckDB.Path)
			}

			features, closeCache := newFeatures(ctx, cfg, a.log)
			defer closeCache()

			provider := data.NewRetryingProvider(store, retryConfig(cfg))
			pipeline := newPipeline(cfg, provider, features)

			var sink engine.Sink = store
			if cfg.NATS.Enabled {
				nc, err := openNATS(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connecting to nats: %w", err)
				}
				defer nc.Close()
				sink = nats.NewPublisher(nc)
				a.log.Info("writes go through nats", logger.String("url", cfg.NATS.URL))
			}

			recorder := metrics.NewRecorder()
			opts := []engine.Option{
				engine.WithWorkers(cfg.Engine.Workers),
				engine.WithRunTimeout(cfg.Engine.RunTimeout),
				engine.WithLogger(a.log),
				engine.WithMetrics(recorder),
			}

			if cfg.Milvus.Enabled {
				mc, index, err := openMilvus(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connecting to milvus: %w", err)
				}
				defer mc.Close()
				opts = append(opts, engine.WithIndex(index))
			}

			if cfg.Metrics.Enabled {
				srv := serveMetrics(cfg.Metrics.Addr, recorder, a.log)
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			var bar *progressbar.ProgressBar
			if format != "json" {
				bar = newProgressBar(len(stocks), "Forecasting")
				opts = append(opts, engine.WithProgress(func(done, total int) {
					bar.Set(done)
				}))
			}

			report, runErr := engine.NewRunner(pipeline, sink, opts...).Run(ctx, stocks)
			if bar != nil {
				bar.Finish()
				fmt.Println()
			}
			if report == nil {
				return runErr
			}

			if format == "json" {
				if err := outputReportJSON(report); err != nil {
					return err
				}
			} else {
				outputSummaryTable(report)
				outputPredictionsTable(report, top)
			}

			if errors.Is(runErr, engine.ErrNoInputs) {
				return runErr
			}
			if runErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	cmd.Flags().IntVar(&workers, "workers", 8, "number of parallel workers")
	cmd.Flags().BoolVar(&crossStock, "cross-stock", false, "match against every stock's segments, not only the stock's own")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().IntVar(&top, "top", 20, "number of predictions shown in the table")

	return cmd
}

func serveMetrics(addr string, recorder *metrics.Recorder, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logger.Error(err))
		}
	}()
	log.Info("serving metrics", logger.String("addr", addr))
	return srv
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
