package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/logger"
	"github.com/tunogya/subpattern/pkg/store/duckdb"
)

func newBackfillCmd() *cobra.Command {
	var (
		pricesPath, bpointsPath, universePath string
		reset                                 bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Load price history, B-points and the universe from CSV into DuckDB",
		Long: `Backfill loads collaborator inputs into the structured store.

prices.csv:   stock_id,date,open,high,low,close,volume[,pattern]
bpoints.csv:  stock_id,ordinal,date,price
universe.csv: stock_id[,name]

Without --universe every stock in prices.csv becomes active.
--reset drops every table, including stored segments and predictions, before loading.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			ds, err := data.LoadDataset(pricesPath, bpointsPath, universePath)
			if err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}

			store, err := duckdb.Open(ctx, a.cfg.DuckDB.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			if reset {
				if err := store.Reset(ctx); err != nil {
					return fmt.Errorf("resetting store: %w", err)
				}
				a.log.Warn("store reset", logger.String("path", a.cfg.DuckDB.Path))
			}

			if err := store.Stocks.UpsertBatch(ctx, ds.Stocks); err != nil {
				return err
			}

			ids := make([]string, 0, len(ds.Stocks))
			for _, s := range ds.Stocks {
				ids = append(ids, s.StockID)
			}
			sort.Strings(ids)

			bar := newProgressBar(len(ids), "Loading")
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Stock", "Bars", "B-points"}),
			)
			for _, id := range ids {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := store.Prices.InsertBatch(ctx, ds.Bars[id]); err != nil {
					return err
				}
				if err := store.BPoints.InsertBatch(ctx, ds.BPoints[id]); err != nil {
					return err
				}
				table.Append([]string{id, fmt.Sprintf("%d", len(ds.Bars[id])), fmt.Sprintf("%d", len(ds.BPoints[id]))})
				bar.Add(1)
			}
			bar.Finish()
			fmt.Println()
			table.Render()

			a.log.Info("backfill complete",
				logger.Int("stocks", len(ids)),
				logger.String("path", a.cfg.DuckDB.Path),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&pricesPath, "prices", "", "price history CSV")
	cmd.Flags().StringVar(&bpointsPath, "bpoints", "", "B-point CSV")
	cmd.Flags().StringVar(&universePath, "universe", "", "active universe CSV")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables before loading")
	_ = cmd.MarkFlagRequired("prices")
	_ = cmd.MarkFlagRequired("bpoints")

	return cmd
}
