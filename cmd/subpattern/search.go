package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/segment"
	"github.com/tunogya/subpattern/pkg/store/duckdb"
)

func newSearchCmd() *cobra.Command {
	var (
		stockID    string
		crossStock bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the Milvus index for segments shaped like a stock's open segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			cfg := a.cfg
			if !cfg.Milvus.Enabled {
				return fmt.Errorf("search needs milvus: set milvus.enabled or SUBPATTERN_MILVUS_ADDR")
			}
			if !cmd.Flags().Changed("top") {
				top = cfg.Match.TopK
			}

			ctx, cancel := signalContext()
			defer cancel()

			store, err := duckdb.Open(ctx, cfg.DuckDB.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			inputs, err := data.FetchInputs(ctx, store, stockID)
			if err != nil {
				return err
			}
			res, err := segment.NewExtractor(segmentConfig(cfg)).Extract(stockID, inputs.BPoints, inputs.Bars)
			if err != nil {
				return err
			}
			open, err := res.Query()
			if err != nil {
				return err
			}

			features, closeCache := newFeatures(ctx, cfg, a.log)
			defer closeCache()
			if err := features.Calculate(open); err != nil {
				return err
			}
			query, _, err := features.Vector(ctx, open)
			if err != nil {
				return err
			}

			mc, index, err := openMilvus(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connecting to milvus: %w", err)
			}
			defer mc.Close()

			filter := stockID
			if crossStock {
				filter = ""
			}
			matches, err := index.Search(ctx, query, filter, top)
			if err != nil {
				return err
			}

			fmt.Printf("%s open segment: %d days since b-point %d, %s, pattern %s\n\n",
				stockID, open.DurationDays, open.StartBPoint.Ordinal, formatPct(open.Return), open.DominantPattern)
			outputMatchesTable(matches)
			return nil
		},
	}

	cmd.Flags().StringVar(&stockID, "stock", "", "stock to build the query from")
	cmd.Flags().BoolVar(&crossStock, "cross-stock", false, "search every stock's segments")
	cmd.Flags().IntVar(&top, "top", 20, "maximum number of matches")
	_ = cmd.MarkFlagRequired("stock")

	return cmd
}
