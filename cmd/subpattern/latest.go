package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/store/duckdb"
)

func newLatestCmd() *cobra.Command {
	var stockID string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print a stock's most recent stored prediction as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			store, err := duckdb.Open(ctx, a.cfg.DuckDB.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			pred, err := store.Predictions.Latest(ctx, stockID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no prediction stored for %s", stockID)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pred)
		},
	}

	cmd.Flags().StringVar(&stockID, "stock", "", "stock identifier")
	_ = cmd.MarkFlagRequired("stock")

	return cmd
}
