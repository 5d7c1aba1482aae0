package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunogya/subpattern/pkg/logger"
	"github.com/tunogya/subpattern/pkg/queue/nats"
	"github.com/tunogya/subpattern/pkg/store/duckdb"
)

func newWriterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "writer",
		Short: "Consume append messages from NATS and persist them into DuckDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			cfg := a.cfg

			ctx, cancel := signalContext()
			defer cancel()

			store, err := duckdb.Open(ctx, cfg.DuckDB.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			nc, err := openNATS(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connecting to nats: %w", err)
			}
			defer nc.Close()

			handler := nats.AppendHandler(ctx, store, func(msg *nats.AppendMsg, err error) {
				if err != nil {
					a.log.Error("append failed", logger.Error(err))
					return
				}
				fields := []logger.Field{
					logger.String("stock", msg.StockID),
					logger.Int("segments", len(msg.Segments)),
				}
				if msg.Prediction != nil {
					fields = append(fields, logger.String("run_id", msg.Prediction.RunID))
				}
				a.log.Info("appended", fields...)
			})

			consumer, err := nc.Subscribe(ctx, nats.SubjectAppend, cfg.NATS.Durable, handler)
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", nats.SubjectAppend, err)
			}
			defer consumer.Stop()

			a.log.Info("writer started",
				logger.String("url", cfg.NATS.URL),
				logger.String("duckdb", cfg.DuckDB.Path),
			)
			<-ctx.Done()
			a.log.Info("writer stopping")
			return nil
		},
	}
}
