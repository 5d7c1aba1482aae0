package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunogya/subpattern/pkg/model"
)

// StockRepo handles the active universe
type StockRepo struct {
	client *Client
}

// NewStockRepo creates a new stock repository
func NewStockRepo(client *Client) *StockRepo {
	return &StockRepo{client: client}
}

// UpsertBatch marks the given stocks active, keeping names current
func (r *StockRepo) UpsertBatch(ctx context.Context, stocks []model.Stock) error {
	return r.client.withTx(ctx, func(tx *sql.Tx) error {
		for _, s := range stocks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stocks (stock_id, name, active) VALUES (?, ?, TRUE)
				ON CONFLICT (stock_id) DO UPDATE SET name = EXCLUDED.name, active = TRUE
			`, s.StockID, s.Name)
			if err != nil {
				return fmt.Errorf("failed to upsert stock %s: %w", s.StockID, err)
			}
		}
		return nil
	})
}

// SetActive toggles a stock's membership in the universe
func (r *StockRepo) SetActive(ctx context.Context, stockID string, active bool) error {
	return r.client.Exec(ctx, "UPDATE stocks SET active = ? WHERE stock_id = ?", active, stockID)
}

// ListActive returns the active universe ordered by stock ID
func (r *StockRepo) ListActive(ctx context.Context) ([]model.Stock, error) {
	rows, err := r.client.Query(ctx, "SELECT stock_id, name FROM stocks WHERE active ORDER BY stock_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []model.Stock
	for rows.Next() {
		var s model.Stock
		var name sql.NullString
		if err := rows.Scan(&s.StockID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		s.Name = name.String
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}
