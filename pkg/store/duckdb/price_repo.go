package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunogya/subpattern/pkg/model"
)

// PriceRepo handles daily price persistence
type PriceRepo struct {
	client *Client
}

// NewPriceRepo creates a new price repository
func NewPriceRepo(client *Client) *PriceRepo {
	return &PriceRepo{client: client}
}

const upsertPrice = `
	INSERT INTO prices (stock_id, date, open, high, low, close, volume, pattern)
	VALUES (?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?)
	ON CONFLICT (stock_id, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		pattern = EXCLUDED.pattern
`

// InsertBatch upserts bars in a transaction
func (r *PriceRepo) InsertBatch(ctx context.Context, bars []model.PriceBar) error {
	return r.client.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPrice)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			_, err := stmt.ExecContext(ctx,
				b.StockID, model.DateKey(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume, b.Pattern.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert price: %w", err)
			}
		}
		return nil
	})
}

// GetByStock retrieves the stock's full history ordered by date
func (r *PriceRepo) GetByStock(ctx context.Context, stockID string) ([]model.PriceBar, error) {
	query := `
		SELECT stock_id, date, open, high, low, close, volume, pattern
		FROM prices
		WHERE stock_id = ?
		ORDER BY date ASC
	`

	rows, err := r.client.Query(ctx, query, stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var open, high, low sql.NullFloat64
		var volume sql.NullInt64
		var pattern sql.NullString

		if err := rows.Scan(&b.StockID, &b.Date, &open, &high, &low, &b.Close, &volume, &pattern); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		b.Open, b.High, b.Low = open.Float64, high.Float64, low.Float64
		b.Volume = volume.Int64
		b.Pattern, _ = model.ParsePattern(pattern.String)

		bars = append(bars, b)
	}

	return bars, rows.Err()
}

// GetLabels retrieves the stock's daily pattern labels
func (r *PriceRepo) GetLabels(ctx context.Context, stockID string) ([]model.PatternLabel, error) {
	rows, err := r.client.Query(ctx,
		"SELECT date, pattern FROM prices WHERE stock_id = ? ORDER BY date ASC", stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern labels: %w", err)
	}
	defer rows.Close()

	var labels []model.PatternLabel
	for rows.Next() {
		var l model.PatternLabel
		var pattern sql.NullString
		if err := rows.Scan(&l.Date, &pattern); err != nil {
			return nil, fmt.Errorf("failed to scan pattern label: %w", err)
		}
		l.Pattern, _ = model.ParsePattern(pattern.String)
		labels = append(labels, l)
	}

	return labels, rows.Err()
}

// Count returns the number of bars stored for a stock
func (r *PriceRepo) Count(ctx context.Context, stockID string) (int64, error) {
	var count int64
	err := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM prices WHERE stock_id = ?", stockID).Scan(&count)
	return count, err
}
