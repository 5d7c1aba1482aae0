package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

// BPointRepo handles B-point persistence
type BPointRepo struct {
	client *Client
}

// NewBPointRepo creates a new B-point repository
func NewBPointRepo(client *Client) *BPointRepo {
	return &BPointRepo{client: client}
}

// InsertBatch upserts B-points in a transaction
func (r *BPointRepo) InsertBatch(ctx context.Context, points []model.BPoint) error {
	return r.client.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bpoints (stock_id, ordinal, date, price)
			VALUES (?, ?, CAST(? AS DATE), ?)
			ON CONFLICT (stock_id, ordinal) DO UPDATE SET
				date = EXCLUDED.date,
				price = EXCLUDED.price
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.StockID, p.Ordinal, model.DateKey(p.Date), p.Price.InexactFloat64()); err != nil {
				return fmt.Errorf("failed to insert b-point: %w", err)
			}
		}
		return nil
	})
}

// GetByStock retrieves B-points ordered by ordinal
func (r *BPointRepo) GetByStock(ctx context.Context, stockID string) ([]model.BPoint, error) {
	rows, err := r.client.Query(ctx, `
		SELECT stock_id, ordinal, date, price
		FROM bpoints
		WHERE stock_id = ?
		ORDER BY ordinal ASC
	`, stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query b-points: %w", err)
	}
	defer rows.Close()

	var points []model.BPoint
	for rows.Next() {
		var p model.BPoint
		var price float64
		if err := rows.Scan(&p.StockID, &p.Ordinal, &p.Date, &price); err != nil {
			return nil, fmt.Errorf("failed to scan b-point: %w", err)
		}
		p.Price = decimal.NewFromFloat(price)
		points = append(points, p)
	}

	return points, rows.Err()
}
