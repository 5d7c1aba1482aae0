package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

// SegmentRepo handles the closed-segment corpus
type SegmentRepo struct {
	client *Client
}

// NewSegmentRepo creates a new segment repository
func NewSegmentRepo(client *Client) *SegmentRepo {
	return &SegmentRepo{client: client}
}

const insertSegmentSQL = `
	INSERT INTO segments (
		segment_id, stock_id,
		start_ordinal, start_date, start_price,
		end_ordinal, end_date, end_price,
		duration_days, total_return, max_return, min_return, volatility,
		dominant_pattern, feature_version
	)
	VALUES (?, ?, ?, CAST(? AS DATE), ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (segment_id) DO NOTHING
`

// insertSegments appends closed segments; existing IDs are left untouched
func insertSegments(ctx context.Context, q dbtx, segments []*model.Segment) (int, error) {
	inserted := 0
	for _, s := range segments {
		if s.IsOpen() {
			return inserted, fmt.Errorf("%w: open segment %s cannot enter the corpus", model.ErrInvariantViolation, s.SegmentID)
		}
		res, err := q.ExecContext(ctx, insertSegmentSQL,
			s.SegmentID, s.StockID,
			s.StartBPoint.Ordinal, model.DateKey(s.StartBPoint.Date), s.StartBPoint.Price.InexactFloat64(),
			s.EndBPoint.Ordinal, model.DateKey(s.EndBPoint.Date), s.EndBPoint.Price.InexactFloat64(),
			s.DurationDays, s.Return, s.MaxReturn, s.MinReturn, s.Volatility,
			s.DominantPattern.String(), s.FeatureVersion,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert segment: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// InsertBatch appends segments in a transaction and returns how many were new
func (r *SegmentRepo) InsertBatch(ctx context.Context, segments []*model.Segment) (int, error) {
	var inserted int
	err := r.client.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertSegments(ctx, tx, segments)
		return err
	})
	return inserted, err
}

// Exists checks if a segment exists by ID
func (r *SegmentRepo) Exists(ctx context.Context, segmentID string) (bool, error) {
	var count int
	err := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM segments WHERE segment_id = ?", segmentID).Scan(&count)
	return count > 0, err
}

const selectSegment = `
	SELECT segment_id, stock_id,
		start_ordinal, start_date, start_price,
		end_ordinal, end_date, end_price,
		duration_days, total_return, max_return, min_return, volatility,
		dominant_pattern, feature_version
	FROM segments
`

// GetByID retrieves a segment by ID. Bars are not stored and come back empty.
func (r *SegmentRepo) GetByID(ctx context.Context, segmentID string) (*model.Segment, error) {
	rows, err := r.client.Query(ctx, selectSegment+" WHERE segment_id = ?", segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segment: %w", err)
	}
	defer rows.Close()

	segments, err := scanSegments(rows)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, sql.ErrNoRows
	}
	return segments[0], nil
}

// GetByStock retrieves a stock's corpus ordered by start ordinal
func (r *SegmentRepo) GetByStock(ctx context.Context, stockID string) ([]*model.Segment, error) {
	rows, err := r.client.Query(ctx, selectSegment+" WHERE stock_id = ? ORDER BY start_ordinal ASC", stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()
	return scanSegments(rows)
}

// Count returns the corpus size for a stock
func (r *SegmentRepo) Count(ctx context.Context, stockID string) (int64, error) {
	var count int64
	err := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM segments WHERE stock_id = ?", stockID).Scan(&count)
	return count, err
}

func scanSegments(rows *sql.Rows) ([]*model.Segment, error) {
	var segments []*model.Segment
	for rows.Next() {
		var s model.Segment
		var end model.BPoint
		var startPrice, endPrice float64
		var pattern sql.NullString

		err := rows.Scan(
			&s.SegmentID, &s.StockID,
			&s.StartBPoint.Ordinal, &s.StartBPoint.Date, &startPrice,
			&end.Ordinal, &end.Date, &endPrice,
			&s.DurationDays, &s.Return, &s.MaxReturn, &s.MinReturn, &s.Volatility,
			&pattern, &s.FeatureVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}

		s.StartBPoint.StockID = s.StockID
		s.StartBPoint.Price = decimal.NewFromFloat(startPrice)
		end.StockID = s.StockID
		end.Price = decimal.NewFromFloat(endPrice)
		s.EndBPoint = &end
		s.DominantPattern, _ = model.ParsePattern(pattern.String)

		segments = append(segments, &s)
	}
	return segments, rows.Err()
}
