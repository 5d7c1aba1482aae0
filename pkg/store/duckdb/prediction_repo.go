package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

// PredictionRepo handles the append-only prediction history
type PredictionRepo struct {
	client *Client
}

// NewPredictionRepo creates a new prediction repository
func NewPredictionRepo(client *Client) *PredictionRepo {
	return &PredictionRepo{client: client}
}

const insertPredictionSQL = `
	INSERT INTO predictions (
		prediction_id, run_id, stock_id, stock_name, generated_at,
		current_bpoint_ordinal, current_bpoint_date, current_bpoint_price,
		current_elapsed_days, current_return, current_price, current_pattern,
		match_count, expected_return, expected_return_min, expected_return_max,
		expected_max_return, expected_duration, confidence, investment_score,
		buy_price_1, buy_price_2, buy_price_3, buy_price_4, buy_price_5,
		avg_buy_price, target_price, target_return, dominant_pattern, recommendation
	)
	VALUES (?, ?, ?, ?, ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (prediction_id) DO NOTHING
`

const insertMatchSQL = `
	INSERT INTO prediction_matches (
		prediction_id, rank, segment_id, stock_id, start_date, end_date,
		total_return, max_return, duration_days, similarity
	)
	VALUES (?, ?, ?, ?, CAST(? AS DATE), CAST(? AS DATE), ?, ?, ?, ?)
	ON CONFLICT (prediction_id, rank) DO NOTHING
`

// nullable maps an expected figure to NULL when no match backed it
func nullable(p *model.Prediction, v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: p.HasForecast()}
}

// insertPrediction appends a prediction and its ranked matches
func insertPrediction(ctx context.Context, q dbtx, p *model.Prediction) error {
	id := model.GeneratePredictionID(p.StockID, p.GeneratedAt)

	_, err := q.ExecContext(ctx, insertPredictionSQL,
		id, p.RunID, p.StockID, p.StockName, p.GeneratedAt.UTC(),
		p.CurrentBPoint.Ordinal, model.DateKey(p.CurrentBPoint.Date), p.CurrentBPoint.Price.InexactFloat64(),
		p.CurrentElapsedDays, p.CurrentReturn, p.CurrentPrice.InexactFloat64(), p.CurrentPattern.String(),
		p.MatchCount,
		nullable(p, p.ExpectedReturn), nullable(p, p.ExpectedReturnMin), nullable(p, p.ExpectedReturnMax),
		nullable(p, p.ExpectedMaxReturn),
		sql.NullInt64{Int64: int64(p.ExpectedDuration), Valid: p.HasForecast()},
		p.Confidence, p.InvestmentScore,
		p.BuyLadder[0].InexactFloat64(), p.BuyLadder[1].InexactFloat64(), p.BuyLadder[2].InexactFloat64(),
		p.BuyLadder[3].InexactFloat64(), p.BuyLadder[4].InexactFloat64(),
		p.AvgBuyPrice.InexactFloat64(), p.TargetPrice.InexactFloat64(), nullable(p, p.TargetReturn),
		p.DominantPattern.String(), string(p.Recommendation),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	for rank, m := range p.Matches {
		_, err := q.ExecContext(ctx, insertMatchSQL,
			id, rank+1, m.SegmentID, m.StockID, model.DateKey(m.StartDate), model.DateKey(m.EndDate),
			m.Return, m.MaxReturn, m.DurationDays, m.Similarity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert prediction match: %w", err)
		}
	}
	return nil
}

// Insert appends a prediction in its own transaction
func (r *PredictionRepo) Insert(ctx context.Context, p *model.Prediction) error {
	return r.client.withTx(ctx, func(tx *sql.Tx) error {
		return insertPrediction(ctx, tx, p)
	})
}

// Latest returns the most recent prediction for a stock with its matches
func (r *PredictionRepo) Latest(ctx context.Context, stockID string) (*model.Prediction, error) {
	predictions, err := r.query(ctx, `
		WHERE stock_id = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, stockID)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, sql.ErrNoRows
	}
	return predictions[0], nil
}

// ListByRun returns every prediction of a run ordered by investment score
func (r *PredictionRepo) ListByRun(ctx context.Context, runID string) ([]*model.Prediction, error) {
	return r.query(ctx, `
		WHERE run_id = ?
		ORDER BY investment_score DESC, stock_id ASC
	`, runID)
}

// CountByStock returns the number of retained predictions for a stock
func (r *PredictionRepo) CountByStock(ctx context.Context, stockID string) (int64, error) {
	var count int64
	err := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM predictions WHERE stock_id = ?", stockID).Scan(&count)
	return count, err
}

func (r *PredictionRepo) query(ctx context.Context, where string, args ...interface{}) ([]*model.Prediction, error) {
	rows, err := r.client.Query(ctx, `
		SELECT prediction_id, run_id, stock_id, stock_name, generated_at,
			current_bpoint_ordinal, current_bpoint_date, current_bpoint_price,
			current_elapsed_days, current_return, current_price, current_pattern,
			match_count, expected_return, expected_return_min, expected_return_max,
			expected_max_return, expected_duration, confidence, investment_score,
			buy_price_1, buy_price_2, buy_price_3, buy_price_4, buy_price_5,
			avg_buy_price, target_price, target_return, dominant_pattern, recommendation
		FROM predictions
	`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var ids []string
	var predictions []*model.Prediction
	for rows.Next() {
		var p model.Prediction
		var id string
		var runID, name, currentPattern, dominant sql.NullString
		var bpointPrice, currentPrice float64
		var expReturn, expMin, expMax, expMaxReturn, targetReturn sql.NullFloat64
		var expDuration sql.NullInt64
		var ladder [model.LadderSize]sql.NullFloat64
		var avg, target sql.NullFloat64
		var recommendation string

		err := rows.Scan(
			&id, &runID, &p.StockID, &name, &p.GeneratedAt,
			&p.CurrentBPoint.Ordinal, &p.CurrentBPoint.Date, &bpointPrice,
			&p.CurrentElapsedDays, &p.CurrentReturn, &currentPrice, &currentPattern,
			&p.MatchCount, &expReturn, &expMin, &expMax,
			&expMaxReturn, &expDuration, &p.Confidence, &p.InvestmentScore,
			&ladder[0], &ladder[1], &ladder[2], &ladder[3], &ladder[4],
			&avg, &target, &targetReturn, &dominant, &recommendation,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}

		p.RunID = runID.String
		p.StockName = name.String
		p.CurrentBPoint.StockID = p.StockID
		p.CurrentBPoint.Price = decimal.NewFromFloat(bpointPrice)
		p.CurrentPrice = decimal.NewFromFloat(currentPrice)
		p.CurrentPattern, _ = model.ParsePattern(currentPattern.String)
		p.ExpectedReturn = expReturn.Float64
		p.ExpectedReturnMin = expMin.Float64
		p.ExpectedReturnMax = expMax.Float64
		p.ExpectedMaxReturn = expMaxReturn.Float64
		p.ExpectedDuration = int(expDuration.Int64)
		for i, v := range ladder {
			p.BuyLadder[i] = decimal.NewFromFloat(v.Float64)
		}
		p.AvgBuyPrice = decimal.NewFromFloat(avg.Float64)
		p.TargetPrice = decimal.NewFromFloat(target.Float64)
		p.TargetReturn = targetReturn.Float64
		p.DominantPattern, _ = model.ParsePattern(dominant.String)
		p.Recommendation = model.Recommendation(recommendation)

		ids = append(ids, id)
		predictions = append(predictions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, p := range predictions {
		matches, err := r.matches(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		p.Matches = matches
	}
	return predictions, nil
}

func (r *PredictionRepo) matches(ctx context.Context, predictionID string) ([]model.Match, error) {
	rows, err := r.client.Query(ctx, `
		SELECT segment_id, stock_id, start_date, end_date, total_return, max_return, duration_days, similarity
		FROM prediction_matches
		WHERE prediction_id = ?
		ORDER BY rank ASC
	`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.SegmentID, &m.StockID, &m.StartDate, &m.EndDate,
			&m.Return, &m.MaxReturn, &m.DurationDays, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan prediction match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
