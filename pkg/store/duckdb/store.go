package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunogya/subpattern/pkg/model"
)

// Store bundles the repositories behind the engine's collaborator interfaces.
// It reads prices, B-points, labels and the universe, and appends segments and predictions.
type Store struct {
	client      *Client
	Stocks      *StockRepo
	Prices      *PriceRepo
	BPoints     *BPointRepo
	Segments    *SegmentRepo
	Predictions *PredictionRepo
}

// NewStore creates a store over an initialized client
func NewStore(client *Client) *Store {
	return &Store{
		client:      client,
		Stocks:      NewStockRepo(client),
		Prices:      NewPriceRepo(client),
		BPoints:     NewBPointRepo(client),
		Segments:    NewSegmentRepo(client),
		Predictions: NewPredictionRepo(client),
	}
}

// Open opens the database at path and creates the schema
func Open(ctx context.Context, path string) (*Store, error) {
	client, err := NewClient(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := InitializeSchema(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return NewStore(client), nil
}

// Reset drops every table and recreates an empty schema
func (s *Store) Reset(ctx context.Context) error {
	if err := DropAllTables(ctx, s.client); err != nil {
		return err
	}
	return InitializeSchema(ctx, s.client)
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.client.Close()
}

// ActiveStocks returns the active universe
func (s *Store) ActiveStocks(ctx context.Context) ([]model.Stock, error) {
	return s.Stocks.ListActive(ctx)
}

// FetchPrices returns the stock's bars
func (s *Store) FetchPrices(ctx context.Context, stockID string) ([]model.PriceBar, error) {
	return s.Prices.GetByStock(ctx, stockID)
}

// FetchBPoints returns the stock's B-points
func (s *Store) FetchBPoints(ctx context.Context, stockID string) ([]model.BPoint, error) {
	return s.BPoints.GetByStock(ctx, stockID)
}

// FetchPatternLabels returns the stock's daily labels
func (s *Store) FetchPatternLabels(ctx context.Context, stockID string) ([]model.PatternLabel, error) {
	return s.Prices.GetLabels(ctx, stockID)
}

// Append writes a stock's new closed segments and its prediction in one
// transaction. Re-appending the same data is a no-op.
func (s *Store) Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error {
	if prediction != nil && prediction.StockID != stockID {
		return fmt.Errorf("%w: prediction for %s appended under %s", model.ErrInvariantViolation, prediction.StockID, stockID)
	}

	return s.client.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := insertSegments(ctx, tx, segments); err != nil {
			return err
		}
		if prediction == nil {
			return nil
		}
		return insertPrediction(ctx, tx, prediction)
	})
}
