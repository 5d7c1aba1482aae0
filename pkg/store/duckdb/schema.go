package duckdb

import (
	"context"
	"fmt"
)

// Schema contains table creation statements for all required tables

// CreateStocksTable creates the active universe table
const CreateStocksTable = `
CREATE TABLE IF NOT EXISTS stocks (
    stock_id VARCHAR PRIMARY KEY,
    name VARCHAR,
    active BOOLEAN NOT NULL DEFAULT TRUE
);
`

// CreatePricesTable creates the daily price fact table with pattern labels
const CreatePricesTable = `
CREATE TABLE IF NOT EXISTS prices (
    stock_id VARCHAR NOT NULL,
    date DATE NOT NULL,
    open DOUBLE,
    high DOUBLE,
    low DOUBLE,
    close DOUBLE NOT NULL,
    volume BIGINT,
    pattern VARCHAR,
    PRIMARY KEY (stock_id, date)
);
`

// CreateBPointsTable creates the B-point table
const CreateBPointsTable = `
CREATE TABLE IF NOT EXISTS bpoints (
    stock_id VARCHAR NOT NULL,
    ordinal INTEGER NOT NULL,
    date DATE NOT NULL,
    price DOUBLE NOT NULL,
    PRIMARY KEY (stock_id, ordinal)
);
`

// CreateSegmentsTable creates the append-only segment corpus
const CreateSegmentsTable = `
CREATE TABLE IF NOT EXISTS segments (
    segment_id VARCHAR PRIMARY KEY,
    stock_id VARCHAR NOT NULL,
    start_ordinal INTEGER NOT NULL,
    start_date DATE NOT NULL,
    start_price DOUBLE NOT NULL,
    end_ordinal INTEGER NOT NULL,
    end_date DATE NOT NULL,
    end_price DOUBLE NOT NULL,
    duration_days INTEGER NOT NULL,
    total_return DOUBLE,
    max_return DOUBLE,
    min_return DOUBLE,
    volatility DOUBLE,
    dominant_pattern VARCHAR,
    feature_version INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_segments_stock ON segments(stock_id);
`

// CreatePredictionsTable creates the append-only prediction history
const CreatePredictionsTable = `
CREATE TABLE IF NOT EXISTS predictions (
    prediction_id VARCHAR PRIMARY KEY,
    run_id VARCHAR,
    stock_id VARCHAR NOT NULL,
    stock_name VARCHAR,
    generated_at TIMESTAMP NOT NULL,
    current_bpoint_ordinal INTEGER NOT NULL,
    current_bpoint_date DATE NOT NULL,
    current_bpoint_price DOUBLE NOT NULL,
    current_elapsed_days INTEGER NOT NULL,
    current_return DOUBLE NOT NULL,
    current_price DOUBLE NOT NULL,
    current_pattern VARCHAR,
    match_count INTEGER NOT NULL,
    expected_return DOUBLE,
    expected_return_min DOUBLE,
    expected_return_max DOUBLE,
    expected_max_return DOUBLE,
    expected_duration INTEGER,
    confidence INTEGER NOT NULL,
    investment_score INTEGER NOT NULL,
    buy_price_1 DOUBLE,
    buy_price_2 DOUBLE,
    buy_price_3 DOUBLE,
    buy_price_4 DOUBLE,
    buy_price_5 DOUBLE,
    avg_buy_price DOUBLE,
    target_price DOUBLE,
    target_return DOUBLE,
    dominant_pattern VARCHAR,
    recommendation VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_stock ON predictions(stock_id, generated_at);
`

// CreatePredictionMatchesTable creates the ranked match list of each prediction
const CreatePredictionMatchesTable = `
CREATE TABLE IF NOT EXISTS prediction_matches (
    prediction_id VARCHAR NOT NULL,
    rank INTEGER NOT NULL,
    segment_id VARCHAR NOT NULL,
    stock_id VARCHAR NOT NULL,
    start_date DATE,
    end_date DATE,
    total_return DOUBLE,
    max_return DOUBLE,
    duration_days INTEGER,
    similarity DOUBLE NOT NULL,
    PRIMARY KEY (prediction_id, rank)
);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	schemas := []string{
		CreateStocksTable,
		CreatePricesTable,
		CreateBPointsTable,
		CreateSegmentsTable,
		CreatePredictionsTable,
		CreatePredictionMatchesTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops every table, children before parents
func DropAllTables(ctx context.Context, c *Client) error {
	tables := []string{"prediction_matches", "predictions", "segments", "bpoints", "prices", "stocks"}
	for _, table := range tables {
		if err := c.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
