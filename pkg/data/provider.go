package data

import (
	"context"

	"github.com/tunogya/subpattern/pkg/model"
)

// HistoryProvider supplies the per-stock inputs the engine consumes.
// None of these are computed by the engine itself.
type HistoryProvider interface {
	// FetchPrices returns daily bars in any order. Callers sort them.
	FetchPrices(ctx context.Context, stockID string) ([]model.PriceBar, error)

	// FetchBPoints returns the stock's B-points ordered by ordinal
	FetchBPoints(ctx context.Context, stockID string) ([]model.BPoint, error)

	// FetchPatternLabels returns one pattern label per trading day
	FetchPatternLabels(ctx context.Context, stockID string) ([]model.PatternLabel, error)
}

// UniverseProvider supplies the set of stocks to process in a run
type UniverseProvider interface {
	ActiveStocks(ctx context.Context) ([]model.Stock, error)
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Inputs is everything fetched for one stock
type Inputs struct {
	Bars    []model.PriceBar
	BPoints []model.BPoint
}

// FetchInputs loads prices, B-points and pattern labels for a stock and
// attaches the labels to the bars
func FetchInputs(ctx context.Context, p HistoryProvider, stockID string) (*Inputs, error) {
	bars, err := p.FetchPrices(ctx, stockID)
	if err != nil {
		return nil, err
	}
	points, err := p.FetchBPoints(ctx, stockID)
	if err != nil {
		return nil, err
	}
	labels, err := p.FetchPatternLabels(ctx, stockID)
	if err != nil {
		return nil, err
	}

	bars = model.SortBars(bars)
	model.ApplyLabels(bars, labels)
	return &Inputs{Bars: bars, BPoints: points}, nil
}
