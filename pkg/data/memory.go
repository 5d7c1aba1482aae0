package data

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tunogya/subpattern/pkg/model"
)

// MemoryProvider implements HistoryProvider and UniverseProvider with in-memory storage
type MemoryProvider struct {
	mu       sync.RWMutex
	stocks   []model.Stock
	bars     map[string][]model.PriceBar
	bpoints  map[string][]model.BPoint
	failures map[string]error
}

// NewMemoryProvider creates a new in-memory provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		bars:     make(map[string][]model.PriceBar),
		bpoints:  make(map[string][]model.BPoint),
		failures: make(map[string]error),
	}
}

// AddStock registers a stock in the active universe
func (p *MemoryProvider) AddStock(stock model.Stock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stocks = append(p.stocks, stock)
}

// AddBars adds bars to a stock. Pattern labels travel on the bars.
func (p *MemoryProvider) AddBars(stockID string, bars []model.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[stockID] = append(p.bars[stockID], bars...)
}

// AddBPoints adds B-points to a stock
func (p *MemoryProvider) AddBPoints(stockID string, points []model.BPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bpoints[stockID] = append(p.bpoints[stockID], points...)
	sort.SliceStable(p.bpoints[stockID], func(i, j int) bool {
		return p.bpoints[stockID][i].Ordinal < p.bpoints[stockID][j].Ordinal
	})
}

// SetFailure makes every fetch for the stock return err
func (p *MemoryProvider) SetFailure(stockID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[stockID] = err
}

func (p *MemoryProvider) failure(stockID string) error {
	if err, ok := p.failures[stockID]; ok {
		return &ProviderError{Provider: "memory", Err: err, Retryable: false}
	}
	return nil
}

// ActiveStocks returns the registered universe
func (p *MemoryProvider) ActiveStocks(ctx context.Context) ([]model.Stock, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stocks := make([]model.Stock, len(p.stocks))
	copy(stocks, p.stocks)
	return stocks, nil
}

// FetchPrices returns a copy of the stock's bars
func (p *MemoryProvider) FetchPrices(ctx context.Context, stockID string) ([]model.PriceBar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.failure(stockID); err != nil {
		return nil, err
	}
	bars := make([]model.PriceBar, len(p.bars[stockID]))
	copy(bars, p.bars[stockID])
	return bars, nil
}

// FetchBPoints returns a copy of the stock's B-points
func (p *MemoryProvider) FetchBPoints(ctx context.Context, stockID string) ([]model.BPoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.failure(stockID); err != nil {
		return nil, err
	}
	points := make([]model.BPoint, len(p.bpoints[stockID]))
	copy(points, p.bpoints[stockID])
	return points, nil
}

// FetchPatternLabels derives labels from the stored bars
func (p *MemoryProvider) FetchPatternLabels(ctx context.Context, stockID string) ([]model.PatternLabel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.failure(stockID); err != nil {
		return nil, err
	}
	return labelsFromBars(p.bars[stockID]), nil
}

func labelsFromBars(bars []model.PriceBar) []model.PatternLabel {
	labels := make([]model.PatternLabel, len(bars))
	for i, b := range bars {
		labels[i] = model.PatternLabel{Date: b.Date, Pattern: b.Pattern}
	}
	return labels
}

// String describes the provider contents
func (p *MemoryProvider) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("memory provider: %d stocks", len(p.stocks))
}
