package segment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tunogya/subpattern/pkg/model"
)

// Config holds configuration for segment extraction
type Config struct {
	MinDuration    int // Closed segments shorter than this many trading days are dropped
	MinOpenBars    int // Open segment must have at least this many bars to be evaluated
	FeatureVersion int // Version for segment ID generation
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MinDuration:    5,
		MinOpenBars:    2,
		FeatureVersion: 1,
	}
}

// Extractor cuts a stock's price history into segments between consecutive B-points
type Extractor struct {
	cfg Config
}

// NewExtractor creates a new segment extractor with the given configuration
func NewExtractor(cfg Config) *Extractor {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = 5
	}
	if cfg.MinOpenBars <= 0 {
		cfg.MinOpenBars = 2
	}
	if cfg.FeatureVersion <= 0 {
		cfg.FeatureVersion = 1
	}
	return &Extractor{cfg: cfg}
}

// Config returns the effective configuration
func (e *Extractor) Config() Config {
	return e.cfg
}

// Result is the outcome of extracting one stock
type Result struct {
	StockID string
	Closed  []*model.Segment // Corpus candidates, ordered by start ordinal
	Open    *model.Segment   // nil when the latest B-point has too few bars after it
	Dropped int              // Closed spans shorter than MinDuration
}

// Query returns the open segment or ErrInsufficientHistory when it cannot be evaluated
func (r *Result) Query() (*model.Segment, error) {
	if r.Open == nil {
		return nil, fmt.Errorf("%w: open segment for %s is too short", model.ErrInsufficientHistory, r.StockID)
	}
	return r.Open, nil
}

// Extract builds the closed segments and the open segment for one stock.
// Bars may arrive in any order; they are sorted and de-duplicated by date.
// The same inputs always produce the same segments with the same IDs.
func (e *Extractor) Extract(stockID string, points []model.BPoint, bars []model.PriceBar) (*Result, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: stock %s has %d b-points", model.ErrInsufficientHistory, stockID, len(points))
	}
	if err := model.ValidateBPoints(points); err != nil {
		return nil, fmt.Errorf("stock %s: %w", stockID, err)
	}

	sorted := model.SortBars(bars)
	for i := range sorted {
		c := sorted[i].Close
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return nil, fmt.Errorf("%w: stock %s has invalid close %v on %s",
				model.ErrInvariantViolation, stockID, c, sorted[i].Date.Format("2006-01-02"))
		}
		sorted[i].StockID = stockID
	}

	anchors := make([]model.BPoint, len(points))
	copy(anchors, points)
	for i := range anchors {
		anchors[i].StockID = stockID
	}

	result := &Result{StockID: stockID}

	for i := 0; i < len(anchors)-1; i++ {
		start, end := anchors[i], anchors[i+1]
		span := barsBetween(sorted, start.Date, end.Date)
		if len(span) < e.cfg.MinDuration {
			result.Dropped++
			continue
		}
		result.Closed = append(result.Closed, model.NewClosedSegment(start, end, span, e.cfg.FeatureVersion))
	}

	latest := anchors[len(anchors)-1]
	if len(sorted) > 0 {
		open := barsBetween(sorted, latest.Date, sorted[len(sorted)-1].Date)
		if len(open) >= e.cfg.MinOpenBars {
			result.Open = model.NewOpenSegment(latest, open, e.cfg.FeatureVersion)
		}
	}

	return result, nil
}

// barsBetween returns a copy of the bars dated within [from, to], both ends included
func barsBetween(sorted []model.PriceBar, from, to time.Time) []model.PriceBar {
	lo := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Date.Before(from)
	})
	hi := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Date.After(to)
	})
	if lo >= hi {
		return nil
	}

	span := make([]model.PriceBar, hi-lo)
	copy(span, sorted[lo:hi])
	return span
}
