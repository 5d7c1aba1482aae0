package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/feature"
	"github.com/tunogya/subpattern/pkg/match"
	"github.com/tunogya/subpattern/pkg/model"
	"github.com/tunogya/subpattern/pkg/outcome"
	"github.com/tunogya/subpattern/pkg/recommend"
	"github.com/tunogya/subpattern/pkg/segment"
)

// Pipeline runs the per-stock stages: fetch, segment, featurize, match, aggregate and map
type Pipeline struct {
	provider   data.HistoryProvider
	segments   *segment.Extractor
	features   *feature.CachedExtractor
	matcher    *match.Matcher
	crossStock bool
}

// NewPipeline wires the per-stock stages. features may wrap a nil cache.
func NewPipeline(provider data.HistoryProvider, segments *segment.Extractor, features *feature.CachedExtractor, matcher *match.Matcher, crossStock bool) *Pipeline {
	return &Pipeline{
		provider:   provider,
		segments:   segments,
		features:   features,
		matcher:    matcher,
		crossStock: crossStock,
	}
}

// Extraction is a stock's segmented and featurized history
type Extraction struct {
	Stock      model.Stock
	Closed     []model.CorpusEntry
	Open       *model.Segment // nil when the open segment is too short to evaluate
	Query      model.ShapeVector
	Degenerate bool
	CacheHits  int
}

// Segments returns the closed segments in start order
func (e *Extraction) Segments() []*model.Segment {
	segs := make([]*model.Segment, len(e.Closed))
	for i, entry := range e.Closed {
		segs[i] = entry.Segment
	}
	return segs
}

// Extract fetches a stock's inputs and builds its closed corpus entries and query
func (p *Pipeline) Extract(ctx context.Context, stock model.Stock) (*Extraction, error) {
	inputs, err := data.FetchInputs(ctx, p.provider, stock.StockID)
	if err != nil {
		return nil, err
	}

	res, err := p.segments.Extract(stock.StockID, inputs.BPoints, inputs.Bars)
	if err != nil {
		return nil, err
	}

	ext := &Extraction{Stock: stock, Closed: make([]model.CorpusEntry, 0, len(res.Closed))}
	for _, seg := range res.Closed {
		if err := p.features.Calculate(seg); err != nil {
			return nil, err
		}
		vec, hit, err := p.features.Vector(ctx, seg)
		if err != nil {
			return nil, err
		}
		if hit {
			ext.CacheHits++
		}
		ext.Closed = append(ext.Closed, model.CorpusEntry{Segment: seg, Vector: vec})
	}

	if res.Open != nil {
		if err := p.features.Calculate(res.Open); err != nil {
			return nil, err
		}
		query, _, err := p.features.Vector(ctx, res.Open)
		if err != nil {
			return nil, err
		}
		ext.Open = res.Open
		ext.Query = query
		ext.Degenerate = feature.IsDegenerate(res.Open.Closes())
	}

	return ext, nil
}

// Predict matches the stock's open segment against the corpus snapshot and assembles a prediction
func (p *Pipeline) Predict(ext *Extraction, corpus *match.Corpus, runID string, generatedAt time.Time) (*model.Prediction, error) {
	if ext.Open == nil {
		return nil, fmt.Errorf("%w: open segment for %s is too short", ErrInsufficientHistory, ext.Stock.StockID)
	}

	matches, err := p.matcher.Match(ext.Query, corpus.Scope(ext.Stock.StockID, p.crossStock))
	if err != nil {
		return nil, fmt.Errorf("stock %s: %w", ext.Stock.StockID, err)
	}

	current := outcome.Current{Return: ext.Open.Return, Pattern: model.PatternOther}
	if last := ext.Open.LastBar(); last != nil {
		current.Pattern = last.Pattern
	}
	forecast := outcome.Aggregate(matches, current)

	pred := recommend.Map(recommend.Input{
		RunID:       runID,
		Stock:       ext.Stock,
		GeneratedAt: generatedAt,
		Open:        ext.Open,
		Forecast:    forecast,
		Matches:     matches,
	})
	return &pred, nil
}
