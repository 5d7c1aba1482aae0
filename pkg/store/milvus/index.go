package milvus

import (
	"context"
	"fmt"

	"github.com/tunogya/subpattern/pkg/match"
	"github.com/tunogya/subpattern/pkg/model"
)

// segmentStore is the part of Client the index needs
type segmentStore interface {
	UpsertBatch(ctx context.Context, collectionName string, dataList []*SegmentData) error
	Search(ctx context.Context, collectionName string, embedding []float32, filter string, topK int) ([]SearchResult, error)
	Flush(ctx context.Context, collectionName string) error
}

// Index mirrors the closed-segment corpus into Milvus and answers
// approximate nearest-neighbour queries against it
type Index struct {
	store      segmentStore
	collection string
	threshold  float64
}

// NewIndex creates an index over a collection. Hits below threshold are discarded.
func NewIndex(store segmentStore, collection string, threshold float64) *Index {
	if collection == "" {
		collection = DefaultCollectionName
	}
	return &Index{store: store, collection: collection, threshold: threshold}
}

// IndexSegments upserts corpus shapes and flushes them
func (ix *Index) IndexSegments(ctx context.Context, entries []model.CorpusEntry) error {
	if len(entries) == 0 {
		return nil
	}

	data := make([]*SegmentData, 0, len(entries))
	for _, e := range entries {
		seg := e.Segment
		data = append(data, &SegmentData{
			SegmentID:      seg.SegmentID,
			Embedding:      e.Vector.ToFloat32(),
			StockID:        seg.StockID,
			StartDate:      seg.StartDate(),
			EndDate:        seg.EndDate(),
			DurationDays:   int32(seg.DurationDays),
			Return:         float32(seg.Return),
			MaxReturn:      float32(seg.MaxReturn),
			FeatureVersion: int32(seg.FeatureVersion),
		})
	}

	if err := ix.store.UpsertBatch(ctx, ix.collection, data); err != nil {
		return fmt.Errorf("failed to index %d segments: %w", len(data), err)
	}
	return ix.store.Flush(ctx, ix.collection)
}

// Search returns ranked matches for a query shape. An empty stockID searches every stock.
func (ix *Index) Search(ctx context.Context, query model.ShapeVector, stockID string, topK int) ([]model.Match, error) {
	filter := ""
	if stockID != "" {
		filter = fmt.Sprintf("stock_id == %q", stockID)
	}

	results, err := ix.store.Search(ctx, ix.collection, query.ToFloat32(), filter, topK)
	if err != nil {
		return nil, err
	}

	matches := make([]model.Match, 0, len(results))
	for _, r := range results {
		sim := float64(r.Score)
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		matches = append(matches, model.Match{
			SegmentID:    r.SegmentID,
			StockID:      r.StockID,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			Return:       float64(r.Return),
			MaxReturn:    float64(r.MaxReturn),
			DurationDays: int(r.DurationDays),
			Similarity:   sim,
		})
	}

	matches = match.FilterByMinScore(matches, ix.threshold)
	match.Rank(matches)
	return match.TopN(matches, topK), nil
}
