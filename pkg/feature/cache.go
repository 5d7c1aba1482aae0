package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/subpattern/pkg/cache"
	"github.com/tunogya/subpattern/pkg/model"
)

// CachedExtractor memoizes closed-segment shape vectors in a cache.Service.
// Closed segments are immutable, so a vector keyed by segment ID and dimension never goes stale.
type CachedExtractor struct {
	*Extractor
	cache cache.Service
	ttl   time.Duration
}

// NewCachedExtractor wraps an extractor with a vector cache
func NewCachedExtractor(e *Extractor, c cache.Service, ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{Extractor: e, cache: c, ttl: ttl}
}

// VectorKey returns the cache key for a segment's shape
func VectorKey(segmentID string, dim int) string {
	return fmt.Sprintf("vector:%s:%d", segmentID, dim)
}

// Vector returns the segment's shape, reading through the cache for closed segments.
// Cache failures fall back to computing the vector.
func (c *CachedExtractor) Vector(ctx context.Context, seg *model.Segment) (model.ShapeVector, bool, error) {
	if seg.IsOpen() || c.cache == nil {
		v, err := c.Extractor.Vector(seg)
		return v, false, err
	}

	key := VectorKey(seg.SegmentID, c.VectorDim)
	var cached []float64
	err := c.cache.Get(ctx, key, &cached)
	if err == nil && len(cached) == c.VectorDim {
		return model.ShapeVector(cached), true, nil
	}

	v, err := c.Extractor.Vector(seg)
	if err != nil {
		return nil, false, err
	}
	// a failed write only costs a recompute next run
	_ = c.cache.Set(ctx, key, []float64(v), c.ttl)
	return v, false, nil
}
