package engine

import (
	"context"
	"sync"

	"github.com/tunogya/subpattern/pkg/model"
)

// Sink receives a stock's new closed segments and its prediction once the
// stock's pipeline has completed. prediction may be nil.
type Sink interface {
	Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error
}

// VectorIndex mirrors the corpus snapshot into an external vector store
type VectorIndex interface {
	IndexSegments(ctx context.Context, entries []model.CorpusEntry) error
}

// KeyedSink serializes appends per stock so at most one write per stock is in flight.
// Appends for different stocks proceed concurrently.
type KeyedSink struct {
	inner Sink

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedSink wraps inner with a per-stock lock
func NewKeyedSink(inner Sink) *KeyedSink {
	if ks, ok := inner.(*KeyedSink); ok {
		return ks
	}
	return &KeyedSink{inner: inner, locks: make(map[string]*sync.Mutex)}
}

func (s *KeyedSink) Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error {
	l := s.lock(stockID)
	l.Lock()
	defer l.Unlock()
	return s.inner.Append(ctx, stockID, segments, prediction)
}

func (s *KeyedSink) lock(stockID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[stockID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stockID] = l
	}
	return l
}

// MultiSink appends to every sink in order and stops at the first error
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error {
	for _, s := range m {
		if err := s.Append(ctx, stockID, segments, prediction); err != nil {
			return err
		}
	}
	return nil
}
