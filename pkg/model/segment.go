package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Segment is the price sub-series between two consecutive B-points.
// The open segment has no EndBPoint and runs to the latest trading day.
type Segment struct {
	SegmentID       string     `json:"segment_id"`
	StockID         string     `json:"stock_id"`
	StartBPoint     BPoint     `json:"start_bpoint"`
	EndBPoint       *BPoint    `json:"end_bpoint,omitempty"`
	Bars            []PriceBar `json:"bars,omitempty"`
	DurationDays    int        `json:"duration_days"`
	Return          float64    `json:"return"`
	MaxReturn       float64    `json:"max_return"`
	MinReturn       float64    `json:"min_return"`
	Volatility      float64    `json:"volatility"`
	DominantPattern Pattern    `json:"dominant_pattern"`
	FeatureVersion  int        `json:"feature_version"`
}

// GenerateSegmentID creates a deterministic segment ID
// Format: hash(stock|start_ordinal|end_ordinal|feature_version)
// The same B-point pair always produces the same ID, so corpus writes are idempotent.
func GenerateSegmentID(stockID string, startOrdinal, endOrdinal, featureVersion int) string {
	data := fmt.Sprintf("%s|%d|%d|%d", stockID, startOrdinal, endOrdinal, featureVersion)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// GenerateOpenSegmentID identifies the open segment as of its last bar
func GenerateOpenSegmentID(stockID string, startOrdinal int, asOf time.Time, featureVersion int) string {
	data := fmt.Sprintf("%s|%d|open|%s|%d", stockID, startOrdinal, DateKey(asOf), featureVersion)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// NewClosedSegment creates a closed segment between two B-points
func NewClosedSegment(start, end BPoint, bars []PriceBar, featureVersion int) *Segment {
	endCopy := end
	return &Segment{
		SegmentID:      GenerateSegmentID(start.StockID, start.Ordinal, end.Ordinal, featureVersion),
		StockID:        start.StockID,
		StartBPoint:    start,
		EndBPoint:      &endCopy,
		Bars:           bars,
		DurationDays:   len(bars),
		FeatureVersion: featureVersion,
	}
}

// NewOpenSegment creates the open segment starting at the latest B-point
func NewOpenSegment(start BPoint, bars []PriceBar, featureVersion int) *Segment {
	var asOf time.Time
	if len(bars) > 0 {
		asOf = bars[len(bars)-1].Date
	}
	return &Segment{
		SegmentID:      GenerateOpenSegmentID(start.StockID, start.Ordinal, asOf, featureVersion),
		StockID:        start.StockID,
		StartBPoint:    start,
		Bars:           bars,
		DurationDays:   len(bars),
		FeatureVersion: featureVersion,
	}
}

// IsOpen returns true if the segment has no end B-point yet
func (s *Segment) IsOpen() bool {
	return s.EndBPoint == nil
}

// StartDate returns the start B-point date
func (s *Segment) StartDate() time.Time {
	return s.StartBPoint.Date
}

// EndDate returns the end B-point date, or the last bar date for the open segment
func (s *Segment) EndDate() time.Time {
	if s.EndBPoint != nil {
		return s.EndBPoint.Date
	}
	if last := s.LastBar(); last != nil {
		return last.Date
	}
	return time.Time{}
}

// StartPrice returns the anchor price all returns are measured from
func (s *Segment) StartPrice() float64 {
	return s.StartBPoint.Price.InexactFloat64()
}

// EndPrice returns the end B-point price, or the latest close for the open segment
func (s *Segment) EndPrice() float64 {
	if s.EndBPoint != nil {
		return s.EndBPoint.Price.InexactFloat64()
	}
	if last := s.LastBar(); last != nil {
		return last.Close
	}
	return 0
}

// LastBar returns the most recent bar in the segment
func (s *Segment) LastBar() *PriceBar {
	if len(s.Bars) == 0 {
		return nil
	}
	return &s.Bars[len(s.Bars)-1]
}

// Closes returns the closing-price series
func (s *Segment) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Patterns returns the daily pattern labels within the segment
func (s *Segment) Patterns() []Pattern {
	patterns := make([]Pattern, len(s.Bars))
	for i, b := range s.Bars {
		patterns[i] = b.Pattern
	}
	return patterns
}
