package match

import (
	"fmt"
	"math"
	"sort"

	"github.com/tunogya/subpattern/pkg/model"
)

// Config holds configuration for similarity matching
type Config struct {
	Threshold float64 // Minimum cosine similarity, inclusive
	TopK      int     // Maximum number of matches returned
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Threshold: 0.70,
		TopK:      20,
	}
}

// Matcher ranks corpus segments by shape similarity to a query
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given configuration
func NewMatcher(config Config) *Matcher {
	if config.TopK <= 0 {
		config.TopK = 20
	}
	return &Matcher{config: config}
}

// Cosine returns dot(a,b) / (|a|*|b|) clamped to [0, 1].
// Zero-magnitude vectors have similarity 0.
func Cosine(a, b model.ShapeVector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// Match scores every corpus entry against the query and returns the best
// TopK entries at or above the threshold. An empty result is not an error.
func (m *Matcher) Match(query model.ShapeVector, corpus []model.CorpusEntry) ([]model.Match, error) {
	var matches []model.Match
	for _, entry := range corpus {
		if entry.Segment == nil {
			continue
		}
		if entry.Vector.Dim() != query.Dim() {
			return nil, fmt.Errorf("%w: segment %s has dimension %d, query has %d",
				model.ErrInvariantViolation, entry.Segment.SegmentID, entry.Vector.Dim(), query.Dim())
		}

		sim := Cosine(query, entry.Vector)
		if !(sim >= m.config.Threshold) {
			continue
		}
		matches = append(matches, model.NewMatch(entry.Segment, sim))
	}

	Rank(matches)
	return TopN(matches, m.config.TopK), nil
}

// Rank sorts matches by similarity descending, then by more recent end date,
// then by segment ID so the order is fully deterministic.
func Rank(matches []model.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.EndDate.Equal(b.EndDate) {
			return a.EndDate.After(b.EndDate)
		}
		return a.SegmentID < b.SegmentID
	})
}

// TopN returns at most n leading matches
func TopN(matches []model.Match, n int) []model.Match {
	if len(matches) <= n {
		return matches
	}
	return matches[:n]
}

// FilterByMinScore keeps matches with similarity at or above minScore
func FilterByMinScore(matches []model.Match, minScore float64) []model.Match {
	var filtered []model.Match
	for _, m := range matches {
		if m.Similarity >= minScore {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
