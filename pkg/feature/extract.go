package feature

import (
	"fmt"

	"github.com/tunogya/subpattern/pkg/model"
)

// Extractor derives scalar features and shape vectors from segments
type Extractor struct {
	FeatureVersion int
	VectorDim      int // Shape length shared by the corpus and every query
}

// NewExtractor creates a new feature extractor
func NewExtractor(featureVersion, vectorDim int) *Extractor {
	if vectorDim <= 0 {
		vectorDim = model.VectorDim32
	}
	return &Extractor{
		FeatureVersion: featureVersion,
		VectorDim:      vectorDim,
	}
}

// Calculate fills the segment's return, extremes, volatility and dominant pattern
func (e *Extractor) Calculate(seg *model.Segment) error {
	if len(seg.Bars) == 0 {
		return fmt.Errorf("%w: segment %s has no bars", model.ErrInsufficientHistory, seg.SegmentID)
	}

	startPrice := seg.StartPrice()
	if startPrice <= 0 {
		return fmt.Errorf("%w: segment %s has non-positive start price", model.ErrInvariantViolation, seg.SegmentID)
	}

	seg.Return = (seg.EndPrice() - startPrice) / startPrice
	seg.MaxReturn, seg.MinReturn = calculateExtremes(seg.Bars, startPrice)
	seg.Volatility = calculateVolatility(seg.Bars)
	seg.DominantPattern = DominantPattern(seg.Patterns())
	return nil
}

// Vector returns the normalized shape of the segment's closes
func (e *Extractor) Vector(seg *model.Segment) (model.ShapeVector, error) {
	if len(seg.Bars) == 0 {
		return nil, fmt.Errorf("%w: segment %s has no bars", model.ErrInsufficientHistory, seg.SegmentID)
	}
	return Normalize(seg.Closes(), e.VectorDim), nil
}

// DominantPattern returns the most frequent label. Ties go to the higher priority pattern.
func DominantPattern(patterns []model.Pattern) model.Pattern {
	if len(patterns) == 0 {
		return model.PatternOther
	}

	counts := make(map[model.Pattern]int, len(model.AllPatterns))
	for _, p := range patterns {
		counts[p]++
	}

	best := model.PatternOther
	bestCount := -1
	// AllPatterns is ordered by priority, so the first maximum wins ties
	for _, p := range model.AllPatterns {
		if counts[p] > bestCount {
			best = p
			bestCount = counts[p]
		}
	}
	return best
}

// calculateExtremes returns the max and min close-based return against the start price
func calculateExtremes(bars []model.PriceBar, startPrice float64) (maxRet, minRet float64) {
	maxRet = bars[0].ReturnFrom(startPrice)
	minRet = maxRet
	for i := range bars {
		r := bars[i].ReturnFrom(startPrice)
		if r > maxRet {
			maxRet = r
		}
		if r < minRet {
			minRet = r
		}
	}
	return maxRet, minRet
}

// calculateVolatility calculates the population standard deviation of daily returns
func calculateVolatility(bars []model.PriceBar) float64 {
	if len(bars) < 2 {
		return 0
	}

	returns := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		returns[i-1] = bars[i].ReturnFrom(bars[i-1].Close)
	}

	_, std := meanStd(returns)
	return std
}
