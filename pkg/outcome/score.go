package outcome

import (
	"math"

	"github.com/tunogya/subpattern/pkg/model"
)

// ReturnRules scores the expected return (max 40)
var ReturnRules = []Rule[float64]{
	{Bound: 0.30, Value: 40},
	{Bound: 0.20, Value: 30},
	{Bound: 0.10, Value: 20},
	{Bound: 0.05, Value: 10},
}

// MatchCountRules scores statistical support (max 30)
var MatchCountRules = []Rule[int]{
	{Bound: 15, Value: 30},
	{Bound: 10, Value: 20},
	{Bound: 5, Value: 10},
}

// PatternScores scores the current day's pattern (max 20)
var PatternScores = map[model.Pattern]int{
	model.PatternBreakout:         20,
	model.PatternBreakoutPullback: 15,
	model.PatternBoxRange:         10,
}

// CurrentReturnRules rewards buying below breakeven (max 10). Bounds are strict.
var CurrentReturnRules = []Rule[float64]{
	{Bound: -0.05, Value: 10},
	{Bound: 0, Value: 7},
	{Bound: 0.05, Value: 5},
}

// ConfidenceRules maps match count to confidence in [0, 100]
var ConfidenceRules = []Rule[int]{
	{Bound: 15, Value: 100},
	{Bound: 10, Value: 75},
	{Bound: 5, Value: 50},
	{Bound: 1, Value: 25},
}

// Buckets is the breakdown of an investment score
type Buckets struct {
	Return        int `json:"return"`
	MatchCount    int `json:"match_count"`
	Pattern       int `json:"pattern"`
	CurrentReturn int `json:"current_return"`
}

// Total sums the buckets clamped to [0, 100]
func (b Buckets) Total() int {
	total := b.Return + b.MatchCount + b.Pattern + b.CurrentReturn
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Score evaluates the four independent buckets. Without matches only the
// pattern and current-return buckets contribute.
func Score(matchCount int, expectedReturn float64, current model.Pattern, currentReturn float64) Buckets {
	b := Buckets{
		Pattern:       PatternScores[current],
		CurrentReturn: Below(CurrentReturnRules, Round4(currentReturn), 0),
	}
	if matchCount > 0 {
		b.Return = AtLeast(ReturnRules, Round4(expectedReturn), 0)
		b.MatchCount = AtLeast(MatchCountRules, matchCount, 0)
	}
	return b
}

// Confidence is a non-decreasing step function of the match count
func Confidence(matchCount int) int {
	return AtLeast(ConfidenceRules, matchCount, 0)
}

// MaxScore returns the sum of every bucket's maximum
func MaxScore() int {
	patternMax := 0
	for _, v := range PatternScores {
		if v > patternMax {
			patternMax = v
		}
	}
	return maxValue(ReturnRules, 0) + maxValue(MatchCountRules, 0) + patternMax + maxValue(CurrentReturnRules, 0)
}

// Round4 rounds a fractional return to 4 places (0.01%) so that bucket
// boundaries are not missed by floating-point noise
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
