package outcome

import (
	"fmt"
	"math"

	"github.com/tunogya/subpattern/pkg/model"
)

// Forecast holds the statistics aggregated from a stock's matches
type Forecast struct {
	MatchCount        int
	ExpectedReturn    float64
	ExpectedReturnMin float64
	ExpectedReturnMax float64
	ExpectedMaxReturn float64
	ExpectedDuration  int
	Confidence        int
	Buckets           Buckets
	InvestmentScore   int
}

// Current describes the open segment the forecast is made for
type Current struct {
	Pattern model.Pattern
	Return  float64
}

// Aggregate combines matches into expected figures, confidence and the investment score.
// With no matches every expected figure is zero and confidence is 0.
func Aggregate(matches []model.Match, current Current) Forecast {
	f := Forecast{MatchCount: len(matches)}

	if len(matches) > 0 {
		returns := make([]float64, len(matches))
		maxReturns := make([]float64, len(matches))
		durations := make([]float64, len(matches))
		for i, m := range matches {
			returns[i] = m.Return
			maxReturns[i] = m.MaxReturn
			durations[i] = float64(m.DurationDays)
		}

		f.ExpectedReturn = mean(returns)
		f.ExpectedReturnMin, f.ExpectedReturnMax = extremes(returns)
		f.ExpectedMaxReturn = mean(maxReturns)
		f.ExpectedDuration = int(math.Round(mean(durations)))
	}

	f.Confidence = Confidence(f.MatchCount)
	f.Buckets = Score(f.MatchCount, f.ExpectedReturn, current.Pattern, current.Return)
	f.InvestmentScore = f.Buckets.Total()
	return f
}

// String returns a formatted string representation
func (f Forecast) String() string {
	return fmt.Sprintf(
		"Matches: %d | Mean: %.4f | Min: %.4f | Max: %.4f | MaxRet: %.4f | Duration: %dd | Confidence: %d | Score: %d",
		f.MatchCount, f.ExpectedReturn, f.ExpectedReturnMin, f.ExpectedReturnMax,
		f.ExpectedMaxReturn, f.ExpectedDuration, f.Confidence, f.InvestmentScore,
	)
}

// mean calculates the arithmetic mean
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func extremes(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
