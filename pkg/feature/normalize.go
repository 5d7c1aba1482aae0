package feature

import (
	"math"

	"github.com/tunogya/subpattern/pkg/model"
)

// DegenerateValue fills the shape of a constant-price series
const DegenerateValue = 0.5

// Normalize maps a close series to a fixed-length shape vector in [0, 1].
// The series is min-max scaled on its own range, then linearly resampled to dim points.
func Normalize(closes []float64, dim int) model.ShapeVector {
	if dim <= 0 || len(closes) == 0 {
		return nil
	}

	scaled := MinMaxNormalize(closes)
	resampled := Resample(scaled, dim)

	vector := model.NewShapeVector(dim)
	for i, v := range resampled {
		vector[i] = clamp01(v)
	}
	return vector
}

// MinMaxNormalize scales values to [0, 1] range.
// A constant series has no range and maps to DegenerateValue everywhere.
func MinMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	min, max := minMax(values)
	rangeVal := max - min

	result := make([]float64, len(values))
	for i, v := range values {
		if rangeVal == 0 {
			result[i] = DegenerateValue
			continue
		}
		result[i] = (v - min) / rangeVal
	}

	return result
}

// Resample projects values onto n evenly spaced points using linear interpolation.
// Both endpoints are preserved.
func Resample(values []float64, n int) []float64 {
	if n <= 0 || len(values) == 0 {
		return nil
	}

	result := make([]float64, n)
	if len(values) == 1 {
		for i := range result {
			result[i] = values[0]
		}
		return result
	}
	if n == 1 {
		result[0] = values[0]
		return result
	}

	last := len(values) - 1
	step := float64(last) / float64(n-1)
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		lower := int(math.Floor(pos))
		if lower >= last {
			result[i] = values[last]
			continue
		}
		frac := pos - float64(lower)
		result[i] = values[lower] + frac*(values[lower+1]-values[lower])
	}
	result[n-1] = values[last]

	return result
}

// IsDegenerate reports whether the series has zero price range
func IsDegenerate(closes []float64) bool {
	if len(closes) == 0 {
		return false
	}
	min, max := minMax(closes)
	return min == max
}

func minMax(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// meanStd calculates mean and population standard deviation
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(values))
	std = math.Sqrt(variance)

	return mean, std
}
