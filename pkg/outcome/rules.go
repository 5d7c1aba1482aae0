package outcome

import "cmp"

// Rule maps a lower (or upper) bound to a value
type Rule[T cmp.Ordered] struct {
	Bound T
	Value int
}

// AtLeast evaluates rules top-down and returns the value of the first rule
// whose bound x reaches (x >= Bound). Rules are ordered by descending bound.
func AtLeast[T cmp.Ordered](rules []Rule[T], x T, fallback int) int {
	for _, r := range rules {
		if x >= r.Bound {
			return r.Value
		}
	}
	return fallback
}

// Below evaluates rules top-down and returns the value of the first rule
// whose bound x stays strictly under (x < Bound). Rules are ordered by ascending bound.
func Below[T cmp.Ordered](rules []Rule[T], x T, fallback int) int {
	for _, r := range rules {
		if x < r.Bound {
			return r.Value
		}
	}
	return fallback
}

// maxValue returns the largest value a table can produce
func maxValue[T cmp.Ordered](rules []Rule[T], fallback int) int {
	m := fallback
	for _, r := range rules {
		if r.Value > m {
			m = r.Value
		}
	}
	return m
}
