package outcome

import (
	"testing"

	"github.com/tunogya/subpattern/pkg/model"
)

func matchesWithReturns(returns ...float64) []model.Match {
	out := make([]model.Match, len(returns))
	for i, r := range returns {
		out[i] = model.Match{Return: r, MaxReturn: r + 0.05, DurationDays: 10 + i, Similarity: 0.9}
	}
	return out
}

func repeat(r float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestRuleTablesBoundaries(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{0.30, 40}, {0.2999, 30}, {0.20, 30}, {0.10, 20}, {0.05, 10}, {0.0499, 0}, {-1, 0},
	}
	for _, tt := range tests {
		if got := AtLeast(ReturnRules, tt.x, 0); got != tt.want {
			t.Errorf("return bucket(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}

	current := []struct {
		x    float64
		want int
	}{
		{-0.06, 10}, {-0.05, 7}, {-0.01, 7}, {0, 5}, {0.049, 5}, {0.05, 0},
	}
	for _, tt := range current {
		if got := Below(CurrentReturnRules, tt.x, 0); got != tt.want {
			t.Errorf("current return bucket(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestBucketMaximaSumTo100(t *testing.T) {
	if got := MaxScore(); got != 100 {
		t.Errorf("bucket maxima sum to %d, want 100", got)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	prev := -1
	for n := 0; n <= 25; n++ {
		c := Confidence(n)
		if c < prev {
			t.Fatalf("confidence dropped from %d to %d at %d matches", prev, c, n)
		}
		if c < 0 || c > 100 {
			t.Fatalf("confidence %d out of range", c)
		}
		prev = c
	}
	if Confidence(0) != 0 {
		t.Error("no matches must mean zero confidence")
	}
}

func TestScenarioA(t *testing.T) {
	f := Aggregate(matchesWithReturns(repeat(0.25, 15)...), Current{Pattern: model.PatternBreakout, Return: -0.06})

	want := Buckets{Return: 30, MatchCount: 30, Pattern: 20, CurrentReturn: 10}
	if f.Buckets != want {
		t.Errorf("buckets = %+v, want %+v", f.Buckets, want)
	}
	if f.InvestmentScore != 90 {
		t.Errorf("score = %d, want 90", f.InvestmentScore)
	}
	if f.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", f.Confidence)
	}
}

func TestScenarioB(t *testing.T) {
	f := Aggregate(matchesWithReturns(0.06, 0.08, 0.10), Current{Pattern: model.PatternBoxRange, Return: 0.02})

	want := Buckets{Return: 10, MatchCount: 0, Pattern: 10, CurrentReturn: 5}
	if f.Buckets != want {
		t.Errorf("buckets = %+v, want %+v", f.Buckets, want)
	}
	if f.InvestmentScore != 25 {
		t.Errorf("score = %d, want 25", f.InvestmentScore)
	}
	if f.ExpectedReturnMin != 0.06 || f.ExpectedReturnMax != 0.10 {
		t.Errorf("min/max = %v/%v", f.ExpectedReturnMin, f.ExpectedReturnMax)
	}
	if f.ExpectedDuration != 11 {
		t.Errorf("duration = %d, want 11", f.ExpectedDuration)
	}
}

func TestAggregateNoMatches(t *testing.T) {
	f := Aggregate(nil, Current{Pattern: model.PatternBreakoutPullback, Return: -0.02})

	if f.Confidence != 0 || f.ExpectedReturn != 0 || f.ExpectedDuration != 0 || f.ExpectedMaxReturn != 0 {
		t.Errorf("expected zeroed forecast, got %s", f)
	}
	if f.Buckets.Return != 0 || f.Buckets.MatchCount != 0 {
		t.Errorf("only pattern and current-return buckets may score: %+v", f.Buckets)
	}
	if f.InvestmentScore != 22 {
		t.Errorf("score = %d, want 22", f.InvestmentScore)
	}
}

func TestScoreBounded(t *testing.T) {
	for _, p := range model.AllPatterns {
		for _, n := range []int{0, 1, 5, 10, 15, 40} {
			for _, r := range []float64{-1, -0.05, 0, 0.05, 0.5, 3} {
				b := Score(n, r, p, r)
				if b.Return > 40 || b.MatchCount > 30 || b.Pattern > 20 || b.CurrentReturn > 10 {
					t.Fatalf("bucket over its maximum: %+v", b)
				}
				if total := b.Total(); total < 0 || total > 100 {
					t.Fatalf("score %d out of range", total)
				}
			}
		}
	}
}
