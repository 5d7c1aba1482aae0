package recommend

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
	"github.com/tunogya/subpattern/pkg/outcome"
)

func TestScenarioC(t *testing.T) {
	ladder := BuyLadder(decimal.NewFromInt(100))
	want := []string{"98", "96", "94", "92", "90"}
	for i, w := range want {
		if !ladder[i].Equal(decimal.RequireFromString(w)) {
			t.Errorf("tranche %d = %s, want %s", i, ladder[i], w)
		}
	}

	avg := AveragePrice(ladder)
	if !avg.Equal(decimal.NewFromInt(94)) {
		t.Errorf("avg = %s, want 94", avg)
	}

	target := TargetPrice(avg, 0.20)
	if !target.Equal(decimal.RequireFromString("112.8")) {
		t.Errorf("target = %s, want 112.8", target)
	}
}

func TestForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Recommendation
	}{
		{100, model.RecommendStrongBuy},
		{70, model.RecommendStrongBuy},
		{69, model.RecommendBuy},
		{50, model.RecommendBuy},
		{49, model.RecommendWatch},
		{30, model.RecommendWatch},
		{29, model.RecommendHold},
		{0, model.RecommendHold},
	}
	for _, tt := range tests {
		if got := ForScore(tt.score); got != tt.want {
			t.Errorf("ForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func openSegment(closes []float64, current model.Pattern) *model.Segment {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Date: base.AddDate(0, 0, i), Close: c, Pattern: model.PatternBoxRange}
	}
	bars[len(bars)-1].Pattern = current
	start := model.BPoint{StockID: "AAPL", Ordinal: 7, Date: base, Price: decimal.NewFromFloat(closes[0])}
	seg := model.NewOpenSegment(start, bars, 1)
	seg.Return = (closes[len(closes)-1] - closes[0]) / closes[0]
	seg.DominantPattern = model.PatternBoxRange
	return seg
}

func TestMapScenarioA(t *testing.T) {
	open := openSegment([]float64{106.38, 104, 100}, model.PatternBreakout)
	matches := make([]model.Match, 15)
	for i := range matches {
		matches[i] = model.Match{SegmentID: "m", Return: 0.25, MaxReturn: 0.3, DurationDays: 12, Similarity: 0.95}
	}
	f := outcome.Aggregate(matches, outcome.Current{Pattern: model.PatternBreakout, Return: open.Return})

	p := Map(Input{
		RunID:       "run",
		Stock:       model.Stock{StockID: "AAPL", Name: "Apple"},
		GeneratedAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Open:        open,
		Forecast:    f,
		Matches:     matches,
	})

	if p.InvestmentScore != 90 || p.Recommendation != model.RecommendStrongBuy {
		t.Errorf("score %d / %q, want 90 / strong buy", p.InvestmentScore, p.Recommendation)
	}
	if p.CurrentElapsedDays != 3 || p.CurrentBPoint.Ordinal != 7 {
		t.Errorf("unexpected current context: %d days, ordinal %d", p.CurrentElapsedDays, p.CurrentBPoint.Ordinal)
	}
	if !p.CurrentPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("current price = %s", p.CurrentPrice)
	}
	if p.CurrentPattern != model.PatternBreakout || p.DominantPattern != model.PatternBoxRange {
		t.Errorf("patterns: current %s dominant %s", p.CurrentPattern, p.DominantPattern)
	}
	if !p.TargetPrice.Equal(decimal.RequireFromString("117.5")) {
		t.Errorf("target = %s, want 117.5", p.TargetPrice)
	}
	if len(p.Matches) != 15 || p.StockName != "Apple" {
		t.Errorf("matches %d name %q", len(p.Matches), p.StockName)
	}
}

func TestMapNoMatches(t *testing.T) {
	open := openSegment([]float64{100, 101}, model.PatternBoxRange)
	f := outcome.Aggregate(nil, outcome.Current{Pattern: model.PatternBoxRange, Return: open.Return})
	p := Map(Input{Stock: model.Stock{StockID: "AAPL"}, Open: open, Forecast: f})

	if p.HasForecast() || p.Confidence != 0 {
		t.Errorf("expected empty forecast, got %+v", p)
	}
	if p.Recommendation != model.RecommendWatch && p.Recommendation != model.RecommendHold {
		t.Errorf("zero-match recommendation %q outside watch/hold", p.Recommendation)
	}
	if !p.TargetPrice.Equal(p.AvgBuyPrice) {
		t.Errorf("target %s should equal avg %s without expected return", p.TargetPrice, p.AvgBuyPrice)
	}
}

func TestMapDeterministic(t *testing.T) {
	open := openSegment([]float64{50, 49, 48.5}, model.PatternBreakoutPullback)
	matches := []model.Match{{SegmentID: "a", Return: 0.12, DurationDays: 8, Similarity: 0.8}}
	f := outcome.Aggregate(matches, outcome.Current{Pattern: model.PatternBreakoutPullback, Return: open.Return})
	in := Input{Stock: model.Stock{StockID: "X"}, Open: open, Forecast: f, Matches: matches}

	a, b := Map(in), Map(in)
	if a.InvestmentScore != b.InvestmentScore || !a.TargetPrice.Equal(b.TargetPrice) || a.Recommendation != b.Recommendation {
		t.Error("Map must be deterministic")
	}
}
