package feature

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/cache"
	"github.com/tunogya/subpattern/pkg/model"
)

const eps = 1e-9

func segmentFromCloses(startPrice float64, closes []float64, patterns []model.Pattern) *model.Segment {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{StockID: "TEST", Date: base.AddDate(0, 0, i), Close: c}
		if i < len(patterns) {
			bars[i].Pattern = patterns[i]
		}
	}
	start := model.BPoint{StockID: "TEST", Ordinal: 1, Date: bars[0].Date, Price: decimal.NewFromFloat(startPrice)}
	end := model.BPoint{StockID: "TEST", Ordinal: 2, Date: bars[len(bars)-1].Date, Price: decimal.NewFromFloat(closes[len(closes)-1])}
	return model.NewClosedSegment(start, end, bars, 1)
}

func TestNormalizeBounds(t *testing.T) {
	series := [][]float64{
		{10, 12, 9, 15, 11},
		{100, 100.5},
		{3, 2, 1, 0.5, 7, 7, 7, 2, 9, 1, 4},
	}
	for _, closes := range series {
		for _, dim := range []int{model.VectorDim32, model.VectorDim64, 3} {
			v := Normalize(closes, dim)
			if v.Dim() != dim {
				t.Fatalf("expected dim %d, got %d", dim, v.Dim())
			}
			for i, x := range v {
				if x < 0 || x > 1 {
					t.Errorf("entry %d = %v out of [0,1]", i, x)
				}
			}
		}
	}
}

func TestNormalizeConstantSeries(t *testing.T) {
	v := Normalize([]float64{42, 42, 42, 42, 42}, 8)
	for i, x := range v {
		if x != DegenerateValue {
			t.Errorf("entry %d = %v, want %v", i, x, DegenerateValue)
		}
	}
	if !IsDegenerate([]float64{42, 42}) {
		t.Error("constant series should be degenerate")
	}
	if IsDegenerate([]float64{42, 43}) {
		t.Error("varying series should not be degenerate")
	}
}

func TestNormalizeKeepsEndpoints(t *testing.T) {
	v := Normalize([]float64{10, 20, 15, 30}, 16)
	if v[0] != 0 || v[len(v)-1] != 1 {
		t.Errorf("expected endpoints 0 and 1, got %v and %v", v[0], v[len(v)-1])
	}
}

func TestResample(t *testing.T) {
	got := Resample([]float64{0, 1}, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > eps {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}

	single := Resample([]float64{0.3}, 4)
	for _, x := range single {
		if x != 0.3 {
			t.Errorf("single point should resample to constant, got %v", single)
		}
	}

	if Resample(nil, 4) != nil {
		t.Error("empty input should resample to nil")
	}
}

func TestMeanStdPopulation(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Errorf("got mean %v std %v, want 5 and 2", mean, std)
	}
}

func TestCalculateFeatures(t *testing.T) {
	seg := segmentFromCloses(100, []float64{100, 110, 90, 120, 115}, []model.Pattern{
		model.PatternBoxRange, model.PatternBreakout, model.PatternBoxRange, model.PatternBreakout, model.PatternOther,
	})

	e := NewExtractor(1, model.VectorDim32)
	if err := e.Calculate(seg); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	if math.Abs(seg.Return-0.15) > eps {
		t.Errorf("return = %v, want 0.15", seg.Return)
	}
	if math.Abs(seg.MaxReturn-0.20) > eps {
		t.Errorf("max return = %v, want 0.20", seg.MaxReturn)
	}
	if math.Abs(seg.MinReturn+0.10) > eps {
		t.Errorf("min return = %v, want -0.10", seg.MinReturn)
	}
	if seg.Volatility <= 0 {
		t.Errorf("volatility should be positive, got %v", seg.Volatility)
	}
	if seg.DominantPattern != model.PatternBreakout {
		t.Errorf("tie should go to breakout, got %s", seg.DominantPattern)
	}
}

func TestCalculateRejectsEmptySegment(t *testing.T) {
	seg := &model.Segment{SegmentID: "empty"}
	if err := NewExtractor(1, 8).Calculate(seg); err == nil {
		t.Error("expected error for segment without bars")
	}
}

func TestDominantPattern(t *testing.T) {
	tests := []struct {
		name     string
		patterns []model.Pattern
		want     model.Pattern
	}{
		{"empty", nil, model.PatternOther},
		{"clear mode", []model.Pattern{model.PatternBreakdown, model.PatternBreakdown, model.PatternBreakout}, model.PatternBreakdown},
		{"tie by priority", []model.Pattern{model.PatternBoxRange, model.PatternBreakoutPullback}, model.PatternBreakoutPullback},
		{"other loses ties", []model.Pattern{model.PatternOther, model.PatternBreakdown}, model.PatternBreakdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DominantPattern(tt.patterns); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCachedExtractor(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	ce := NewCachedExtractor(NewExtractor(1, 16), mem, 0)

	seg := segmentFromCloses(10, []float64{10, 11, 12, 11, 13}, nil)

	first, hit, err := ce.Vector(ctx, seg)
	if err != nil || hit {
		t.Fatalf("first lookup: hit=%v err=%v", hit, err)
	}
	second, hit, err := ce.Vector(ctx, seg)
	if err != nil || !hit {
		t.Fatalf("second lookup: hit=%v err=%v", hit, err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}

	open := model.NewOpenSegment(seg.StartBPoint, seg.Bars, 1)
	if _, hit, _ := ce.Vector(ctx, open); hit {
		t.Error("open segments must not be served from cache")
	}
	if mem.Len() != 1 {
		t.Errorf("expected 1 cached vector, got %d", mem.Len())
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.1, 0},
		{0.4, 0.4},
		{1.2, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
