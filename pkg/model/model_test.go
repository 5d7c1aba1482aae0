package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		label string
		want  Pattern
		ok    bool
	}{
		{"breakout", PatternBreakout, true},
		{"Breakout-Pullback", PatternBreakoutPullback, true},
		{" box-range ", PatternBoxRange, true},
		{"breakdown", PatternBreakdown, true},
		{"other", PatternOther, true},
		{"collapse", PatternOther, false},
		{"", PatternOther, false},
	}

	for _, tt := range tests {
		got, ok := ParsePattern(tt.label)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePattern(%q) = %v, %v; want %v, %v", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPatternPriorityIsTotalOrder(t *testing.T) {
	for i := 1; i < len(AllPatterns); i++ {
		if AllPatterns[i-1].Priority() <= AllPatterns[i].Priority() {
			t.Errorf("%s should outrank %s", AllPatterns[i-1], AllPatterns[i])
		}
	}
}

func TestPatternJSON(t *testing.T) {
	data, err := json.Marshal(PatternLabel{Date: day(0), Pattern: PatternBreakoutPullback})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got PatternLabel
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Pattern != PatternBreakoutPullback {
		t.Errorf("expected breakout-pullback, got %s", got.Pattern)
	}

	var bad Pattern
	if err := bad.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestSortBarsOrdersAndDeduplicates(t *testing.T) {
	bars := []PriceBar{
		{Date: day(2), Close: 12},
		{Date: day(0), Close: 10},
		{Date: day(1), Close: 11},
		{Date: day(1), Close: 11.5},
	}

	got := SortBars(bars)
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	wantCloses := []float64{10, 11.5, 12}
	for i, b := range got {
		if b.Close != wantCloses[i] {
			t.Errorf("bar %d close = %v, want %v", i, b.Close, wantCloses[i])
		}
	}
	if bars[0].Close != 12 {
		t.Error("SortBars must not reorder its input")
	}
}

func TestApplyLabels(t *testing.T) {
	bars := []PriceBar{{Date: day(0)}, {Date: day(1)}}
	ApplyLabels(bars, []PatternLabel{{Date: day(1), Pattern: PatternBreakout}})

	if bars[0].Pattern != PatternOther {
		t.Errorf("unlabelled day should be other, got %s", bars[0].Pattern)
	}
	if bars[1].Pattern != PatternBreakout {
		t.Errorf("expected breakout, got %s", bars[1].Pattern)
	}
}

func TestValidateBPoints(t *testing.T) {
	price := decimal.NewFromInt(100)
	valid := []BPoint{
		{Ordinal: 1, Date: day(0), Price: price},
		{Ordinal: 2, Date: day(10), Price: price},
	}
	if err := ValidateBPoints(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string][]BPoint{
		"ordinal regression": {
			{Ordinal: 2, Date: day(0), Price: price},
			{Ordinal: 1, Date: day(10), Price: price},
		},
		"date regression": {
			{Ordinal: 1, Date: day(10), Price: price},
			{Ordinal: 2, Date: day(5), Price: price},
		},
		"zero price": {
			{Ordinal: 1, Date: day(0), Price: decimal.Zero},
		},
	}
	for name, points := range cases {
		if err := ValidateBPoints(points); !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("%s: expected invariant violation, got %v", name, err)
		}
	}
}

func TestGenerateSegmentIDDeterministic(t *testing.T) {
	a := GenerateSegmentID("AAPL", 3, 4, 1)
	b := GenerateSegmentID("AAPL", 3, 4, 1)
	if a != b {
		t.Error("same inputs must produce the same ID")
	}
	if a == GenerateSegmentID("AAPL", 3, 4, 2) {
		t.Error("feature version must change the ID")
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestSegmentAccessors(t *testing.T) {
	start := BPoint{StockID: "AAPL", Ordinal: 1, Date: day(0), Price: decimal.NewFromInt(100)}
	end := BPoint{StockID: "AAPL", Ordinal: 2, Date: day(2), Price: decimal.NewFromInt(110)}
	bars := []PriceBar{{Date: day(0), Close: 100}, {Date: day(1), Close: 105}, {Date: day(2), Close: 110}}

	closed := NewClosedSegment(start, end, bars, 1)
	if closed.IsOpen() || closed.DurationDays != 3 || closed.EndPrice() != 110 {
		t.Errorf("unexpected closed segment: %+v", closed)
	}

	open := NewOpenSegment(end, bars[2:], 1)
	if !open.IsOpen() {
		t.Error("expected open segment")
	}
	if !open.EndDate().Equal(day(2)) {
		t.Errorf("open segment should end at last bar, got %s", open.EndDate())
	}
	if open.EndPrice() != 110 {
		t.Errorf("open end price should be last close, got %v", open.EndPrice())
	}
}
