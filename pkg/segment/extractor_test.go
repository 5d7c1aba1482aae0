package segment

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bars(n int) []model.PriceBar {
	out := make([]model.PriceBar, n)
	for i := range out {
		out[i] = model.PriceBar{Date: base.AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	return out
}

func bpoint(ordinal, dayOffset int) model.BPoint {
	return model.BPoint{Ordinal: ordinal, Date: base.AddDate(0, 0, dayOffset), Price: decimal.NewFromInt(int64(100 + dayOffset))}
}

func TestExtractSegments(t *testing.T) {
	points := []model.BPoint{bpoint(1, 0), bpoint(2, 9), bpoint(3, 12), bpoint(4, 20)}
	history := bars(25)

	res, err := NewExtractor(DefaultConfig()).Extract("AAPL", points, history)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	// [0,9] has 10 bars, [9,12] has 4 and is dropped, [12,20] has 9
	if len(res.Closed) != 2 {
		t.Fatalf("expected 2 closed segments, got %d", len(res.Closed))
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped span, got %d", res.Dropped)
	}
	if res.Closed[0].DurationDays != 10 || res.Closed[1].DurationDays != 9 {
		t.Errorf("unexpected durations %d, %d", res.Closed[0].DurationDays, res.Closed[1].DurationDays)
	}
	for _, seg := range res.Closed {
		if seg.EndBPoint.Ordinal <= seg.StartBPoint.Ordinal {
			t.Errorf("segment %s: end ordinal must exceed start ordinal", seg.SegmentID)
		}
		if seg.StockID != "AAPL" {
			t.Errorf("segment stock = %q", seg.StockID)
		}
	}

	open, err := res.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !open.IsOpen() || open.DurationDays != 5 {
		t.Errorf("open segment should cover days 20..24, got %d bars", open.DurationDays)
	}
}

func TestExtractOpenSegmentExemptFromMinDuration(t *testing.T) {
	points := []model.BPoint{bpoint(1, 0), bpoint(2, 10)}
	res, err := NewExtractor(DefaultConfig()).Extract("X", points, bars(13))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	open, err := res.Query()
	if err != nil {
		t.Fatalf("3-bar open segment should be evaluable: %v", err)
	}
	if open.DurationDays != 3 {
		t.Errorf("expected 3 bars, got %d", open.DurationDays)
	}
}

func TestExtractOpenSegmentTooShort(t *testing.T) {
	points := []model.BPoint{bpoint(1, 0), bpoint(2, 10)}
	res, err := NewExtractor(DefaultConfig()).Extract("X", points, bars(11))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Closed) != 1 {
		t.Errorf("closed segment should survive, got %d", len(res.Closed))
	}
	if _, err := res.Query(); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("expected insufficient history, got %v", err)
	}
}

func TestExtractErrors(t *testing.T) {
	e := NewExtractor(DefaultConfig())

	if _, err := e.Extract("X", []model.BPoint{bpoint(1, 0)}, bars(10)); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("single b-point: expected insufficient history, got %v", err)
	}

	zero := model.BPoint{Ordinal: 1, Date: base, Price: decimal.Zero}
	if _, err := e.Extract("X", []model.BPoint{zero}, bars(10)); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("single zero-price b-point: expected insufficient history, got %v", err)
	}

	outOfOrder := []model.BPoint{bpoint(2, 0), bpoint(1, 5)}
	if _, err := e.Extract("X", outOfOrder, bars(10)); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("out of order: expected invariant violation, got %v", err)
	}
}

func TestExtractIdempotent(t *testing.T) {
	points := []model.BPoint{bpoint(1, 0), bpoint(2, 7), bpoint(3, 15)}
	history := bars(20)

	shuffled := make([]model.PriceBar, len(history))
	for i := range history {
		shuffled[len(history)-1-i] = history[i]
	}

	e := NewExtractor(DefaultConfig())
	a, err := e.Extract("X", points, history)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract("X", points, shuffled)
	if err != nil {
		t.Fatal(err)
	}

	ja, _ := json.Marshal(a.Closed)
	jb, _ := json.Marshal(b.Closed)
	if string(ja) != string(jb) {
		t.Error("re-extraction must yield an identical corpus")
	}
}

func TestExtractRejectsInvalidCloses(t *testing.T) {
	points := []model.BPoint{bpoint(1, 0), bpoint(2, 10)}

	tests := []struct {
		name  string
		close float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
		{"zero", 0},
		{"negative", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := bars(15)
			history[4].Close = tt.close

			_, err := NewExtractor(DefaultConfig()).Extract("X", points, history)
			if !errors.Is(err, model.ErrInvariantViolation) {
				t.Errorf("expected invariant violation, got %v", err)
			}
		})
	}
}
