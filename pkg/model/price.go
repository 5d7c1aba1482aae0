package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one member of the active universe handed to the engine
type Stock struct {
	StockID string `json:"stock_id"`
	Name    string `json:"name"`
}

// PriceBar represents a single daily OHLCV bar with its pattern label
type PriceBar struct {
	StockID string    `json:"stock_id"`
	Date    time.Time `json:"date"`
	Open    float64   `json:"open"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Close   float64   `json:"close"`
	Volume  int64     `json:"volume"`
	Pattern Pattern   `json:"pattern"`
}

// ReturnFrom calculates the return of this bar's close relative to base
func (b *PriceBar) ReturnFrom(base float64) float64 {
	if base == 0 {
		return 0
	}
	return (b.Close - base) / base
}

// CloseDecimal returns the close as a decimal for price arithmetic
func (b *PriceBar) CloseDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.Close)
}

// SortBars returns a copy of bars ordered by date ascending with one bar per
// trading day. When a date repeats, the later entry in the input wins.
func SortBars(bars []PriceBar) []PriceBar {
	if len(bars) == 0 {
		return nil
	}

	sorted := make([]PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	result := sorted[:0]
	for _, b := range sorted {
		if n := len(result); n > 0 && result[n-1].Date.Equal(b.Date) {
			result[n-1] = b
			continue
		}
		result = append(result, b)
	}
	return result
}

// ApplyLabels sets each bar's pattern from labels keyed by date.
// Days without a label are marked PatternOther.
func ApplyLabels(bars []PriceBar, labels []PatternLabel) {
	byDate := make(map[string]Pattern, len(labels))
	for _, l := range labels {
		byDate[DateKey(l.Date)] = l.Pattern
	}
	for i := range bars {
		if p, ok := byDate[DateKey(bars[i].Date)]; ok {
			bars[i].Pattern = p
		} else {
			bars[i].Pattern = PatternOther
		}
	}
}

// DateKey formats a date as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
