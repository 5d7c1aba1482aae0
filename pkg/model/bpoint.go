package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BPoint is a reference price level marking the start or end of a segment
type BPoint struct {
	StockID string          `json:"stock_id"`
	Ordinal int             `json:"ordinal"`
	Date    time.Time       `json:"date"`
	Price   decimal.Decimal `json:"price"`
}

// ValidateBPoints checks that ordinals and dates strictly increase together
// and that every price is positive.
func ValidateBPoints(points []BPoint) error {
	for i, p := range points {
		if !p.Price.IsPositive() {
			return fmt.Errorf("%w: b-point %d has non-positive price %s", ErrInvariantViolation, p.Ordinal, p.Price)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if p.Ordinal <= prev.Ordinal {
			return fmt.Errorf("%w: b-point ordinal %d does not follow %d", ErrInvariantViolation, p.Ordinal, prev.Ordinal)
		}
		if !p.Date.After(prev.Date) {
			return fmt.Errorf("%w: b-point %d dated %s is not after b-point %d dated %s",
				ErrInvariantViolation, p.Ordinal, DateKey(p.Date), prev.Ordinal, DateKey(prev.Date))
		}
	}
	return nil
}
