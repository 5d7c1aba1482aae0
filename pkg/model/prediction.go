package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// Match is one historical segment selected as similar to the open segment
type Match struct {
	SegmentID    string    `json:"segment_id"`
	StockID      string    `json:"stock_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Return       float64   `json:"return"`
	MaxReturn    float64   `json:"max_return"`
	DurationDays int       `json:"duration_days"`
	Similarity   float64   `json:"similarity"`
}

// NewMatch builds a match from a closed segment and its similarity score
func NewMatch(seg *Segment, similarity float64) Match {
	return Match{
		SegmentID:    seg.SegmentID,
		StockID:      seg.StockID,
		StartDate:    seg.StartDate(),
		EndDate:      seg.EndDate(),
		Return:       seg.Return,
		MaxReturn:    seg.MaxReturn,
		DurationDays: seg.DurationDays,
		Similarity:   similarity,
	}
}

// Recommendation is the discrete action tier derived from the investment score
type Recommendation string

const (
	RecommendStrongBuy Recommendation = "strong buy"
	RecommendBuy       Recommendation = "buy"
	RecommendWatch     Recommendation = "watch"
	RecommendHold      Recommendation = "hold/avoid"
)

// LadderSize is the number of buy tranches
const LadderSize = 5

// Prediction is the same-day forecast for one stock. Returns are fractions (0.25 = 25%).
// Predictions are append-only: each run writes a new record keyed by stock and GeneratedAt.
type Prediction struct {
	RunID              string          `json:"run_id"`
	StockID            string          `json:"stock_id"`
	StockName          string          `json:"stock_name"`
	GeneratedAt        time.Time       `json:"generated_at"`
	CurrentBPoint      BPoint          `json:"current_bpoint"`
	CurrentElapsedDays int             `json:"current_elapsed_days"`
	CurrentReturn      float64         `json:"current_return"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	CurrentPattern     Pattern         `json:"current_pattern"`

	MatchCount        int     `json:"match_count"`
	ExpectedReturn    float64 `json:"expected_return"`
	ExpectedReturnMin float64 `json:"expected_return_min"`
	ExpectedReturnMax float64 `json:"expected_return_max"`
	ExpectedMaxReturn float64 `json:"expected_max_return"`
	ExpectedDuration  int     `json:"expected_duration"`
	Confidence        int     `json:"confidence"`
	InvestmentScore   int     `json:"investment_score"`

	BuyLadder    [LadderSize]decimal.Decimal `json:"buy_ladder"`
	AvgBuyPrice  decimal.Decimal             `json:"avg_buy_price"`
	TargetPrice  decimal.Decimal             `json:"target_price"`
	TargetReturn float64                     `json:"target_return"`

	DominantPattern Pattern        `json:"dominant_pattern"`
	Recommendation  Recommendation `json:"recommendation"`
	Matches         []Match        `json:"matches"`
}

// HasForecast reports whether any historical segment backed the expected figures.
// Without matches the expected fields are undefined and stored as null.
func (p *Prediction) HasForecast() bool {
	return p.MatchCount > 0
}

// GeneratePredictionID keys a prediction by stock and generation time so a
// redelivered write does not create a second record
func GeneratePredictionID(stockID string, generatedAt time.Time) string {
	data := stockID + "|" + generatedAt.UTC().Format(time.RFC3339Nano)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
