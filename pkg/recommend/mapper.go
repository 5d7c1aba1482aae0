package recommend

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
	"github.com/tunogya/subpattern/pkg/outcome"
)

// LadderDiscounts are the tranche discounts below the current price
var LadderDiscounts = [model.LadderSize]decimal.Decimal{
	decimal.New(2, -2),
	decimal.New(4, -2),
	decimal.New(6, -2),
	decimal.New(8, -2),
	decimal.New(10, -2),
}

// pricePlaces is the rounding applied to every quoted price
const pricePlaces = 2

// Tier is one row of the recommendation table
type Tier struct {
	MinScore       int
	Recommendation model.Recommendation
}

// Tiers is evaluated top-down; the first tier whose MinScore is reached wins
var Tiers = []Tier{
	{MinScore: 70, Recommendation: model.RecommendStrongBuy},
	{MinScore: 50, Recommendation: model.RecommendBuy},
	{MinScore: 30, Recommendation: model.RecommendWatch},
}

// ForScore maps an investment score to its recommendation tier
func ForScore(score int) model.Recommendation {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t.Recommendation
		}
	}
	return model.RecommendHold
}

// BuyLadder returns the five tranche prices below the current price
func BuyLadder(current decimal.Decimal) [model.LadderSize]decimal.Decimal {
	var ladder [model.LadderSize]decimal.Decimal
	one := decimal.NewFromInt(1)
	for i, d := range LadderDiscounts {
		ladder[i] = current.Mul(one.Sub(d)).Round(pricePlaces)
	}
	return ladder
}

// AveragePrice returns the arithmetic mean of the ladder
func AveragePrice(ladder [model.LadderSize]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ladder {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(model.LadderSize)).Round(pricePlaces)
}

// TargetPrice applies the expected return to the average buy price
func TargetPrice(avg decimal.Decimal, expectedReturn float64) decimal.Decimal {
	growth := decimal.NewFromInt(1).Add(decimal.NewFromFloat(expectedReturn))
	return avg.Mul(growth).Round(pricePlaces)
}

// Input is everything the mapper needs to assemble a prediction
type Input struct {
	RunID       string
	Stock       model.Stock
	GeneratedAt time.Time
	Open        *model.Segment
	Forecast    outcome.Forecast
	Matches     []model.Match
}

// Map assembles the final prediction. It is pure: identical input always
// yields an identical prediction.
func Map(in Input) model.Prediction {
	open := in.Open
	f := in.Forecast

	currentPrice := decimal.Zero
	currentPattern := model.PatternOther
	if last := open.LastBar(); last != nil {
		currentPrice = last.CloseDecimal().Round(pricePlaces)
		currentPattern = last.Pattern
	}

	ladder := BuyLadder(currentPrice)
	avg := AveragePrice(ladder)

	matches := make([]model.Match, len(in.Matches))
	copy(matches, in.Matches)

	return model.Prediction{
		RunID:              in.RunID,
		StockID:            in.Stock.StockID,
		StockName:          in.Stock.Name,
		GeneratedAt:        in.GeneratedAt,
		CurrentBPoint:      open.StartBPoint,
		CurrentElapsedDays: open.DurationDays,
		CurrentReturn:      outcome.Round4(open.Return),
		CurrentPrice:       currentPrice,
		CurrentPattern:     currentPattern,

		MatchCount:        f.MatchCount,
		ExpectedReturn:    outcome.Round4(f.ExpectedReturn),
		ExpectedReturnMin: outcome.Round4(f.ExpectedReturnMin),
		ExpectedReturnMax: outcome.Round4(f.ExpectedReturnMax),
		ExpectedMaxReturn: outcome.Round4(f.ExpectedMaxReturn),
		ExpectedDuration:  f.ExpectedDuration,
		Confidence:        f.Confidence,
		InvestmentScore:   f.InvestmentScore,

		BuyLadder:    ladder,
		AvgBuyPrice:  avg,
		TargetPrice:  TargetPrice(avg, outcome.Round4(f.ExpectedReturn)),
		TargetReturn: outcome.Round4(f.ExpectedReturn),

		DominantPattern: open.DominantPattern,
		Recommendation:  ForScore(f.InvestmentScore),
		Matches:         matches,
	}
}
