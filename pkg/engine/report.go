package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tunogya/subpattern/pkg/model"
)

// Status is the coarse outcome shown for a stock
type Status string

const (
	StatusPredicted Status = "predicted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func statusFor(kind Kind) Status {
	switch kind {
	case KindSuccess, KindEmptyMatchSet:
		return StatusPredicted
	case KindInsufficientHistory, KindInvariantViolation, KindExternalProvider:
		return StatusSkipped
	case KindCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// Result is the explicit outcome of one stock
type Result struct {
	Stock      model.Stock
	Status     Status
	Kind       Kind
	Err        error
	Prediction *model.Prediction // nil unless Kind.Predicted()
	Segments   int               // closed segments handed to the sink
	Degenerate bool              // open segment had a constant price
	Elapsed    time.Duration
}

func newResult(stock model.Stock, err error) Result {
	kind := Classify(err)
	return Result{Stock: stock, Status: statusFor(kind), Kind: kind, Err: err}
}

// Report summarizes a run. It is built by a single collector, never shared across workers.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Counts      map[Kind]int
	Degenerate  int
	Segments    int
	CorpusSize  int
	Results     []Result
}

func newReport(runID string, generatedAt time.Time, total int) *Report {
	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt,
		StartedAt:   time.Now(),
		Total:       total,
		Counts:      make(map[Kind]int, len(AllKinds)),
		Results:     make([]Result, 0, total),
	}
}

func (r *Report) add(res Result) {
	r.Counts[res.Kind]++
	r.Segments += res.Segments
	if res.Degenerate {
		r.Degenerate++
	}
	r.Results = append(r.Results, res)
}

func (r *Report) finish() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].Stock.StockID < r.Results[j].Stock.StockID
	})
	r.FinishedAt = time.Now()
}

// Count returns the number of stocks with the given kind
func (r *Report) Count(kind Kind) int {
	return r.Counts[kind]
}

// Processed returns how many stocks have a result
func (r *Report) Processed() int {
	return len(r.Results)
}

// Predicted returns the number of stocks that produced a prediction
func (r *Report) Predicted() int {
	return r.Counts[KindSuccess] + r.Counts[KindEmptyMatchSet]
}

// Predictions returns the run's predictions ordered by investment score, highest first
func (r *Report) Predictions() []*model.Prediction {
	var preds []*model.Prediction
	for _, res := range r.Results {
		if res.Prediction != nil {
			preds = append(preds, res.Prediction)
		}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		if preds[i].InvestmentScore != preds[j].InvestmentScore {
			return preds[i].InvestmentScore > preds[j].InvestmentScore
		}
		return preds[i].StockID < preds[j].StockID
	})
	return preds
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// String returns a formatted string representation
func (r *Report) String() string {
	var parts []string
	for _, k := range AllKinds {
		if n := r.Counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return fmt.Sprintf("Run %s | Stocks: %d | Predicted: %d | Degenerate: %d | %s",
		r.RunID, r.Total, r.Predicted(), r.Degenerate, strings.Join(parts, " "))
}
