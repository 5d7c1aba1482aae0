package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/tunogya/subpattern/pkg/engine"
	"github.com/tunogya/subpattern/pkg/model"
)

type skippedJSON struct {
	StockID string `json:"stock_id"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

type reportJSON struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Elapsed     string              `json:"elapsed"`
	Total       int                 `json:"total"`
	Counts      map[string]int      `json:"counts"`
	Degenerate  int                 `json:"degenerate"`
	Segments    int                 `json:"segments"`
	CorpusSize  int                 `json:"corpus_size"`
	Skipped     []skippedJSON       `json:"skipped"`
	Predictions []*model.Prediction `json:"predictions"`
}

func outputReportJSON(report *engine.Report) error {
	out := reportJSON{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		Elapsed:     report.Duration().Round(time.Millisecond).String(),
		Total:       report.Total,
		Counts:      make(map[string]int),
		Degenerate:  report.Degenerate,
		Segments:    report.Segments,
		CorpusSize:  report.CorpusSize,
		Skipped:     []skippedJSON{},
		Predictions: report.Predictions(),
	}
	for kind, n := range report.Counts {
		out.Counts[kind.String()] = n
	}
	for _, res := range report.Results {
		if res.Err == nil {
			continue
		}
		out.Skipped = append(out.Skipped, skippedJSON{
			StockID: res.Stock.StockID,
			Kind:    res.Kind.String(),
			Error:   res.Err.Error(),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputSummaryTable(report *engine.Report) {
	fmt.Printf("Run %s: %d stocks in %s, corpus of %d segments\n\n",
		report.RunID, report.Total, report.Duration().Round(time.Millisecond), report.CorpusSize)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Outcome", "Stocks"}),
	)
	for _, kind := range engine.AllKinds {
		n := report.Count(kind)
		if n == 0 {
			continue
		}
		table.Append([]string{kind.String(), fmt.Sprintf("%d", n)})
	}
	table.Append([]string{"degenerate (constant price)", fmt.Sprintf("%d", report.Degenerate)})
	table.Render()
	fmt.Println()
}

func outputPredictionsTable(report *engine.Report, top int) {
	preds := report.Predictions()
	if len(preds) == 0 {
		fmt.Println("No predictions produced.")
		return
	}
	if top > 0 && len(preds) > top {
		preds = preds[:top]
	}

	fmt.Printf("Top %d predictions by investment score:\n\n", len(preds))

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Stock", "Name", "Pattern", "Days", "Current", "Matches", "Exp Return", "Conf", "Score", "Signal", "Buy 1", "Target"}),
	)
	for _, p := range preds {
		name := p.StockName
		if len(name) > 18 {
			name = name[:18] + "..."
		}

		expected := "-"
		target := "-"
		if p.HasForecast() {
			expected = formatPct(p.ExpectedReturn)
			target = p.TargetPrice.StringFixed(2)
		}

		table.Append([]string{
			p.StockID,
			name,
			p.CurrentPattern.String(),
			fmt.Sprintf("%d", p.CurrentElapsedDays),
			formatPct(p.CurrentReturn),
			fmt.Sprintf("%d", p.MatchCount),
			expected,
			fmt.Sprintf("%d", p.Confidence),
			fmt.Sprintf("%d", p.InvestmentScore),
			string(p.Recommendation),
			p.BuyLadder[0].StringFixed(2),
			target,
		})
	}
	table.Render()
}

func outputMatchesTable(matches []model.Match) {
	if len(matches) == 0 {
		fmt.Println("No similar segments found.")
		return
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Stock", "Start", "End", "Days", "Return", "Max Return", "Similarity"}),
	)
	for i, m := range matches {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			m.StockID,
			model.DateKey(m.StartDate),
			model.DateKey(m.EndDate),
			fmt.Sprintf("%d", m.DurationDays),
			formatPct(m.Return),
			formatPct(m.MaxReturn),
			fmt.Sprintf("%.4f", m.Similarity),
		})
	}
	table.Render()
}

func formatPct(fraction float64) string {
	return fmt.Sprintf("%+.2f%%", fraction*100)
}
