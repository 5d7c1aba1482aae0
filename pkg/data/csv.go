package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

// DateLayout is the date format used by every CSV input
const DateLayout = "2006-01-02"

// Dataset is a full set of collaborator inputs loaded from files
type Dataset struct {
	Stocks  []model.Stock
	Bars    map[string][]model.PriceBar
	BPoints map[string][]model.BPoint
}

// Provider exposes the dataset through the provider interfaces
func (d *Dataset) Provider() *MemoryProvider {
	p := NewMemoryProvider()
	for _, s := range d.Stocks {
		p.AddStock(s)
	}
	for stock, bars := range d.Bars {
		p.AddBars(stock, bars)
	}
	for stock, points := range d.BPoints {
		p.AddBPoints(stock, points)
	}
	return p
}

// LoadDataset reads prices, B-points and an optional universe file.
// Without a universe file every stock with prices is active.
func LoadDataset(pricesPath, bpointsPath, universePath string) (*Dataset, error) {
	d := &Dataset{}

	if err := withFile(pricesPath, func(r io.Reader) (err error) {
		d.Bars, err = ReadPrices(r)
		return err
	}); err != nil {
		return nil, err
	}

	if err := withFile(bpointsPath, func(r io.Reader) (err error) {
		d.BPoints, err = ReadBPoints(r)
		return err
	}); err != nil {
		return nil, err
	}

	if universePath != "" {
		if err := withFile(universePath, func(r io.Reader) (err error) {
			d.Stocks, err = ReadUniverse(r)
			return err
		}); err != nil {
			return nil, err
		}
	} else {
		for stock := range d.Bars {
			d.Stocks = append(d.Stocks, model.Stock{StockID: stock})
		}
		sort.Slice(d.Stocks, func(i, j int) bool { return d.Stocks[i].StockID < d.Stocks[j].StockID })
	}

	return d, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := fn(file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadPrices parses stock_id,date,open,high,low,close,volume[,pattern] rows.
// Rows that cannot be parsed are skipped.
func ReadPrices(r io.Reader) (map[string][]model.PriceBar, error) {
	rows, err := readRecords(r, "stock_id", "date", "close")
	if err != nil {
		return nil, err
	}

	result := make(map[string][]model.PriceBar)
	for _, row := range rows {
		bar, err := parsePriceRow(row)
		if err != nil {
			continue // Skip invalid records
		}
		result[bar.StockID] = append(result[bar.StockID], bar)
	}
	return result, nil
}

func parsePriceRow(row record) (model.PriceBar, error) {
	date, err := time.Parse(DateLayout, row.get("date"))
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("invalid date: %w", err)
	}
	closePrice, err := strconv.ParseFloat(row.get("close"), 64)
	if err != nil || math.IsNaN(closePrice) || math.IsInf(closePrice, 0) || closePrice <= 0 {
		return model.PriceBar{}, fmt.Errorf("invalid close %q", row.get("close"))
	}

	open, _ := strconv.ParseFloat(row.get("open"), 64)
	high, _ := strconv.ParseFloat(row.get("high"), 64)
	low, _ := strconv.ParseFloat(row.get("low"), 64)
	volume, _ := strconv.ParseInt(row.get("volume"), 10, 64)
	pattern, _ := model.ParsePattern(row.get("pattern"))

	return model.PriceBar{
		StockID: row.get("stock_id"),
		Date:    date,
		Open:    open,
		High:    high,
		Low:     low,
		Close:   closePrice,
		Volume:  volume,
		Pattern: pattern,
	}, nil
}

// ReadBPoints parses stock_id,ordinal,date,price rows.
// A malformed B-point would silently merge two segments, so it fails the whole file.
func ReadBPoints(r io.Reader) (map[string][]model.BPoint, error) {
	rows, err := readRecords(r, "stock_id", "ordinal", "date", "price")
	if err != nil {
		return nil, err
	}

	result := make(map[string][]model.BPoint)
	for i, row := range rows {
		ordinal, err := strconv.Atoi(row.get("ordinal"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid ordinal: %w", i+2, err)
		}
		date, err := time.Parse(DateLayout, row.get("date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date: %w", i+2, err)
		}
		price, err := decimal.NewFromString(row.get("price"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price: %w", i+2, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("row %d: price %s must be positive", i+2, price)
		}

		stock := row.get("stock_id")
		result[stock] = append(result[stock], model.BPoint{StockID: stock, Ordinal: ordinal, Date: date, Price: price})
	}

	for stock := range result {
		points := result[stock]
		sort.SliceStable(points, func(i, j int) bool { return points[i].Ordinal < points[j].Ordinal })
	}
	return result, nil
}

// ReadUniverse parses stock_id[,name] rows
func ReadUniverse(r io.Reader) ([]model.Stock, error) {
	rows, err := readRecords(r, "stock_id")
	if err != nil {
		return nil, err
	}

	stocks := make([]model.Stock, 0, len(rows))
	for _, row := range rows {
		id := row.get("stock_id")
		if id == "" {
			continue
		}
		stocks = append(stocks, model.Stock{StockID: id, Name: row.get("name")})
	}
	return stocks, nil
}

type record struct {
	values []string
	cols   map[string]int
}

func (r record) get(name string) string {
	if idx, ok := r.cols[name]; ok && idx < len(r.values) {
		return strings.TrimSpace(r.values[idx])
	}
	return ""
}

// readRecords reads a headed CSV and checks that the required columns exist
func readRecords(r io.Reader, required ...string) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []record
	for {
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		rows = append(rows, record{values: values, cols: colMap})
	}
	return rows, nil
}
