package data

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tunogya/subpattern/pkg/model"
)

const pricesCSV = `stock_id,date,open,high,low,close,volume,pattern
AAPL,2024-01-03,10,11,9,10.5,1000,breakout
AAPL,2024-01-02,10,11,9,10,900,box-range
AAPL,bad-date,10,11,9,10,900,box-range
MSFT,2024-01-02,20,21,19,20,500,
`

const bpointsCSV = `stock_id,ordinal,date,price
AAPL,2,2024-01-03,10.5
AAPL,1,2024-01-02,10
`

func TestReadPrices(t *testing.T) {
	bars, err := ReadPrices(strings.NewReader(pricesCSV))
	if err != nil {
		t.Fatalf("read prices: %v", err)
	}
	if len(bars["AAPL"]) != 2 {
		t.Fatalf("expected 2 valid AAPL bars, got %d", len(bars["AAPL"]))
	}
	if bars["AAPL"][0].Pattern != model.PatternBreakout {
		t.Errorf("expected breakout label, got %s", bars["AAPL"][0].Pattern)
	}
	if bars["MSFT"][0].Pattern != model.PatternOther {
		t.Errorf("blank label should be other, got %s", bars["MSFT"][0].Pattern)
	}
}

func TestReadPricesMissingColumn(t *testing.T) {
	if _, err := ReadPrices(strings.NewReader("stock_id,date\nA,2024-01-01\n")); err == nil {
		t.Error("expected error for missing close column")
	}
}

func TestReadBPoints(t *testing.T) {
	points, err := ReadBPoints(strings.NewReader(bpointsCSV))
	if err != nil {
		t.Fatalf("read b-points: %v", err)
	}
	got := points["AAPL"]
	if len(got) != 2 || got[0].Ordinal != 1 || got[1].Ordinal != 2 {
		t.Fatalf("expected ordinal-sorted b-points, got %+v", got)
	}
	if got[1].Price.String() != "10.5" {
		t.Errorf("price = %s", got[1].Price)
	}

	if _, err := ReadBPoints(strings.NewReader("stock_id,ordinal,date,price\nA,x,2024-01-01,1\n")); err == nil {
		t.Error("malformed b-point must fail the file")
	}
}

func TestReadPricesSkipsNonFiniteCloses(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "0", "-1", "1e400"} {
		t.Run(v, func(t *testing.T) {
			in := "stock_id,date,close\nA,2024-01-02," + v + "\nA,2024-01-03,10\n"
			bars, err := ReadPrices(strings.NewReader(in))
			if err != nil {
				t.Fatal(err)
			}
			if len(bars["A"]) != 1 || bars["A"][0].Close != 10 {
				t.Errorf("close %q should be skipped, got %+v", v, bars["A"])
			}
		})
	}
}

func TestReadBPointsRejectsBadPrices(t *testing.T) {
	for _, price := range []string{"NaN", "Inf", "0", "-3.5", "abc"} {
		t.Run(price, func(t *testing.T) {
			in := "stock_id,ordinal,date,price\nA,1,2024-01-02," + price + "\n"
			if _, err := ReadBPoints(strings.NewReader(in)); err == nil {
				t.Errorf("price %q must fail the file", price)
			}
		})
	}
}

func TestReadUniverse(t *testing.T) {
	stocks, err := ReadUniverse(strings.NewReader("stock_id,name\nAAPL,Apple\n,\nMSFT,Microsoft\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(stocks) != 2 || stocks[0].Name != "Apple" {
		t.Errorf("unexpected universe %+v", stocks)
	}
}

func TestFetchInputsAttachesLabels(t *testing.T) {
	bars, _ := ReadPrices(strings.NewReader(pricesCSV))
	points, _ := ReadBPoints(strings.NewReader(bpointsCSV))
	ds := &Dataset{Stocks: []model.Stock{{StockID: "AAPL"}}, Bars: bars, BPoints: points}

	in, err := FetchInputs(context.Background(), ds.Provider(), "AAPL")
	if err != nil {
		t.Fatalf("fetch inputs: %v", err)
	}
	if len(in.Bars) != 2 || in.Bars[0].Close != 10 {
		t.Fatalf("bars should be sorted ascending: %+v", in.Bars)
	}
	if in.Bars[0].Pattern != model.PatternBoxRange || in.Bars[1].Pattern != model.PatternBreakout {
		t.Errorf("labels not attached: %s, %s", in.Bars[0].Pattern, in.Bars[1].Pattern)
	}
	if len(in.BPoints) != 2 {
		t.Errorf("expected 2 b-points, got %d", len(in.BPoints))
	}
}

type flakyProvider struct {
	*MemoryProvider
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) FetchPrices(ctx context.Context, stockID string) ([]model.PriceBar, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MemoryProvider.FetchPrices(ctx, stockID)
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyProvider{MemoryProvider: NewMemoryProvider(), failures: 2, err: errors.New("timeout")}
	p := NewRetryingProvider(inner, fastRetry())

	if _, err := p.FetchPrices(context.Background(), "AAPL"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryExhaustionIsExternalProviderFailure(t *testing.T) {
	inner := &flakyProvider{MemoryProvider: NewMemoryProvider(), failures: 10, err: errors.New("down")}
	p := NewRetryingProvider(inner, fastRetry())

	_, err := p.FetchPrices(context.Background(), "AAPL")
	if !errors.Is(err, model.ErrExternalProvider) {
		t.Fatalf("expected external provider failure, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected bounded retries (3 calls), got %d", inner.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := &ProviderError{Provider: "test", Err: errors.New("not found"), Retryable: false}
	inner := &flakyProvider{MemoryProvider: NewMemoryProvider(), failures: 10, err: permanent}
	p := NewRetryingProvider(inner, fastRetry())

	_, err := p.FetchPrices(context.Background(), "AAPL")
	if !errors.Is(err, model.ErrExternalProvider) {
		t.Fatalf("expected external provider failure, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", inner.calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	inner := &flakyProvider{MemoryProvider: NewMemoryProvider(), failures: 10, err: errors.New("down")}
	p := NewRetryingProvider(inner, RetryConfig{Attempts: 5, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	if _, err := p.FetchPrices(ctx, "AAPL"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}
