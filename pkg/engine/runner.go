package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tunogya/subpattern/pkg/logger"
	"github.com/tunogya/subpattern/pkg/match"
	"github.com/tunogya/subpattern/pkg/metrics"
	"github.com/tunogya/subpattern/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(done, total int)

// Option configures a Runner
type Option func(*Runner)

// WithWorkers sets the size of the worker pool
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithRunTimeout bounds the whole run. Zero disables the deadline.
func WithRunTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithIndex mirrors each run's corpus snapshot into a vector index
func WithIndex(ix VectorIndex) Option {
	return func(r *Runner) { r.index = ix }
}

func WithProgress(fn ProgressCallback) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithClock overrides the source of the run's generation time
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner processes the active universe over a bounded worker pool in two phases.
// Extraction builds every stock's segments, which are then frozen into one corpus
// snapshot. Prediction matches each open segment against that snapshot and appends
// the stock's segments and prediction to the sink.
type Runner struct {
	pipeline *Pipeline
	sink     Sink
	index    VectorIndex
	workers  int
	timeout  time.Duration
	log      *logger.Logger
	metrics  *metrics.Recorder
	progress ProgressCallback
	now      func() time.Time
}

// NewRunner creates a runner that appends results to sink
func NewRunner(pipeline *Pipeline, sink Sink, opts ...Option) *Runner {
	r := &Runner{
		pipeline: pipeline,
		sink:     NewKeyedSink(sink),
		workers:  8,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

type extracted struct {
	stock   model.Stock
	ext     *Extraction
	err     error
	elapsed time.Duration
}

// Run processes stocks and returns the run report. A single stock's failure never
// aborts the run. Cancellation or the run timeout stops dispatch: stocks already
// predicted are kept and written, the rest are reported as cancelled.
// ErrNoInputs is returned when every stock failed to fetch its inputs.
func (r *Runner) Run(ctx context.Context, stocks []model.Stock) (*Report, error) {
	stocks = uniqueStocks(stocks)
	generatedAt := r.now().UTC()
	report := newReport(uuid.NewString(), generatedAt, len(stocks))
	log := r.log.With(logger.String("run_id", report.RunID))

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log.Info("run started", logger.Int("stocks", len(stocks)), logger.Int("workers", r.workers))

	// Phase 1: extraction
	began := time.Now()
	var ready []*Extraction
	entries := make(map[string][]model.CorpusEntry)
	providerFailures := 0

	runPool(ctx, r.workers, stocks,
		func(ctx context.Context, stock model.Stock) extracted {
			start := time.Now()
			ext, err := r.pipeline.Extract(ctx, stock)
			return extracted{stock: stock, ext: ext, err: withContext(ctx, err), elapsed: time.Since(start)}
		},
		func(stock model.Stock) extracted {
			return extracted{stock: stock, err: ctx.Err()}
		},
		func(out extracted) {
			if out.err != nil {
				res := newResult(out.stock, out.err)
				res.Elapsed = out.elapsed
				if res.Kind == KindExternalProvider {
					providerFailures++
				}
				r.record(report, log, res)
				return
			}
			ready = append(ready, out.ext)
			entries[out.stock.StockID] = out.ext.Closed
		},
	)
	r.metrics.ObserveStage("extract", time.Since(began))

	if len(stocks) > 0 && providerFailures == len(stocks) {
		report.finish()
		log.Error("run aborted", logger.Error(ErrNoInputs), logger.Int("stocks", len(stocks)))
		return report, ErrNoInputs
	}

	corpus := match.NewCorpus(entries)
	report.CorpusSize = corpus.Len()
	log.Debug("corpus frozen", logger.Int("segments", corpus.Len()), logger.Int("stocks", len(entries)))

	if r.index != nil && corpus.Len() > 0 && ctx.Err() == nil {
		start := time.Now()
		if err := r.index.IndexSegments(ctx, corpus.All()); err != nil {
			log.Warn("failed to index corpus", logger.Error(err))
		}
		r.metrics.ObserveStage("index", time.Since(start))
	}

	// Phase 2: prediction
	began = time.Now()
	runPool(ctx, r.workers, ready,
		func(ctx context.Context, ext *Extraction) Result {
			return r.predict(ctx, ext, corpus, report.RunID, generatedAt)
		},
		func(ext *Extraction) Result {
			return newResult(ext.Stock, ctx.Err())
		},
		func(res Result) {
			r.record(report, log, res)
		},
	)
	r.metrics.ObserveStage("predict", time.Since(began))

	report.finish()
	log.Info("run finished",
		logger.Int("stocks", report.Total),
		logger.Int("predicted", report.Predicted()),
		logger.Int("skipped", report.Total-report.Predicted()-report.Count(KindCancelled)),
		logger.Int("cancelled", report.Count(KindCancelled)),
		logger.Int("degenerate", report.Degenerate),
		logger.Int("segments", report.Segments),
		logger.Duration("elapsed", report.Duration()),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run %s stopped early: %w", report.RunID, err)
	}
	return report, nil
}

// predict runs phase 2 for one stock. The write is detached from cancellation so a
// computed prediction is always persisted.
func (r *Runner) predict(ctx context.Context, ext *Extraction, corpus *match.Corpus, runID string, generatedAt time.Time) Result {
	start := time.Now()

	pred, err := r.pipeline.Predict(ext, corpus, runID, generatedAt)
	if err != nil && !errors.Is(err, ErrInsufficientHistory) {
		res := newResult(ext.Stock, err)
		res.Elapsed = time.Since(start)
		return res
	}

	segments := ext.Segments()
	if len(segments) > 0 || pred != nil {
		if werr := r.sink.Append(context.WithoutCancel(ctx), ext.Stock.StockID, segments, pred); werr != nil {
			res := newResult(ext.Stock, fmt.Errorf("%w: stock %s: %w", ErrPersist, ext.Stock.StockID, werr))
			res.Elapsed = time.Since(start)
			return res
		}
	}

	res := newResult(ext.Stock, err)
	res.Segments = len(segments)
	res.Degenerate = ext.Degenerate
	if pred != nil {
		res.Prediction = pred
		if !pred.HasForecast() {
			res.Kind = KindEmptyMatchSet
		}
	}
	res.Elapsed = time.Since(start)
	return res
}

func (r *Runner) record(report *Report, log *logger.Logger, res Result) {
	report.add(res)
	r.metrics.RecordStock(res.Kind.String())
	r.metrics.AddSegments(res.Segments)

	switch {
	case res.Prediction != nil:
		r.metrics.ObserveMatchCount(res.Prediction.MatchCount)
		log.Debug("stock predicted",
			logger.String("stock", res.Stock.StockID),
			logger.String("kind", res.Kind.String()),
			logger.Int("matches", res.Prediction.MatchCount),
			logger.Int("score", res.Prediction.InvestmentScore),
			logger.String("recommendation", string(res.Prediction.Recommendation)),
			logger.Bool("degenerate", res.Degenerate),
			logger.Duration("elapsed", res.Elapsed),
		)
	case res.Kind == KindCancelled:
		log.Debug("stock cancelled", logger.String("stock", res.Stock.StockID))
	default:
		log.Warn("stock skipped",
			logger.String("stock", res.Stock.StockID),
			logger.String("kind", res.Kind.String()),
			logger.Int("segments", res.Segments),
			logger.Error(res.Err),
		)
	}

	if r.progress != nil {
		r.progress(report.Processed(), report.Total)
	}
}

// runPool feeds items to a bounded set of workers. Items not dispatched before ctx
// is done are passed to skip instead. collect runs on the calling goroutine, once per item.
func runPool[T, R any](ctx context.Context, workers int, items []T, work func(context.Context, T) R, skip func(T) R, collect func(R)) {
	if len(items) == 0 {
		return
	}

	jobChan := make(chan T)
	resultChan := make(chan R, len(items))

	var wg sync.WaitGroup
	for i := 0; i < min(workers, len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobChan {
				resultChan <- work(ctx, item)
			}
		}()
	}

	go func() {
		defer func() {
			close(jobChan)
			wg.Wait()
			close(resultChan)
		}()

		dispatched := 0
	dispatch:
		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			select {
			case <-ctx.Done():
				break dispatch
			case jobChan <- item:
				dispatched++
			}
		}
		for _, rest := range items[dispatched:] {
			resultChan <- skip(rest)
		}
	}()

	for res := range resultChan {
		collect(res)
	}
}

// withContext attributes a failure to cancellation when the run context is done
func withContext(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, ctx.Err()) {
		return err
	}
	return fmt.Errorf("%w: %w", ctx.Err(), err)
}

func uniqueStocks(stocks []model.Stock) []model.Stock {
	seen := make(map[string]struct{}, len(stocks))
	out := make([]model.Stock, 0, len(stocks))
	for _, s := range stocks {
		if _, ok := seen[s.StockID]; ok {
			continue
		}
		seen[s.StockID] = struct{}{}
		out = append(out, s)
	}
	return out
}
