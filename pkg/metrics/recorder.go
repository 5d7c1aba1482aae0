package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects run metrics on its own registry. A nil Recorder drops everything.
type Recorder struct {
	registry *prometheus.Registry

	stocksTotal   *prometheus.CounterVec
	segmentsTotal prometheus.Counter
	stageDuration *prometheus.HistogramVec
	matchCount    prometheus.Histogram
}

// NewRecorder creates a Recorder with metrics registered on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stocksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subpattern_stocks_total",
				Help: "Stocks processed, partitioned by outcome kind",
			},
			[]string{"kind"},
		),
		segmentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subpattern_segments_total",
				Help: "Closed segments appended to the store",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subpattern_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		matchCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "subpattern_match_count",
				Help:    "Similar segments selected per prediction",
				Buckets: []float64{0, 1, 5, 10, 15, 20},
			},
		),
	}
}

func (r *Recorder) RecordStock(kind string) {
	if r == nil {
		return
	}
	r.stocksTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) AddSegments(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.segmentsTotal.Add(float64(n))
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObserveMatchCount(n int) {
	if r == nil {
		return
	}
	r.matchCount.Observe(float64(n))
}

// Registry exposes the underlying registry for scraping
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
