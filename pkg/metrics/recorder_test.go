package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.RecordStock("success")
	r.RecordStock("success")
	r.RecordStock("insufficient_history")
	r.AddSegments(7)
	r.AddSegments(-1)

	if got := testutil.ToFloat64(r.stocksTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.stocksTotal.WithLabelValues("insufficient_history")); got != 1 {
		t.Errorf("insufficient_history = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.segmentsTotal); got != 7 {
		t.Errorf("segments = %v, want 7", got)
	}
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("predict", 20*time.Millisecond)
	r.ObserveMatchCount(12)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"subpattern_stage_duration_seconds", "subpattern_match_count"} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordStock("success")
	r.AddSegments(3)
	r.ObserveStage("extract", time.Second)
	r.ObserveMatchCount(1)
	if r.Registry() != nil {
		t.Error("nil recorder should have no registry")
	}
}
