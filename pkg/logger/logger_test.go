package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With(String("run_id", "r1"))

	l.Warn("stock skipped",
		String("stock", "AAPL"),
		Int("bars", 3),
		Float("score", 42.5),
		Bool("degenerate", true),
		Duration("elapsed", time.Second),
		Error(errors.New("insufficient history")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	checks := map[string]interface{}{
		"level":      "warn",
		"message":    "stock skipped",
		"run_id":     "r1",
		"stock":      "AAPL",
		"bars":       float64(3),
		"score":      42.5,
		"degenerate": true,
		"error":      "insufficient history",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line should be filtered, got %q", buf.String())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Error("expected invalid level error")
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	Nop().With(String("k", "v")).Error("ignored", Error(errors.New("x")))
}
