package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tunogya/subpattern/pkg/model"
)

type fakeClient struct {
	subject string
	data    []byte
	msgID   string
}

func (f *fakeClient) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	f.subject, f.data, f.msgID = subject, data, msgID
	return nil
}

type recordingStore struct {
	stockID    string
	segments   []*model.Segment
	prediction *model.Prediction
	err        error
}

func (r *recordingStore) Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error {
	r.stockID, r.segments, r.prediction = stockID, segments, prediction
	return r.err
}

func testWrite() ([]*model.Segment, *model.Prediction) {
	start := model.BPoint{StockID: "AAPL", Ordinal: 1, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Price: decimal.NewFromInt(100)}
	end := model.BPoint{StockID: "AAPL", Ordinal: 2, Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Price: decimal.NewFromInt(110)}
	bars := []model.PriceBar{{Date: start.Date, Close: 100}, {Date: end.Date, Close: 110}}
	seg := model.NewClosedSegment(start, end, bars, 1)
	seg.DominantPattern = model.PatternBreakout

	p := &model.Prediction{
		StockID:         "AAPL",
		GeneratedAt:     time.Date(2024, 1, 12, 8, 0, 0, 0, time.UTC),
		CurrentPrice:    decimal.RequireFromString("111.25"),
		CurrentPattern:  model.PatternBoxRange,
		Recommendation:  model.RecommendWatch,
		InvestmentScore: 35,
	}
	return []*model.Segment{seg}, p
}

func TestPublisherRoundTripIntoStore(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	segs, pred := testWrite()

	if err := NewPublisher(client).Append(ctx, "AAPL", segs, pred); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.subject != SubjectAppend {
		t.Errorf("subject = %q", client.subject)
	}
	if client.msgID != model.GeneratePredictionID("AAPL", pred.GeneratedAt) {
		t.Errorf("msg id should be the prediction id, got %q", client.msgID)
	}
	if segs[0].Bars == nil {
		t.Error("publishing must not strip the caller's bars")
	}

	store := &recordingStore{}
	if _, err := HandleAppend(ctx, client.data, store); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.stockID != "AAPL" || len(store.segments) != 1 {
		t.Fatalf("unexpected append %+v", store)
	}
	got := store.segments[0]
	if got.SegmentID != segs[0].SegmentID || got.Bars != nil || got.DominantPattern != model.PatternBreakout {
		t.Errorf("unexpected segment %+v", got)
	}
	if got.EndBPoint == nil || got.EndBPoint.Ordinal != 2 {
		t.Error("closed segment lost its end b-point")
	}
	if !store.prediction.CurrentPrice.Equal(pred.CurrentPrice) || store.prediction.CurrentPattern != model.PatternBoxRange {
		t.Errorf("unexpected prediction %+v", store.prediction)
	}
}

func TestHandleAppendErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := HandleAppend(ctx, []byte("{"), &recordingStore{}); err == nil {
		t.Error("expected decode error")
	}
	if _, err := HandleAppend(ctx, []byte(`{"segments":[]}`), &recordingStore{}); err == nil {
		t.Error("expected error for missing stock id")
	}

	boom := errors.New("disk full")
	_, err := HandleAppend(ctx, []byte(`{"stock_id":"AAPL"}`), &recordingStore{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestMsgIDWithoutPrediction(t *testing.T) {
	segs, _ := testWrite()
	a := NewAppendMsg("AAPL", segs, nil).MsgID()
	b := NewAppendMsg("AAPL", segs, nil).MsgID()
	if a == "" || a != b {
		t.Errorf("msg id must be deterministic, got %q and %q", a, b)
	}
}
