package nats

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tunogya/subpattern/pkg/model"
)

// Subject constants
const (
	SubjectAppend = "subpattern.append"
	SubjectAll    = "subpattern.>"
)

// AppendMsg carries one stock's new closed segments and its prediction.
// The writer applies it as a single store transaction.
type AppendMsg struct {
	StockID    string            `json:"stock_id"`
	Segments   []*model.Segment  `json:"segments"`
	Prediction *model.Prediction `json:"prediction,omitempty"`
}

// NewAppendMsg builds a message without per-day bars, which the store does not keep
func NewAppendMsg(stockID string, segments []*model.Segment, prediction *model.Prediction) *AppendMsg {
	slim := make([]*model.Segment, len(segments))
	for i, s := range segments {
		c := *s
		c.Bars = nil
		slim[i] = &c
	}
	return &AppendMsg{StockID: stockID, Segments: slim, Prediction: prediction}
}

// MsgID returns a deterministic dedupe key for the message
func (m *AppendMsg) MsgID() string {
	if m.Prediction != nil {
		return model.GeneratePredictionID(m.StockID, m.Prediction.GeneratedAt)
	}
	h := sha256.New()
	h.Write([]byte(m.StockID))
	for _, s := range m.Segments {
		h.Write([]byte("|" + s.SegmentID))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Encode serializes a message to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeAppend deserializes an AppendMsg from JSON bytes
func DecodeAppend(data []byte) (*AppendMsg, error) {
	var msg AppendMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.StockID == "" {
		return nil, fmt.Errorf("append message without stock_id")
	}
	return &msg, nil
}
