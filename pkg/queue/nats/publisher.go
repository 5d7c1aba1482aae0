package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/tunogya/subpattern/pkg/model"
)

// publisher is the part of Client the Publisher needs
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// Appender persists one stock's segments and prediction
type Appender interface {
	Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error
}

// Publisher is an append sink that hands writes to JetStream instead of
// touching the store directly. A writer process applies them.
type Publisher struct {
	client  publisher
	subject string
}

// NewPublisher creates a publisher on the append subject
func NewPublisher(client publisher) *Publisher {
	return &Publisher{client: client, subject: SubjectAppend}
}

// Append publishes the stock's write as one message
func (p *Publisher) Append(ctx context.Context, stockID string, segments []*model.Segment, prediction *model.Prediction) error {
	msg := NewAppendMsg(stockID, segments, prediction)
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode append message: %w", err)
	}
	return p.client.Publish(ctx, p.subject, data, msg.MsgID())
}

// HandleAppend decodes an append message and applies it to the store
func HandleAppend(ctx context.Context, data []byte, store Appender) (*AppendMsg, error) {
	msg, err := DecodeAppend(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode append message: %w", err)
	}
	if err := store.Append(ctx, msg.StockID, msg.Segments, msg.Prediction); err != nil {
		return msg, fmt.Errorf("failed to append %s: %w", msg.StockID, err)
	}
	return msg, nil
}

// AppendHandler adapts HandleAppend to a JetStream consumer
func AppendHandler(ctx context.Context, store Appender, onDone func(*AppendMsg, error)) MessageHandler {
	return func(m jetstream.Msg) error {
		msg, err := HandleAppend(ctx, m.Data(), store)
		if onDone != nil {
			onDone(msg, err)
		}
		return err
	}
}
