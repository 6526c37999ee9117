package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler receives each decoded message_sent event.
type MessageHandler func(ctx context.Context, ev MessageSentEvent) error

type Consumer struct {
	reader  *kafkago.Reader
	handler MessageHandler
	logger  *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, handler MessageHandler, logger *zap.SugaredLogger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, handler: handler, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warnw("kafka read error", "err", err)
			time.Sleep(time.Second)
			continue
		}
		var ev MessageSentEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.logger.Warnw("bad message event", "err", err)
			continue
		}
		if err := c.handler(ctx, ev); err != nil {
			c.logger.Warnw("message event handler failed", "message", ev.Message.ID, "err", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
