package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// MessageSentEvent carries a persisted message plus the conversation's
// participant list, so consumers never have to re-read the conversation.
type MessageSentEvent struct {
	Message      models.Message `json:"message"`
	Participants []string       `json:"participants"`
	SentAt       time.Time      `json:"sent_at"`
}

type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
	}
	return &Producer{writer: w}
}

// PublishMessageSent keys by conversation so per-conversation ordering
// survives partitioning.
func (p *Producer) PublishMessageSent(ctx context.Context, msg *models.Message, participants []string) error {
	ev := MessageSentEvent{Message: *msg, Participants: participants, SentAt: time.Now().UTC()}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.ConversationID),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
