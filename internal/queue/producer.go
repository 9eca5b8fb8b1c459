package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps the Kafka writer for transition events.
type Producer struct {
	w *kafka.Writer
}

// NewProducer configures the writer for reliability:
//   - Hash + key: events for the same target land on the same partition.
//   - RequireAll: wait for ISR acknowledgment before reporting success.
//   - MaxAttempts/timeouts bound retries inside one publish call.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Close releases the writer.
func (p *Producer) Close() error { return p.w.Close() }

// Publish writes one transition event, keyed by event id so a redelivery is
// recognizable downstream.
func (p *Producer) Publish(ctx context.Context, msg TransitionMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.EventID),
		Value: b,
	})
}
