package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Publisher announces finished rebuilds on a Kafka topic so downstream
// consumers (cache invalidation, ops dashboards) learn that a new index
// generation went live. A nil Publisher is valid and publishes nothing.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// New creates a publisher, or nil when no brokers are configured.
func New(brokers []string, topic string, log *slog.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})

	return &Publisher{writer: w, log: log}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

// Publish sends the event as a JSON message keyed by key. Publishing is
// advisory; callers treat failures as warnings, not run failures.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Info("rebuild event published", slog.String("key", key))
	return nil
}
