package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Producer publishes event envelopes to the topic owned by each event type.
// It is safe for concurrent use.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer builds a producer against the given brokers.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 5 * time.Second,
			// Producers may start before the topics exist.
			AllowAutoTopicCreation: true,
		},
		logger: logger.With("component", "bus_producer"),
	}
}

// Publish sends one event to its topic.
func (p *Producer) Publish(ctx context.Context, evt *types.Event) error {
	topic := TopicFor(evt.Type)
	if topic == "" {
		return fmt.Errorf("no topic for event type %q", evt.Type)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	p.logger.Debug("event published", "topic", topic, "type", evt.Type)
	return nil
}

// Run drains the events channel into the bus until ctx is cancelled.
// Publish failures are logged and the event dropped; the producer does not
// redeliver it.
func (p *Producer) Run(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			if err := p.Publish(ctx, &evt); err != nil {
				p.logger.Error("failed to publish event", "type", evt.Type, "error", err)
			}
		}
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
