package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	subscribeMaxRetries = 30
	subscribeRetryDelay = 2 * time.Second
	readErrorDelay      = time.Second
)

// Consumer reads every registered topic under one consumer group and feeds
// messages through the router. Offsets start at the earliest available and
// commit automatically.
type Consumer struct {
	brokers []string
	groupID string
	router  *Router
	logger  *slog.Logger
}

// NewConsumer builds a consumer for the topics registered on the router.
func NewConsumer(brokers []string, groupID string, router *Router, logger *slog.Logger) *Consumer {
	return &Consumer{
		brokers: brokers,
		groupID: groupID,
		router:  router,
		logger:  logger.With("component", "bus_consumer"),
	}
}

// Run subscribes and consumes until ctx is cancelled. The initial
// subscription is retried while the brokers (or topics) come up; exhausting
// the retries is fatal.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.waitForBroker(ctx); err != nil {
		return err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        c.groupID,
		GroupTopics:    c.router.Topics(),
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	c.logger.Info("consumer subscribed", "group", c.groupID, "topics", c.router.Topics())

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("consumer read error", "error", err)
			if sleepErr := sleepCtx(ctx, readErrorDelay); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if err := c.router.Dispatch(ctx, msg.Topic, msg.Value); err != nil {
			c.logger.Error("failed to handle message", "topic", msg.Topic, "error", err)
		}
	}
}

// waitForBroker dials the first broker until it answers, up to the retry
// budget.
func (c *Consumer) waitForBroker(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= subscribeMaxRetries; attempt++ {
		conn, err := kafka.DialContext(ctx, "tcp", c.brokers[0])
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err
		c.logger.Warn("subscribe attempt failed, retrying",
			"attempt", attempt,
			"max", subscribeMaxRetries,
			"error", err,
		)
		if err := sleepCtx(ctx, subscribeRetryDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to subscribe after %d attempts: %w", subscribeMaxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
