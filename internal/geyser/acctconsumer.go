package geyser

import (
	"context"
	"log/slog"

	"github.com/0xdmtry/dex-indexer/internal/acctdecode"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// accountConsumer streams snapshots for one set of tracked accounts. The
// first successful subscription signals stability exactly once over the
// one-shot channel; the subscription manager waits on that signal before
// tearing down the previous consumer.
type accountConsumer struct {
	client  Client
	tracked map[string]types.Platform
	events  chan<- types.Event
	logger  *slog.Logger
}

func newAccountConsumer(client Client, tracked map[string]types.Platform, events chan<- types.Event, logger *slog.Logger) *accountConsumer {
	return &accountConsumer{
		client:  client,
		tracked: tracked,
		events:  events,
		logger:  logger.With("component", "account_consumer"),
	}
}

// run connects and consumes with auto-reconnect until ctx is cancelled.
// stability is closed after the first subscription is armed.
func (c *accountConsumer) run(ctx context.Context, stability chan<- struct{}) {
	backoff := initialBackoff
	stabilitySent := false

	for {
		if ctx.Err() != nil {
			c.logger.Info("account consumer cancelled")
			return
		}

		connected, err := c.consume(ctx, func() {
			if !stabilitySent {
				close(stability)
				stabilitySent = true
				c.logger.Info("stability reached, subscription active", "accounts", len(c.tracked))
			}
		})
		if ctx.Err() != nil {
			c.logger.Info("account consumer cancelled")
			return
		}
		if connected {
			backoff = initialBackoff
		}

		c.logger.Warn("account stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)
		if sleep(ctx, backoff) != nil {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *accountConsumer) consume(ctx context.Context, onSubscribed func()) (bool, error) {
	accounts := make([]string, 0, len(c.tracked))
	for id := range c.tracked {
		accounts = append(accounts, id)
	}

	stream, err := c.client.SubscribeAccounts(ctx, AccountFilter{Accounts: accounts})
	if err != nil {
		return false, err
	}
	defer stream.Close()

	// Unblock a pending Recv as soon as the task is cancelled.
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	c.logger.Info("account stream connected")
	onSubscribed()

	for {
		acc, err := stream.Recv(ctx)
		if err != nil {
			return true, err
		}

		evt, err := acctdecode.Decode(acc, c.tracked)
		if err != nil {
			c.logger.Warn("dropping undecodable account update", "error", err)
			continue
		}

		select {
		case c.events <- *evt:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
