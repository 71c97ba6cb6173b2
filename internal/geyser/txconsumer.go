package geyser

import (
	"context"
	"log/slog"

	"github.com/0xdmtry/dex-indexer/internal/txdecode"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// TxConsumer subscribes to the transaction stream, decodes each transaction
// and forwards the resulting events. A full events channel blocks the
// consumer, propagating backpressure to the stream.
type TxConsumer struct {
	client  Client
	decoder *txdecode.Decoder
	filter  TxFilter
	events  chan<- types.Event
	logger  *slog.Logger
}

// NewTxConsumer builds a consumer streaming transactions that touch the
// platform programs.
func NewTxConsumer(client Client, decoder *txdecode.Decoder, events chan<- types.Event, logger *slog.Logger) *TxConsumer {
	return &TxConsumer{
		client:  client,
		decoder: decoder,
		filter: TxFilter{AccountInclude: []string{
			types.PumpFunProgramID,
			types.PumpSwapProgramID,
			types.RaydiumLaunchLabProgramID,
		}},
		events: events,
		logger: logger.With("component", "tx_consumer"),
	}
}

// Run connects and consumes the stream with auto-reconnect. Blocks until ctx
// is cancelled.
func (c *TxConsumer) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		connected, err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = initialBackoff
		}

		c.logger.Warn("transaction stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *TxConsumer) consume(ctx context.Context) (bool, error) {
	stream, err := c.client.SubscribeTransactions(ctx, c.filter)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	// Unblock a pending Recv as soon as the consumer is cancelled.
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	c.logger.Info("transaction stream connected")

	for {
		tx, err := stream.Recv(ctx)
		if err != nil {
			return true, err
		}

		evt, err := c.decoder.Decode(tx)
		if err != nil {
			c.logger.Warn("dropping undecodable transaction", "error", err)
			continue
		}
		if evt == nil {
			continue
		}

		select {
		case c.events <- *evt:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
