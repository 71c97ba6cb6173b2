// The streamer subscribes to the node's transaction stream, decodes each
// transaction into a canonical market event, and publishes it to the bus.
//
//	geyser stream -> txdecode -> bus producer
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xdmtry/dex-indexer/internal/bus"
	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/internal/geyser"
	"github.com/0xdmtry/dex-indexer/internal/txdecode"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// eventBuffer bounds the decoder-to-producer queue; a full queue blocks the
// stream consumer.
const eventBuffer = 10_000

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	if err := cfg.ValidateGeyser(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan types.Event, eventBuffer)

	producer := bus.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	go producer.Run(ctx, events)

	decoder := txdecode.New(txdecode.Options{
		EmitCreates:    cfg.EmitCreates,
		EmitMigrations: cfg.EmitMigrations,
	})
	client := geyser.NewWSClient(cfg.Geyser)
	consumer := geyser.NewTxConsumer(client, decoder, events, logger)

	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("transaction consumer stopped", "error", err)
		}
	}()

	logger.Info("streamer started", "geyser", cfg.Geyser.URL, "brokers", cfg.Kafka.Brokers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())
}
