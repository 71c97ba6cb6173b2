// The resolver service answers lookup requests published on the cache bus:
// it races cache, relational and on-chain probes, enriches the winner with
// metadata, and fans the result out to the caller, the cache and the bus.
//
//	cache req_handler -> resolver race -> {caller channel, cache keys, price_req, fulfill_req}
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xdmtry/dex-indexer/internal/bus"
	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/internal/resolve"
	"github.com/0xdmtry/dex-indexer/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	if err := cfg.ValidateResolver(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := store.NewCache(cfg.Redis.URL)
	if err != nil {
		logger.Error("failed to connect cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	db, err := store.NewDB(ctx, cfg.Postgres.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	producer := bus.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	rpc := resolve.NewRPCClient(cfg.RPC.HTTPURL)
	resolver := resolve.NewResolver(cache, db, rpc, logger)
	service := resolve.NewService(resolver, cache, producer, logger)

	go func() {
		if err := service.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("resolve service stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("resolver started", "rpc", cfg.RPC.HTTPURL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}
}
