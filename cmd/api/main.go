// The api binary serves the public query and streaming surface backed by the
// cache.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xdmtry/dex-indexer/internal/api"
	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	if err := cfg.ValidateAPI(); err != nil {
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

	server := api.NewServer(cfg.API.Addr, cache, logger)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("api server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("api started", "addr", cfg.API.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	if err := server.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
}
