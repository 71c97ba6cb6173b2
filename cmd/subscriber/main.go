// The subscriber owns the live account subscription. It seeds the tracked
// set from the cache, serves price requests from the bus by hot-swapping the
// subscription, and publishes decoded price updates back to the bus.
//
//	bus price_req -> subscription manager -> geyser accounts -> acctdecode -> bus producer
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xdmtry/dex-indexer/internal/bus"
	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/internal/geyser"
	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

const eventBuffer = 1_000

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
	if cfg.Redis.URL == "" {
		logger.Error("invalid config", "error", "REDIS_URL is required")
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

	events := make(chan types.Event, eventBuffer)

	producer := bus.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	go producer.Run(ctx, events)

	client := geyser.NewWSClient(cfg.Geyser)
	manager := geyser.NewManager(client, events, logger)
	go manager.Run(ctx)

	// Resume the markets tracked before the last restart.
	if tracked := seedTracked(ctx, cache, logger); len(tracked) > 0 {
		go func() {
			if err := manager.Update(ctx, tracked); err != nil {
				logger.Error("failed to restore subscription", "error", err)
			}
		}()
	}

	router := bus.NewRouter(logger)
	router.Handle(bus.TopicPriceReq, func(ctx context.Context, evt *types.Event) error {
		req := evt.Data.(*types.SubscriptionRequest)
		go func() {
			if err := manager.Update(ctx, req.TrackedAccounts); err != nil {
				logger.Error("subscription update failed", "error", err)
			}
		}()
		return nil
	})

	consumer := bus.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, router, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bus consumer stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("subscriber started", "geyser", cfg.Geyser.URL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("manager shutdown failed", "error", err)
	}
}

// seedTracked rebuilds the tracked-accounts map from the per-kind
// subscription sets.
func seedTracked(ctx context.Context, cache *store.Cache, logger *slog.Logger) map[string]types.Platform {
	kinds := map[string]types.Platform{
		"bonding_curve": types.PlatformPumpFun,
		"pool":          types.PlatformPumpSwap,
		"pool_state":    types.PlatformRaydiumLaunchLab,
	}

	tracked := make(map[string]types.Platform)
	for kind, platform := range kinds {
		members, err := cache.SubscribedMembers(ctx, kind)
		if err != nil {
			logger.Warn("failed to read subscription set", "kind", kind, "error", err)
			continue
		}
		for _, id := range members {
			tracked[id] = platform
		}
	}
	return tracked
}
