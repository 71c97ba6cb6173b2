// The processor consumes decoded events from the bus and materializes them:
// the canonical trade row in ClickHouse, price and progress upserts in
// Postgres, merge-upserts in Redis, and lifecycle announcements on the cache
// bus.
//
//	bus consumer -> derive engine -> {clickhouse, postgres, redis}
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xdmtry/dex-indexer/internal/bus"
	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/internal/derive"
	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	if err := cfg.ValidateProcessor(); err != nil {
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

	columnar, err := store.NewColumnar(cfg.ClickHouse, logger)
	if err != nil {
		logger.Error("failed to connect clickhouse", "error", err)
		os.Exit(1)
	}
	defer columnar.Close()

	engine := derive.NewEngine(columnar, db, cache, cfg.NewAccountsKey, cfg.NewAccountsLimit, logger)

	router := bus.NewRouter(logger)
	router.Handle(bus.TopicPfTrade, func(ctx context.Context, evt *types.Event) error {
		return engine.HandleTrade(ctx, evt.Data.(*types.PfTrade))
	})
	router.Handle(bus.TopicFulfillReq, func(ctx context.Context, evt *types.Event) error {
		return engine.HandleFulfillment(ctx, evt.Data.(*types.EnrichedToken))
	})
	router.Handle(bus.TopicPfCreate, func(ctx context.Context, evt *types.Event) error {
		return engine.HandleCreate(ctx, evt.Data.(*types.PfCreate))
	})
	router.Handle(bus.TopicPfMigrate, func(ctx context.Context, evt *types.Event) error {
		return engine.HandleMigrate(ctx, evt.Data.(*types.PfMigrate))
	})

	// The remaining topics are consumed so offsets advance; their
	// materialization has no store yet.
	logOnly := func(ctx context.Context, evt *types.Event) error {
		logger.Debug("event observed", "type", evt.Type)
		return nil
	}
	for _, topic := range []string{
		bus.TopicPfPriceUpdate,
		bus.TopicPsTrade, bus.TopicPsPriceUpdate, bus.TopicPsCreate,
		bus.TopicRllTrade, bus.TopicRllPriceUpdate, bus.TopicRllCreate, bus.TopicRllMigrate,
	} {
		router.Handle(topic, logOnly)
	}

	consumer := bus.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, router, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bus consumer stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("processor started", "brokers", cfg.Kafka.Brokers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}
}
