package derive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Engine writes the three projections of each trade. The columnar append is
// durable before projections are attempted; a failure in one projection
// store is logged and does not prevent the others.
type Engine struct {
	columnar *store.Columnar
	db       *store.DB
	cache    *store.Cache
	logger   *slog.Logger

	newAccountsKey   string
	newAccountsLimit int
}

// NewEngine wires the three store clients.
func NewEngine(columnar *store.Columnar, db *store.DB, cache *store.Cache, newAccountsKey string, newAccountsLimit int, logger *slog.Logger) *Engine {
	return &Engine{
		columnar: columnar,
		db:       db,
		cache:    cache,
		logger:   logger.With("component", "derive_engine"),

		newAccountsKey:   newAccountsKey,
		newAccountsLimit: newAccountsLimit,
	}
}

// HandleTrade processes one canonical trade: append the row, then derive and
// upsert the price and progress projections.
func (e *Engine) HandleTrade(ctx context.Context, t *types.PfTrade) error {
	if err := e.columnar.InsertTrade(ctx, t); err != nil {
		return fmt.Errorf("trade append: %w", err)
	}

	if priceRow, err := BuildPriceRow(t); err != nil {
		e.logger.Warn("skipping price projection", "signature", t.Signature, "error", err)
	} else {
		if err := e.db.UpsertPrice(ctx, priceRow); err != nil {
			e.logger.Error("price upsert failed", "mint", t.Mint, "error", err)
		}
		if err := e.upsertCachePrice(ctx, NewCachePrice(priceRow)); err != nil {
			e.logger.Error("price cache upsert failed", "mint", t.Mint, "error", err)
		}
	}

	if progressRow, err := BuildProgressRow(t); err != nil {
		e.logger.Warn("skipping progress projection", "signature", t.Signature, "error", err)
	} else {
		if err := e.upsertCacheProgress(ctx, NewCacheProgress(progressRow, t.Slot)); err != nil {
			e.logger.Error("progress cache upsert failed", "mint", t.Mint, "error", err)
		}
		if err := e.db.UpsertProgress(ctx, progressRow); err != nil {
			e.logger.Error("progress upsert failed", "mint", t.Mint, "error", err)
		}
	}

	if err := e.cache.PushNewAccount(ctx, e.newAccountsKey, t.BondingCurve, e.newAccountsLimit); err != nil {
		e.logger.Error("new-accounts push failed", "bonding_curve", t.BondingCurve, "error", err)
	}

	return nil
}

// HandleFulfillment persists a resolver fulfillment into the relational
// store.
func (e *Engine) HandleFulfillment(ctx context.Context, token *types.EnrichedToken) error {
	if err := e.db.UpsertToken(ctx, token); err != nil {
		return err
	}
	e.logger.Info("fulfillment persisted", "mint", token.Mint, "platform", token.Platform)
	return nil
}

// HandleCreate announces a token creation on the cache bus.
func (e *Engine) HandleCreate(ctx context.Context, create *types.PfCreate) error {
	payload, err := json.Marshal(create)
	if err != nil {
		return fmt.Errorf("marshal create: %w", err)
	}
	return e.cache.Publish(ctx, store.CreationChannel, string(payload))
}

// HandleMigrate announces a migration on the cache bus.
func (e *Engine) HandleMigrate(ctx context.Context, migrate *types.PfMigrate) error {
	payload, err := json.Marshal(migrate)
	if err != nil {
		return fmt.Errorf("marshal migrate: %w", err)
	}
	return e.cache.Publish(ctx, store.MigrationChannel, string(payload))
}

// upsertCachePrice applies the field-specific merge: a resolver-originated
// enrichment is never clobbered by a trade-originated update even though
// both write to the same key.
func (e *Engine) upsertCachePrice(ctx context.Context, incoming *CachePrice) error {
	raw, found, err := e.cache.HGet(ctx, store.PricesHashKey, incoming.Mint)
	if err != nil {
		return err
	}

	merged := incoming
	if found {
		var existing CachePrice
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("unmarshal cached price: %w", err)
		}
		merged = MergeCachePrice(&existing, incoming)
	}

	value, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged price: %w", err)
	}
	if err := e.cache.HSet(ctx, store.PricesHashKey, merged.Mint, string(value)); err != nil {
		return err
	}

	// Fan the fresh price out to any live price stream for this mint.
	return e.cache.Publish(ctx, "ws:"+merged.Mint, string(value))
}

func (e *Engine) upsertCacheProgress(ctx context.Context, incoming *CacheProgress) error {
	raw, found, err := e.cache.HGet(ctx, store.ProgressHashKey, incoming.Mint)
	if err != nil {
		return err
	}

	merged := incoming
	if found {
		var existing CacheProgress
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("unmarshal cached progress: %w", err)
		}
		merged = MergeCacheProgress(&existing, incoming)
	}

	value, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged progress: %w", err)
	}
	return e.cache.HSet(ctx, store.ProgressHashKey, merged.Mint, string(value))
}
