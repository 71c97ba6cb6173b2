package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// PriceRow is the pf_prices projection, upserted keyed by
// (mint, bonding_curve).
type PriceRow struct {
	Mint          string
	BondingCurve  string
	LastSignature string

	Price     int64
	Source    types.PriceSource
	Direction types.TradeDirection
	Decimals  int16

	VirtualTokenReserves int64
	VirtualSolReserves   int64
	RealTokenReserves    int64
	RealSolReserves      int64

	Ts time.Time
}

// ProgressRow is the pf_bonding_curve_progress projection, upserted keyed by
// bonding curve.
type ProgressRow struct {
	Mint          string
	BondingCurve  string
	LastSignature string

	Decimals int16

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64

	ProgressBps       uint16
	ProgressPct       float64
	PriceLamports     uint64
	MarketCapLamports uint64

	IsPreMigration bool
	IsMigrated     bool
	IsTradeable    bool
}

// TokenRow is a token record as stored in the tokens table, read back by the
// resolver.
type TokenRow struct {
	Mint         string
	Platform     types.Platform
	BondingCurve string
	Pool         string
	PoolState    string
	Name         string
	Symbol       string
	URI          string
	Decimals     int16
}

// DB wraps the Postgres pool with the statements the pipeline runs.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB connects a pool to the given database URL.
func NewDB(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (d *DB) Close() {
	d.pool.Close()
}

// UpsertPrice inserts or updates the latest price for a
// (mint, bonding_curve) pair.
func (d *DB) UpsertPrice(ctx context.Context, row *PriceRow) error {
	now := time.Now().UTC()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO pf_prices (
			mint, bonding_curve, last_signature,
			price, source, direction, decimals,
			virtual_token_reserves, virtual_sol_reserves,
			real_token_reserves, real_sol_reserves,
			ts, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (mint, bonding_curve)
		DO UPDATE SET
			last_signature         = EXCLUDED.last_signature,
			price                  = EXCLUDED.price,
			source                 = EXCLUDED.source,
			direction              = EXCLUDED.direction,
			decimals               = EXCLUDED.decimals,
			virtual_token_reserves = EXCLUDED.virtual_token_reserves,
			virtual_sol_reserves   = EXCLUDED.virtual_sol_reserves,
			real_token_reserves    = EXCLUDED.real_token_reserves,
			real_sol_reserves      = EXCLUDED.real_sol_reserves,
			ts                     = EXCLUDED.ts,
			updated_at             = EXCLUDED.updated_at
	`,
		row.Mint, row.BondingCurve, row.LastSignature,
		row.Price, row.Source, row.Direction, row.Decimals,
		row.VirtualTokenReserves, row.VirtualSolReserves,
		row.RealTokenReserves, row.RealSolReserves,
		row.Ts, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert pf_prices: %w", err)
	}
	return nil
}

// UpsertProgress inserts or updates the bonding-curve progress row; the
// conflict clause updates every field except created_at.
func (d *DB) UpsertProgress(ctx context.Context, row *ProgressRow) error {
	now := time.Now().UTC()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO pf_bonding_curve_progress (
			mint, bonding_curve, last_signature,
			decimals,
			virtual_sol_reserves, virtual_token_reserves,
			real_sol_reserves, real_token_reserves,
			progress_bps, progress_pct, price_lamports, market_cap_lamports,
			is_pre_migration, is_migrated, is_tradeable,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (bonding_curve)
		DO UPDATE SET
			mint                   = EXCLUDED.mint,
			last_signature         = EXCLUDED.last_signature,
			decimals               = EXCLUDED.decimals,
			virtual_sol_reserves   = EXCLUDED.virtual_sol_reserves,
			virtual_token_reserves = EXCLUDED.virtual_token_reserves,
			real_sol_reserves      = EXCLUDED.real_sol_reserves,
			real_token_reserves    = EXCLUDED.real_token_reserves,
			progress_bps           = EXCLUDED.progress_bps,
			progress_pct           = EXCLUDED.progress_pct,
			price_lamports         = EXCLUDED.price_lamports,
			market_cap_lamports    = EXCLUDED.market_cap_lamports,
			is_pre_migration       = EXCLUDED.is_pre_migration,
			is_migrated            = EXCLUDED.is_migrated,
			is_tradeable           = EXCLUDED.is_tradeable,
			updated_at             = EXCLUDED.updated_at
	`,
		row.Mint, row.BondingCurve, row.LastSignature,
		row.Decimals,
		int64(row.VirtualSolReserves), int64(row.VirtualTokenReserves),
		int64(row.RealSolReserves), int64(row.RealTokenReserves),
		int32(row.ProgressBps), row.ProgressPct, int64(row.PriceLamports), int64(row.MarketCapLamports),
		row.IsPreMigration, row.IsMigrated, row.IsTradeable,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert pf_bonding_curve_progress: %w", err)
	}
	return nil
}

// UpsertToken persists a resolver fulfillment into the tokens table.
func (d *DB) UpsertToken(ctx context.Context, token *types.EnrichedToken) error {
	now := time.Now().UTC()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO tokens (
			mint, platform, bonding_curve, pool, pool_state,
			name, symbol, uri, decimals,
			description, twitter, telegram, website, image,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (mint)
		DO UPDATE SET
			platform      = EXCLUDED.platform,
			bonding_curve = EXCLUDED.bonding_curve,
			pool          = EXCLUDED.pool,
			pool_state    = EXCLUDED.pool_state,
			name          = EXCLUDED.name,
			symbol        = EXCLUDED.symbol,
			uri           = EXCLUDED.uri,
			decimals      = EXCLUDED.decimals,
			description   = EXCLUDED.description,
			twitter       = EXCLUDED.twitter,
			telegram      = EXCLUDED.telegram,
			website       = EXCLUDED.website,
			image         = EXCLUDED.image,
			updated_at    = EXCLUDED.updated_at
	`,
		token.Mint, token.Platform, token.BondingCurve, token.Pool, token.PoolState,
		token.Name, token.Symbol, token.URI, int16(token.Decimals),
		token.Description, token.Twitter, token.Telegram, token.Website, token.Image,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}
	return nil
}

// FetchTokenByAddress looks up a token treating the input first as a mint,
// then a bonding curve, then a pool, then a pool state. Returns nil with no
// error when nothing matches.
func (d *DB) FetchTokenByAddress(ctx context.Context, input string) (*TokenRow, error) {
	for _, column := range []string{"mint", "bonding_curve", "pool", "pool_state"} {
		row, err := d.fetchTokenBy(ctx, column, input)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
	}
	return nil, nil
}

func (d *DB) fetchTokenBy(ctx context.Context, column, value string) (*TokenRow, error) {
	query := fmt.Sprintf(`
		SELECT mint, platform,
		       COALESCE(bonding_curve, ''), COALESCE(pool, ''), COALESCE(pool_state, ''),
		       name, symbol, COALESCE(uri, ''), decimals
		FROM tokens WHERE %s = $1 LIMIT 1
	`, column)

	var row TokenRow
	err := d.pool.QueryRow(ctx, query, value).Scan(
		&row.Mint, &row.Platform,
		&row.BondingCurve, &row.Pool, &row.PoolState,
		&row.Name, &row.Symbol, &row.URI, &row.Decimals,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch token by %s: %w", column, err)
	}
	return &row, nil
}
