package derive

import (
	"time"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// CachePrice is the pf_prices hash entry. Trade-derived fields overwrite on
// every upsert; metadata fields survive unless the incoming value is
// non-empty.
type CachePrice struct {
	Mint         string `json:"mint"`
	BondingCurve string `json:"bonding_curve"`

	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`

	Price     int64                `json:"price"`
	Source    types.PriceSource    `json:"source"`
	Direction types.TradeDirection `json:"direction"`
	Decimals  int16                `json:"decimals"`

	VirtualTokenReserves int64 `json:"virtual_token_reserves"`
	VirtualSolReserves   int64 `json:"virtual_sol_reserves"`
	RealTokenReserves    int64 `json:"real_token_reserves"`
	RealSolReserves      int64 `json:"real_sol_reserves"`

	URI         string `json:"uri,omitempty"`
	Description string `json:"description,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	Website     string `json:"website,omitempty"`
	Image       string `json:"image,omitempty"`

	Ts        time.Time `json:"ts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCachePrice builds the cache entry for a freshly derived price row.
// Metadata is not available from trades and stays empty.
func NewCachePrice(row *store.PriceRow) *CachePrice {
	now := time.Now().UTC()
	return &CachePrice{
		Mint:         row.Mint,
		BondingCurve: row.BondingCurve,

		Price:     row.Price,
		Source:    row.Source,
		Direction: row.Direction,
		Decimals:  row.Decimals,

		VirtualTokenReserves: row.VirtualTokenReserves,
		VirtualSolReserves:   row.VirtualSolReserves,
		RealTokenReserves:    row.RealTokenReserves,
		RealSolReserves:      row.RealSolReserves,

		Ts:        row.Ts,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MergeCachePrice applies the upsert rule onto an existing entry: all
// trade-derived fields are overwritten, each metadata field only when the
// incoming value is non-empty. The merged entry is returned; existing is not
// modified.
func MergeCachePrice(existing, incoming *CachePrice) *CachePrice {
	merged := *existing

	merged.BondingCurve = incoming.BondingCurve
	merged.Price = incoming.Price
	merged.Source = incoming.Source
	merged.Direction = incoming.Direction
	merged.Decimals = incoming.Decimals
	merged.VirtualTokenReserves = incoming.VirtualTokenReserves
	merged.VirtualSolReserves = incoming.VirtualSolReserves
	merged.RealTokenReserves = incoming.RealTokenReserves
	merged.RealSolReserves = incoming.RealSolReserves
	merged.Ts = incoming.Ts
	merged.UpdatedAt = time.Now().UTC()

	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Symbol != "" {
		merged.Symbol = incoming.Symbol
	}
	if incoming.URI != "" {
		merged.URI = incoming.URI
	}
	if incoming.Description != "" {
		merged.Description = incoming.Description
	}
	if incoming.Twitter != "" {
		merged.Twitter = incoming.Twitter
	}
	if incoming.Telegram != "" {
		merged.Telegram = incoming.Telegram
	}
	if incoming.Website != "" {
		merged.Website = incoming.Website
	}
	if incoming.Image != "" {
		merged.Image = incoming.Image
	}

	return &merged
}

// CacheProgress is the pf_bonding_curve_progress hash entry.
type CacheProgress struct {
	Mint         string `json:"mint"`
	BondingCurve string `json:"bonding_curve"`

	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`

	ProgressBps       uint16  `json:"progress_bps"`
	ProgressPct       float64 `json:"progress_pct"`
	PriceLamports     uint64  `json:"price_lamports"`
	MarketCapLamports uint64  `json:"market_cap_lamports"`

	IsPreMigration bool `json:"is_pre_migration"`
	IsMigrated     bool `json:"is_migrated"`
	IsTradeable    bool `json:"is_tradeable"`

	LastTradeSlot uint64 `json:"last_trade_slot"`
	LastUpdateTs  int64  `json:"last_update_ts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCacheProgress builds the cache entry for a derived progress row.
func NewCacheProgress(row *store.ProgressRow, slot uint64) *CacheProgress {
	now := time.Now().UTC()
	return &CacheProgress{
		Mint:         row.Mint,
		BondingCurve: row.BondingCurve,

		VirtualSolReserves:   row.VirtualSolReserves,
		VirtualTokenReserves: row.VirtualTokenReserves,
		RealSolReserves:      row.RealSolReserves,
		RealTokenReserves:    row.RealTokenReserves,

		ProgressBps:       row.ProgressBps,
		ProgressPct:       row.ProgressPct,
		PriceLamports:     row.PriceLamports,
		MarketCapLamports: row.MarketCapLamports,

		IsPreMigration: row.IsPreMigration,
		IsMigrated:     row.IsMigrated,
		IsTradeable:    row.IsTradeable,

		LastTradeSlot: slot,
		LastUpdateTs:  now.Unix(),

		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MergeCacheProgress overwrites every derived field of the existing entry,
// keeping only its created_at.
func MergeCacheProgress(existing, incoming *CacheProgress) *CacheProgress {
	merged := *incoming
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = time.Now().UTC()
	return &merged
}
