// Package derive computes the price and bonding-curve progress projections
// from decoded trades and writes them to the three stores: a ClickHouse
// append, a Postgres upsert, and a Redis merge-upsert that preserves
// previously enriched metadata.
package derive

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// ErrInvariant marks a trade whose numeric invariants do not hold; the
// projection is skipped and the event dropped.
var ErrInvariant = errors.New("invariant violated")

// maxDecimals bounds 10^decimals to a 64-bit scale factor; the full
// intermediate product is 128-bit.
const maxDecimals = 18

// progressScale is full bonding-curve progress in basis points.
const progressScale = 10_000

// BuildPriceRow derives the pf_prices projection from a trade:
// price = virtual_sol * 10^decimals / virtual_token, integer division over
// a 128-bit intermediate.
func BuildPriceRow(t *types.PfTrade) (*store.PriceRow, error) {
	price, err := marginalPrice(t.VirtualSolReserves, t.VirtualTokenReserves, t.Decimals)
	if err != nil {
		return nil, err
	}

	direction := types.DirectionSell
	if t.IsBuy {
		direction = types.DirectionBuy
	}

	return &store.PriceRow{
		Mint:          t.Mint,
		BondingCurve:  t.BondingCurve,
		LastSignature: t.Signature,

		Price:     int64(price),
		Source:    types.SourcePfTrade,
		Direction: direction,
		Decimals:  t.Decimals,

		VirtualTokenReserves: int64(t.VirtualTokenReserves),
		VirtualSolReserves:   int64(t.VirtualSolReserves),
		RealTokenReserves:    int64(t.RealTokenReserves),
		RealSolReserves:      int64(t.RealSolReserves),

		Ts: t.Ts,
	}, nil
}

// BuildProgressRow derives the bonding-curve progress projection:
// progress_bps = claimed * 10_000 / (claimed + real_token_reserves), with
// lifecycle flags keyed off full progress.
func BuildProgressRow(t *types.PfTrade) (*store.ProgressRow, error) {
	price, err := marginalPrice(t.VirtualSolReserves, t.VirtualTokenReserves, t.Decimals)
	if err != nil {
		return nil, err
	}

	total, carry := bits.Add64(t.TotalClaimedTokens, t.RealTokenReserves, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: token sum overflow", ErrInvariant)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: claimed + real_token_reserves is zero", ErrInvariant)
	}

	// claimed <= total, so the quotient is at most 10_000 and fits.
	hi, lo := bits.Mul64(t.TotalClaimedTokens, progressScale)
	bps, _ := bits.Div64(hi, lo, total)
	progressBps := uint16(bps)

	isMigrated := progressBps >= progressScale

	return &store.ProgressRow{
		Mint:          t.Mint,
		BondingCurve:  t.BondingCurve,
		LastSignature: t.Signature,

		Decimals: t.Decimals,

		VirtualSolReserves:   t.VirtualSolReserves,
		VirtualTokenReserves: t.VirtualTokenReserves,
		RealSolReserves:      t.RealSolReserves,
		RealTokenReserves:    t.RealTokenReserves,

		ProgressBps:       progressBps,
		ProgressPct:       float64(progressBps) / 100.0,
		PriceLamports:     price,
		MarketCapLamports: t.MarketCapLamports,

		IsPreMigration: !isMigrated,
		IsMigrated:     isMigrated,
		IsTradeable:    !isMigrated,
	}, nil
}

// marginalPrice computes lamports per whole token. virtual_token must be
// nonzero and decimals at most 18 so the scale factor fits 64 bits; the
// product virtual_sol * 10^decimals is carried at 128 bits.
func marginalPrice(virtualSol, virtualToken uint64, decimals int16) (uint64, error) {
	if virtualToken == 0 {
		return 0, fmt.Errorf("%w: virtual_token_reserves is zero", ErrInvariant)
	}
	if decimals < 0 || decimals > maxDecimals {
		return 0, fmt.Errorf("%w: decimals %d out of range", ErrInvariant, decimals)
	}

	scale := uint64(1)
	for i := int16(0); i < decimals; i++ {
		scale *= 10
	}

	hi, lo := bits.Mul64(virtualSol, scale)
	if hi >= virtualToken {
		return 0, fmt.Errorf("%w: price overflows 64 bits", ErrInvariant)
	}
	price, _ := bits.Div64(hi, lo, virtualToken)
	return price, nil
}
