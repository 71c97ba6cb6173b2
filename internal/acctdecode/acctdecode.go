// Package acctdecode converts raw account snapshots into price-update events.
// The platform of an update is looked up from the tracked-accounts map keyed
// by base58 pubkey; the account data is then decoded with the layout of that
// platform's market account.
package acctdecode

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Minimum account sizes per platform layout.
const (
	pfCurveMinLen  = 40
	psPoolMinLen   = 24
	rllStateMinLen = 53
)

// Pool-state byte offsets of the LaunchLab layout: 8-byte discriminator,
// epoch u64, auth_bump u8, status u8, base_decimals u8, quote_decimals u8,
// migrate_type u8, supply u64, total_base_sell u64, then the virtual
// reserves.
const (
	rllOffStatus        = 17
	rllOffBaseDecimals  = 18
	rllOffQuoteDecimals = 19
	rllOffVirtualBase   = 37
	rllOffVirtualQuote  = 45
)

// rllMaxStatus is the highest pool status the decoder understands; anything
// above it fails closed rather than producing garbage reserves.
const rllMaxStatus = 2

// DecodeError reports an account snapshot that could not be decoded.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func decodeErr(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Decode emits the price-update event for one account snapshot, tagged with
// the platform the account is tracked under.
func Decode(acc *types.AccountRecord, tracked map[string]types.Platform) (*types.Event, error) {
	id := base58.Encode(acc.Pubkey)
	platform, ok := tracked[id]
	if !ok {
		return nil, decodeErr("platform", "account %s not tracked", id)
	}

	switch platform {
	case types.PlatformPumpFun:
		return decodePfCurve(id, acc.Data)
	case types.PlatformPumpSwap:
		return decodePsPool(id, acc.Data)
	case types.PlatformRaydiumLaunchLab:
		return decodeRllState(id, acc.Data)
	default:
		return nil, decodeErr("platform", "unsupported platform %s", platform)
	}
}

// decodePfCurve reads the bonding-curve account: an 8-byte discriminator then
// four u64 reserves in order virtual-token, virtual-sol, real-token, real-sol.
func decodePfCurve(curve string, data []byte) (*types.Event, error) {
	if len(data) < pfCurveMinLen {
		return nil, decodeErr("bonding_curve", "need %d bytes, have %d", pfCurveMinLen, len(data))
	}

	update := &types.PfPriceUpdate{
		BondingCurve:         curve,
		Source:               types.SourcePfBondingCurve,
		Ts:                   time.Now().UTC(),
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[8:16]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[16:24]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[24:32]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[32:40]),
	}
	return &types.Event{Type: types.EventPfPriceUpdated, Data: update}, nil
}

// decodePsPool reads the pool account: an 8-byte discriminator then the two
// token reserves.
func decodePsPool(pool string, data []byte) (*types.Event, error) {
	if len(data) < psPoolMinLen {
		return nil, decodeErr("pool", "need %d bytes, have %d", psPoolMinLen, len(data))
	}

	update := &types.PsPriceUpdate{
		Pool:           pool,
		Source:         types.SourcePsPool,
		Ts:             time.Now().UTC(),
		TokenAReserves: binary.LittleEndian.Uint64(data[8:16]),
		TokenBReserves: binary.LittleEndian.Uint64(data[16:24]),
	}
	return &types.Event{Type: types.EventPsPriceUpdated, Data: update}, nil
}

// decodeRllState reads the LaunchLab pool-state account. An unrecognized
// status byte fails closed.
func decodeRllState(state string, data []byte) (*types.Event, error) {
	if len(data) < rllStateMinLen {
		return nil, decodeErr("pool_state", "need %d bytes, have %d", rllStateMinLen, len(data))
	}
	if status := data[rllOffStatus]; status > rllMaxStatus {
		return nil, decodeErr("pool_state", "unrecognized status byte %d", status)
	}

	update := &types.RllPriceUpdate{
		PoolState:     state,
		Source:        types.SourceRllPoolState,
		Ts:            time.Now().UTC(),
		BaseDecimals:  data[rllOffBaseDecimals],
		QuoteDecimals: data[rllOffQuoteDecimals],
		VirtualBase:   binary.LittleEndian.Uint64(data[rllOffVirtualBase : rllOffVirtualBase+8]),
		VirtualQuote:  binary.LittleEndian.Uint64(data[rllOffVirtualQuote : rllOffVirtualQuote+8]),
	}
	return &types.Event{Type: types.EventRllPriceUpdated, Data: update}, nil
}
