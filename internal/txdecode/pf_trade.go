package txdecode

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Account-key positions of a Pump.fun trade transaction.
const (
	pfKeySigner       = 0
	pfKeyMint         = 1
	pfKeyBondingCurve = 2
)

// feeLogPrefix marks the fee program's per-trade annotations, emitted as
// key=value pairs, one per log line.
const feeLogPrefix = "Program log: Pump Fees Program: get_fees "

// programDataPrefix marks the base64-encoded trade event payload.
const programDataPrefix = "Program data: "

// TransferChecked opcode of the token program; its amount follows as a
// little-endian u64.
const tokenTransferCheckedOp = 12

// pfTradeEvent is the fixed layout of the trade event payload: an 8-byte
// discriminator followed by the fields below, integers little-endian.
type pfTradeEvent struct {
	Mint                  string
	SolAmount             uint64
	TokenAmount           uint64
	IsBuy                 bool
	User                  string
	Timestamp             uint64
	VirtualSolReserves    uint64
	VirtualTokenReserves  uint64
	RealSolReserves       uint64
	RealTokenReserves     uint64
	FeeRecipient          string
	FeeBasisPoints        uint64
	Fee                   uint64
	Creator               string
	CreatorFeeBasisPoints uint64
	CreatorFee            uint64
	TrackVolume           bool
	TotalUnclaimed        uint64
	TotalClaimed          uint64
	CurrentSolVolume      uint64
	LastUpdateTimestamp   int64
}

// DecodePfTrade extracts the canonical trade record from a Pump.fun swap
// transaction. Fields come from three disjoint sources: the account-key
// table, the fee program's log annotations, and the trade event payload.
func DecodePfTrade(tx *types.TxRecord) (*types.PfTrade, error) {
	sig, err := signature(tx)
	if err != nil {
		return nil, err
	}
	hash, err := blockhash(tx)
	if err != nil {
		return nil, err
	}

	signer, err := accountKey(tx, pfKeySigner, "signer")
	if err != nil {
		return nil, err
	}
	mint, err := accountKey(tx, pfKeyMint, "mint")
	if err != nil {
		return nil, err
	}
	curve, err := accountKey(tx, pfKeyBondingCurve, "bonding_curve")
	if err != nil {
		return nil, err
	}

	fees, err := parseFeeLogs(tx)
	if err != nil {
		return nil, err
	}

	evt, err := parsePfTradeEvent(tx)
	if err != nil {
		return nil, err
	}

	ixName, err := pfIxName(tx)
	if err != nil {
		return nil, err
	}

	solAmount, err := balanceSolAmount(tx)
	if err != nil {
		return nil, err
	}
	tokenAmount, err := innerTokenAmount(tx, 0)
	if err != nil {
		return nil, err
	}
	decimals, err := tokenDecimals(tx)
	if err != nil {
		return nil, err
	}
	if tx.Meta == nil {
		return nil, decodeErr("transaction_fee", "meta missing")
	}

	return &types.PfTrade{
		Signature: sig,
		Slot:      tx.Slot,
		Blockhash: hash,

		Signer:       signer,
		FeePayer:     signer,
		User:         evt.User,
		Creator:      evt.Creator,
		FeeRecipient: evt.FeeRecipient,

		Mint:         mint,
		BondingCurve: curve,
		IsPumpPool:   fees.isPumpPool,

		IxName: ixName,
		IsBuy:  strings.HasPrefix(ixName, "buy"),

		SolAmount:         solAmount,
		TokenAmount:       tokenAmount,
		TradeSizeLamports: fees.tradeSizeLamports,

		TransactionFee:        tx.Meta.Fee,
		FeeLamports:           fees.feeLamports,
		FeeBasisPoints:        fees.feeBasisPoints,
		CreatorFeeLamports:    fees.creatorFeeLamports,
		CreatorFeeBasisPoints: fees.creatorFeeBasisPoints,

		Decimals:             int16(decimals),
		VirtualSolReserves:   evt.VirtualSolReserves,
		VirtualTokenReserves: evt.VirtualTokenReserves,
		RealSolReserves:      evt.RealSolReserves,
		RealTokenReserves:    evt.RealTokenReserves,
		MarketCapLamports:    fees.marketCapLamports,

		TrackVolume:          evt.TrackVolume,
		TotalUnclaimedTokens: evt.TotalUnclaimed,
		TotalClaimedTokens:   evt.TotalClaimed,
		CurrentSolVolume:     evt.CurrentSolVolume,
		LastUpdateTimestamp:  evt.LastUpdateTimestamp,

		Ts: time.Now().UTC(),
	}, nil
}

/* ========= Transaction identity ========= */

func signature(tx *types.TxRecord) (string, error) {
	if len(tx.Signature) != 64 {
		return "", decodeErr("signature", "invalid length %d, want 64", len(tx.Signature))
	}
	return base58.Encode(tx.Signature), nil
}

func blockhash(tx *types.TxRecord) (string, error) {
	if tx.Message == nil {
		return "", decodeErr("blockhash", "message missing")
	}
	if len(tx.Message.RecentBlockhash) != 32 {
		return "", decodeErr("blockhash", "invalid length %d, want 32", len(tx.Message.RecentBlockhash))
	}
	return base58.Encode(tx.Message.RecentBlockhash), nil
}

func accountKey(tx *types.TxRecord, idx int, field string) (string, error) {
	if tx.Message == nil {
		return "", decodeErr(field, "message missing")
	}
	if idx >= len(tx.Message.AccountKeys) {
		return "", decodeErr(field, "no account key at index %d", idx)
	}
	key := tx.Message.AccountKeys[idx]
	if len(key) != 32 {
		return "", decodeErr(field, "invalid pubkey length %d", len(key))
	}
	return base58.Encode(key), nil
}

/* ========= Instruction semantics ========= */

func pfIxName(tx *types.TxRecord) (string, error) {
	if tx.Meta == nil {
		return "", decodeErr("ix_name", "meta missing")
	}
	for _, log := range tx.Meta.LogMessages {
		switch {
		case strings.Contains(log, "Instruction: BuyExactSolIn"):
			return "buy_exact_sol_in", nil
		case strings.Contains(log, "Instruction: Buy"):
			return "buy", nil
		case strings.Contains(log, "Instruction: Sell"):
			return "sell", nil
		}
	}
	return "", decodeErr("ix_name", "no trade instruction in logs")
}

/* ========= Trade amounts ========= */

// balanceSolAmount derives the SOL moved by the trade from the fee payer's
// balance delta net of the transaction fee.
func balanceSolAmount(tx *types.TxRecord) (uint64, error) {
	if tx.Meta == nil {
		return 0, decodeErr("sol_amount", "meta missing")
	}
	if len(tx.Meta.PreBalances) == 0 || len(tx.Meta.PostBalances) == 0 {
		return 0, decodeErr("sol_amount", "balances missing")
	}
	delta := int64(tx.Meta.PreBalances[0]) - int64(tx.Meta.PostBalances[0]) - int64(tx.Meta.Fee)
	if delta < 0 {
		delta = -delta
	}
	return uint64(delta), nil
}

// innerTokenAmount reads the amount of the first TransferChecked inner
// instruction in the given inner group.
func innerTokenAmount(tx *types.TxRecord, group int) (uint64, error) {
	if tx.Meta == nil {
		return 0, decodeErr("token_amount", "meta missing")
	}
	if group >= len(tx.Meta.InnerInstructions) {
		return 0, decodeErr("token_amount", "no inner instruction group %d", group)
	}
	for _, ix := range tx.Meta.InnerInstructions[group].Instructions {
		if len(ix.Data) == 0 || ix.Data[0] != tokenTransferCheckedOp {
			continue
		}
		v, err := u64At(ix.Data, 1, "token_amount")
		if err != nil {
			return 0, err
		}
		return v, nil
	}
	return 0, decodeErr("token_amount", "TransferChecked not found")
}

func tokenDecimals(tx *types.TxRecord) (uint32, error) {
	if tx.Meta == nil {
		return 0, decodeErr("decimals", "meta missing")
	}
	if len(tx.Meta.PreTokenBalances) == 0 {
		return 0, decodeErr("decimals", "pre token balances empty")
	}
	ui := tx.Meta.PreTokenBalances[0].UITokenAmount
	if ui == nil {
		return 0, decodeErr("decimals", "ui token amount missing")
	}
	return ui.Decimals, nil
}

/* ========= Fee log annotations ========= */

type feeAnnotations struct {
	isPumpPool            bool
	tradeSizeLamports     uint64
	feeLamports           uint64
	feeBasisPoints        uint64
	creatorFeeLamports    uint64
	creatorFeeBasisPoints uint64
	marketCapLamports     uint64
}

// parseFeeLogs scrapes the fee program's get_fees annotations. Every key must
// be present; a missing key fails the decode. A repeated key keeps its last
// value.
func parseFeeLogs(tx *types.TxRecord) (*feeAnnotations, error) {
	if tx.Meta == nil {
		return nil, decodeErr("fee_logs", "meta missing")
	}

	kv := make(map[string]string)
	for _, log := range tx.Meta.LogMessages {
		rest, ok := strings.CutPrefix(log, feeLogPrefix)
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		kv[key] = value
	}

	var fees feeAnnotations
	var err error
	if fees.isPumpPool, err = feeBool(kv, "is_pump_pool"); err != nil {
		return nil, err
	}
	if fees.tradeSizeLamports, err = feeU64(kv, "trade_size_lamports"); err != nil {
		return nil, err
	}
	if fees.feeLamports, err = feeU64(kv, "fee_lamports"); err != nil {
		return nil, err
	}
	if fees.feeBasisPoints, err = feeU64(kv, "fee_basis_points"); err != nil {
		return nil, err
	}
	if fees.creatorFeeLamports, err = feeU64(kv, "creator_fee_lamports"); err != nil {
		return nil, err
	}
	if fees.creatorFeeBasisPoints, err = feeU64(kv, "creator_fee_basis_points"); err != nil {
		return nil, err
	}
	if fees.marketCapLamports, err = feeU64(kv, "market_cap_lamports"); err != nil {
		return nil, err
	}
	return &fees, nil
}

func feeU64(kv map[string]string, key string) (uint64, error) {
	raw, ok := kv[key]
	if !ok {
		return 0, decodeErr(key, "not found in fee logs")
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, decodeErr(key, "invalid integer %q", raw)
	}
	return v, nil
}

func feeBool(kv map[string]string, key string) (bool, error) {
	raw, ok := kv[key]
	if !ok {
		return false, decodeErr(key, "not found in fee logs")
	}
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, decodeErr(key, "invalid boolean %q", raw)
	}
}

/* ========= Trade event payload ========= */

// eventPayload finds the first "Program data:" log line and base64-decodes it.
func eventPayload(tx *types.TxRecord) ([]byte, error) {
	if tx.Meta == nil {
		return nil, decodeErr("event_payload", "meta missing")
	}
	for _, log := range tx.Meta.LogMessages {
		data, ok := strings.CutPrefix(log, programDataPrefix)
		if !ok {
			continue
		}
		buf, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, decodeErr("event_payload", "base64 decode failed")
		}
		return buf, nil
	}
	return nil, decodeErr("event_payload", "Program data log not found")
}

func parsePfTradeEvent(tx *types.TxRecord) (*pfTradeEvent, error) {
	buf, err := eventPayload(tx)
	if err != nil {
		return nil, err
	}

	r := newReader(buf)
	if err := r.skip("discriminator", 8); err != nil {
		return nil, err
	}

	var evt pfTradeEvent
	if evt.Mint, err = r.pubkey("mint"); err != nil {
		return nil, err
	}
	if evt.SolAmount, err = r.u64("sol_amount"); err != nil {
		return nil, err
	}
	if evt.TokenAmount, err = r.u64("token_amount"); err != nil {
		return nil, err
	}
	if evt.IsBuy, err = r.boolByte("is_buy"); err != nil {
		return nil, err
	}
	if evt.User, err = r.pubkey("user"); err != nil {
		return nil, err
	}
	if evt.Timestamp, err = r.u64("timestamp"); err != nil {
		return nil, err
	}
	if evt.VirtualSolReserves, err = r.u64("virtual_sol_reserves"); err != nil {
		return nil, err
	}
	if evt.VirtualTokenReserves, err = r.u64("virtual_token_reserves"); err != nil {
		return nil, err
	}
	if evt.RealSolReserves, err = r.u64("real_sol_reserves"); err != nil {
		return nil, err
	}
	if evt.RealTokenReserves, err = r.u64("real_token_reserves"); err != nil {
		return nil, err
	}
	if evt.FeeRecipient, err = r.pubkey("fee_recipient"); err != nil {
		return nil, err
	}
	if evt.FeeBasisPoints, err = r.u64("fee_basis_points"); err != nil {
		return nil, err
	}
	if evt.Fee, err = r.u64("fee"); err != nil {
		return nil, err
	}
	if evt.Creator, err = r.pubkey("creator"); err != nil {
		return nil, err
	}
	if evt.CreatorFeeBasisPoints, err = r.u64("creator_fee_basis_points"); err != nil {
		return nil, err
	}
	if evt.CreatorFee, err = r.u64("creator_fee"); err != nil {
		return nil, err
	}
	if evt.TrackVolume, err = r.boolByte("track_volume"); err != nil {
		return nil, err
	}
	if evt.TotalUnclaimed, err = r.u64("total_unclaimed_tokens"); err != nil {
		return nil, err
	}
	if evt.TotalClaimed, err = r.u64("total_claimed_tokens"); err != nil {
		return nil, err
	}
	if evt.CurrentSolVolume, err = r.u64("current_sol_volume"); err != nil {
		return nil, err
	}
	if evt.LastUpdateTimestamp, err = r.i64("last_update_timestamp"); err != nil {
		return nil, err
	}
	return &evt, nil
}
