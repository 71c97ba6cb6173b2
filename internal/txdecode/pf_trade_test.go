package txdecode

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func key(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func le64(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

// buildTradeEvent assembles the fixed-layout trade event payload.
func buildTradeEvent(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0xAA}, 8)) // discriminator
	b.Write(key(2))                        // mint
	b.Write(le64(1_001_000_000))           // sol_amount
	b.Write(le64(35_000_000_000))          // token_amount
	b.WriteByte(1)                         // is_buy
	b.Write(key(7))                        // user
	b.Write(le64(1_700_000_000))           // timestamp
	b.Write(le64(30_000_000_000_000))      // virtual_sol
	b.Write(le64(1_073_000_000_000_000))   // virtual_token
	b.Write(le64(2_000_000_000_000))       // real_sol
	b.Write(le64(200_000_000_000_000))     // real_token
	b.Write(key(8))                        // fee_recipient
	b.Write(le64(95))                      // fee_basis_points
	b.Write(le64(950_000))                 // fee
	b.Write(key(9))                        // creator
	b.Write(le64(30))                      // creator_fee_basis_points
	b.Write(le64(300_000))                 // creator_fee
	b.WriteByte(1)                         // track_volume
	b.Write(le64(111))                     // total_unclaimed
	b.Write(le64(793_100_000_000_000))     // total_claimed
	b.Write(le64(555))                     // current_sol_volume
	b.Write(le64(1_700_000_100))           // last_update_timestamp
	return b.Bytes()
}

func pfProgramKey(t *testing.T) []byte {
	t.Helper()
	raw, err := base58.Decode(types.PumpFunProgramID)
	if err != nil {
		t.Fatalf("decode program id: %v", err)
	}
	return raw
}

func tradeTx(t *testing.T) *types.TxRecord {
	t.Helper()
	eventB64 := base64.StdEncoding.EncodeToString(buildTradeEvent(t))

	transfer := append([]byte{tokenTransferCheckedOp}, le64(35_000_000_000)...)

	return &types.TxRecord{
		Signature: bytes.Repeat([]byte{0x55}, 64),
		Slot:      424242,
		Message: &types.TxMessage{
			AccountKeys:     [][]byte{key(1), key(2), key(3), pfProgramKey(t)},
			RecentBlockhash: key(4),
			Instructions:    []types.CompiledInstruction{{ProgramIDIndex: 3}},
		},
		Meta: &types.TxMeta{
			Fee:          1_000_000,
			PreBalances:  []uint64{5_000_000_000},
			PostBalances: []uint64{3_998_000_000},
			LogMessages: []string{
				"Program log: Instruction: Buy",
				"Program log: Pump Fees Program: get_fees is_pump_pool=true",
				"Program log: Pump Fees Program: get_fees trade_size_lamports=1001000000",
				"Program log: Pump Fees Program: get_fees fee_lamports=950000",
				"Program log: Pump Fees Program: get_fees fee_basis_points=95",
				"Program log: Pump Fees Program: get_fees creator_fee_lamports=300000",
				"Program log: Pump Fees Program: get_fees creator_fee_basis_points=30",
				"Program log: Pump Fees Program: get_fees market_cap_lamports=32000000000",
				"Program data: " + eventB64,
			},
			PreTokenBalances: []types.TokenBalance{
				{Mint: base58.Encode(key(2)), Owner: base58.Encode(key(1)), UITokenAmount: &types.UITokenAmount{Amount: "0", Decimals: 6}},
			},
			PostTokenBalances: []types.TokenBalance{
				{Mint: base58.Encode(key(2)), Owner: base58.Encode(key(3)), UITokenAmount: &types.UITokenAmount{Amount: "999", Decimals: 6}},
			},
			InnerInstructions: []types.InnerInstructionGroup{
				{Index: 0, Instructions: []types.CompiledInstruction{
					{ProgramIDIndex: 3, Data: []byte{0x01}},
					{ProgramIDIndex: 3, Data: transfer},
				}},
			},
		},
	}
}

func TestDecodePfTrade(t *testing.T) {
	t.Parallel()

	trade, err := DecodePfTrade(tradeTx(t))
	if err != nil {
		t.Fatalf("DecodePfTrade: %v", err)
	}

	if trade.Signature != base58.Encode(bytes.Repeat([]byte{0x55}, 64)) {
		t.Errorf("signature = %q", trade.Signature)
	}
	if trade.Slot != 424242 {
		t.Errorf("slot = %d, want 424242", trade.Slot)
	}
	if trade.Blockhash != base58.Encode(key(4)) {
		t.Errorf("blockhash = %q", trade.Blockhash)
	}
	if trade.Signer != base58.Encode(key(1)) || trade.FeePayer != trade.Signer {
		t.Errorf("signer = %q, fee payer = %q", trade.Signer, trade.FeePayer)
	}
	if trade.Mint != base58.Encode(key(2)) {
		t.Errorf("mint = %q", trade.Mint)
	}
	if trade.BondingCurve != base58.Encode(key(3)) {
		t.Errorf("bonding curve = %q", trade.BondingCurve)
	}
	if trade.User != base58.Encode(key(7)) {
		t.Errorf("user = %q", trade.User)
	}
	if trade.Creator != base58.Encode(key(9)) {
		t.Errorf("creator = %q", trade.Creator)
	}
	if trade.FeeRecipient != base58.Encode(key(8)) {
		t.Errorf("fee recipient = %q", trade.FeeRecipient)
	}
	if !trade.IsPumpPool {
		t.Error("is_pump_pool = false, want true")
	}
	if trade.IxName != "buy" || !trade.IsBuy {
		t.Errorf("ix = %q is_buy=%v", trade.IxName, trade.IsBuy)
	}
	// |pre - post - fee| = |5_000_000_000 - 3_998_000_000 - 1_000_000|
	if trade.SolAmount != 1_001_000_000 {
		t.Errorf("sol amount = %d, want 1001000000", trade.SolAmount)
	}
	if trade.TokenAmount != 35_000_000_000 {
		t.Errorf("token amount = %d, want 35000000000", trade.TokenAmount)
	}
	if trade.TradeSizeLamports != 1_001_000_000 {
		t.Errorf("trade size = %d", trade.TradeSizeLamports)
	}
	if trade.TransactionFee != 1_000_000 {
		t.Errorf("transaction fee = %d", trade.TransactionFee)
	}
	if trade.FeeLamports != 950_000 || trade.FeeBasisPoints != 95 {
		t.Errorf("protocol fee = %d/%d bps", trade.FeeLamports, trade.FeeBasisPoints)
	}
	if trade.CreatorFeeLamports != 300_000 || trade.CreatorFeeBasisPoints != 30 {
		t.Errorf("creator fee = %d/%d bps", trade.CreatorFeeLamports, trade.CreatorFeeBasisPoints)
	}
	if trade.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", trade.Decimals)
	}
	if trade.VirtualSolReserves != 30_000_000_000_000 {
		t.Errorf("virtual sol = %d", trade.VirtualSolReserves)
	}
	if trade.VirtualTokenReserves != 1_073_000_000_000_000 {
		t.Errorf("virtual token = %d", trade.VirtualTokenReserves)
	}
	if trade.RealSolReserves != 2_000_000_000_000 {
		t.Errorf("real sol = %d", trade.RealSolReserves)
	}
	if trade.RealTokenReserves != 200_000_000_000_000 {
		t.Errorf("real token = %d", trade.RealTokenReserves)
	}
	if trade.MarketCapLamports != 32_000_000_000 {
		t.Errorf("market cap = %d", trade.MarketCapLamports)
	}
	if !trade.TrackVolume {
		t.Error("track_volume = false")
	}
	if trade.TotalUnclaimedTokens != 111 || trade.TotalClaimedTokens != 793_100_000_000_000 {
		t.Errorf("volume tracking = %d/%d", trade.TotalUnclaimedTokens, trade.TotalClaimedTokens)
	}
	if trade.CurrentSolVolume != 555 || trade.LastUpdateTimestamp != 1_700_000_100 {
		t.Errorf("sol volume = %d, last update = %d", trade.CurrentSolVolume, trade.LastUpdateTimestamp)
	}
	if trade.Ts.IsZero() {
		t.Error("ts not set")
	}
}

func TestDecodePfTradeMissingFeeKey(t *testing.T) {
	t.Parallel()

	tx := tradeTx(t)
	logs := tx.Meta.LogMessages[:0]
	for _, l := range tx.Meta.LogMessages {
		if l != "Program log: Pump Fees Program: get_fees market_cap_lamports=32000000000" {
			logs = append(logs, l)
		}
	}
	tx.Meta.LogMessages = logs

	_, err := DecodePfTrade(tx)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if derr.Field != "market_cap_lamports" {
		t.Errorf("field = %q, want market_cap_lamports", derr.Field)
	}
}

func TestDecodePfTradeShortEventPayload(t *testing.T) {
	t.Parallel()

	tx := tradeTx(t)
	short := base64.StdEncoding.EncodeToString(buildTradeEvent(t)[:100])
	for i, l := range tx.Meta.LogMessages {
		if len(l) > len(programDataPrefix) && l[:len(programDataPrefix)] == programDataPrefix {
			tx.Meta.LogMessages[i] = programDataPrefix + short
		}
	}

	_, err := DecodePfTrade(tx)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want *DecodeError for short buffer", err)
	}
}

func TestDecodePfTradeBadSignature(t *testing.T) {
	t.Parallel()

	tx := tradeTx(t)
	tx.Signature = tx.Signature[:10]
	if _, err := DecodePfTrade(tx); err == nil {
		t.Fatal("expected error for short signature")
	}
}

func TestDecodePfTradeMissingTransfer(t *testing.T) {
	t.Parallel()

	tx := tradeTx(t)
	tx.Meta.InnerInstructions[0].Instructions = tx.Meta.InnerInstructions[0].Instructions[:1]
	_, err := DecodePfTrade(tx)
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Field != "token_amount" {
		t.Fatalf("error = %v, want token_amount decode error", err)
	}
}
