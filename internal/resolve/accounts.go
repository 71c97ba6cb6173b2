package resolve

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// BondingCurveAccount is the decoded Pump.fun bonding-curve account. The
// token-2022 and SPL variants differ only in trailing padding, so a single
// decode covers both.
type BondingCurveAccount struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              string
}

// PoolAccount is the decoded PumpSwap pool account.
type PoolAccount struct {
	PoolBump              uint8
	Index                 uint16
	Creator               string
	BaseMint              string
	QuoteMint             string
	LpMint                string
	PoolBaseTokenAccount  string
	PoolQuoteTokenAccount string
	LpSupply              uint64
	CoinCreator           string
}

// PoolStateAccount is the decoded LaunchLab pool-state account.
type PoolStateAccount struct {
	Epoch         uint64
	AuthBump      uint8
	Status        uint8
	BaseDecimals  uint8
	QuoteDecimals uint8
	MigrateType   uint8
	Supply        uint64
	TotalBaseSell uint64
	VirtualBase   uint64
	VirtualQuote  uint64
	RealBase      uint64
	RealQuote     uint64
	BaseMint      string
	QuoteMint     string
}

type acctReader struct {
	buf []byte
	off int
	err error
}

func (r *acctReader) u8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *acctReader) u16(field string) uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *acctReader) u64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *acctReader) pubkey(field string) string {
	if r.err != nil {
		return ""
	}
	if r.off+32 > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return ""
	}
	v := base58.Encode(r.buf[r.off : r.off+32])
	r.off += 32
	return v
}

func (r *acctReader) skip(field string, n int) {
	if r.err != nil {
		return
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return
	}
	r.off += n
}

// DecodeBondingCurve parses a bonding-curve account after its 8-byte
// discriminator.
func DecodeBondingCurve(data []byte) (*BondingCurveAccount, error) {
	r := &acctReader{buf: data}
	r.skip("discriminator", 8)

	acc := &BondingCurveAccount{
		VirtualTokenReserves: r.u64("virtual_token_reserves"),
		VirtualSolReserves:   r.u64("virtual_sol_reserves"),
		RealTokenReserves:    r.u64("real_token_reserves"),
		RealSolReserves:      r.u64("real_sol_reserves"),
		TokenTotalSupply:     r.u64("token_total_supply"),
		Complete:             r.u8("complete") != 0,
		Creator:              r.pubkey("creator"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return acc, nil
}

// DecodePool parses a PumpSwap pool account after its 8-byte discriminator.
func DecodePool(data []byte) (*PoolAccount, error) {
	r := &acctReader{buf: data}
	r.skip("discriminator", 8)

	acc := &PoolAccount{
		PoolBump:              r.u8("pool_bump"),
		Index:                 r.u16("index"),
		Creator:               r.pubkey("creator"),
		BaseMint:              r.pubkey("base_mint"),
		QuoteMint:             r.pubkey("quote_mint"),
		LpMint:                r.pubkey("lp_mint"),
		PoolBaseTokenAccount:  r.pubkey("pool_base_token_account"),
		PoolQuoteTokenAccount: r.pubkey("pool_quote_token_account"),
		LpSupply:              r.u64("lp_supply"),
		CoinCreator:           r.pubkey("coin_creator"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return acc, nil
}

// DecodePoolState parses a LaunchLab pool-state account after its 8-byte
// discriminator. An unrecognized status byte fails closed.
func DecodePoolState(data []byte) (*PoolStateAccount, error) {
	r := &acctReader{buf: data}
	r.skip("discriminator", 8)

	acc := &PoolStateAccount{
		Epoch:         r.u64("epoch"),
		AuthBump:      r.u8("auth_bump"),
		Status:        r.u8("status"),
		BaseDecimals:  r.u8("base_decimals"),
		QuoteDecimals: r.u8("quote_decimals"),
		MigrateType:   r.u8("migrate_type"),
		Supply:        r.u64("supply"),
		TotalBaseSell: r.u64("total_base_sell"),
		VirtualBase:   r.u64("virtual_base"),
		VirtualQuote:  r.u64("virtual_quote"),
		RealBase:      r.u64("real_base"),
		RealQuote:     r.u64("real_quote"),
	}

	// total_quote_fund_raising, quote_protocol_fee, platform_fee,
	// migrate_fee, then the vesting block.
	r.skip("fees", 8*4)
	r.skip("vesting", 40)
	r.skip("global_config", 32)
	r.skip("platform_config", 32)
	acc.BaseMint = r.pubkey("base_mint")
	acc.QuoteMint = r.pubkey("quote_mint")

	if r.err != nil {
		return nil, r.err
	}
	if acc.Status > 2 {
		return nil, fmt.Errorf("unrecognized pool state status %d", acc.Status)
	}
	return acc, nil
}

// SPL token account and mint account field offsets.
const (
	tokenAccountAmountOffset = 64
	mintDecimalsOffset       = 44
)

// TokenAccountAmount reads the raw amount of an SPL token account.
func TokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountAmountOffset+8 {
		return 0, fmt.Errorf("token account truncated: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAccountAmountOffset:]), nil
}

// MintDecimals reads the decimals byte of a mint account.
func MintDecimals(data []byte) (uint8, error) {
	if len(data) < mintDecimalsOffset+1 {
		return 0, fmt.Errorf("mint account truncated: %d bytes", len(data))
	}
	return data[mintDecimalsOffset], nil
}
