package resolve

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// lamportsPerSol is the quote scale: SOL carries 9 decimals.
const lamportsPerSol = 1_000_000_000

// BondingCurvePrice computes lamports per whole token from bonding-curve
// reserves: virtual_sol / virtual_token * 10^decimals, truncated.
func BondingCurvePrice(acc *BondingCurveAccount, decimals uint8) (int64, error) {
	if acc.VirtualTokenReserves == 0 {
		return 0, fmt.Errorf("virtual_token_reserves is zero")
	}
	price := float64(acc.VirtualSolReserves) / float64(acc.VirtualTokenReserves) * math.Pow10(int(decimals))
	return int64(price), nil
}

// PoolPrice computes lamports per whole token from pool vault balances:
// (quote / 10^9) / (base / 10^decimals) * 10^9, truncated.
func PoolPrice(baseAmount, quoteAmount uint64, decimals uint8) (int64, error) {
	if baseAmount == 0 {
		return 0, fmt.Errorf("base amount is zero")
	}

	quote := decimal.NewFromUint64(quoteAmount).Div(decimal.NewFromInt(lamportsPerSol))
	base := decimal.NewFromUint64(baseAmount).Div(decimal.New(1, int32(decimals)))

	return quote.Div(base).Mul(decimal.NewFromInt(lamportsPerSol)).IntPart(), nil
}

// PoolStatePrice computes lamports per whole token from LaunchLab virtual
// reserves: virtual_quote * 10^9 * 10^base_decimals / 10^quote_decimals /
// virtual_base, carried through a 128-bit intermediate.
func PoolStatePrice(state *PoolStateAccount) (int64, error) {
	if state.VirtualBase == 0 {
		return 0, fmt.Errorf("virtual_base is zero")
	}

	num := new(big.Int).SetUint64(state.VirtualQuote)
	num.Mul(num, big.NewInt(lamportsPerSol))
	num.Mul(num, pow10(int(state.BaseDecimals)))
	num.Div(num, pow10(int(state.QuoteDecimals)))
	num.Div(num, new(big.Int).SetUint64(state.VirtualBase))

	if !num.IsInt64() {
		return 0, fmt.Errorf("pool state price overflows 64 bits")
	}
	return num.Int64(), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
