package txdecode

import (
	"strconv"
	"strings"
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Account-key position of the pool in a PumpSwap trade transaction.
const psKeyPool = 3

// Inner-instruction group carrying the token transfer of a PumpSwap trade.
const psTransferGroup = 1

// DecodePsTrade extracts the lightweight trade record from a PumpSwap pool
// swap.
func DecodePsTrade(tx *types.TxRecord) (*types.PsTrade, error) {
	sig, err := signature(tx)
	if err != nil {
		return nil, err
	}
	mint, err := firstTokenBalanceMint(tx)
	if err != nil {
		return nil, err
	}
	pool, err := accountKey(tx, psKeyPool, "pool")
	if err != nil {
		return nil, err
	}
	direction, err := tradeDirection(tx)
	if err != nil {
		return nil, err
	}
	tokenAmount, err := innerTokenAmount(tx, psTransferGroup)
	if err != nil {
		return nil, err
	}
	solAmount, err := directionalSolAmount(tx, direction)
	if err != nil {
		return nil, err
	}
	user, err := accountKey(tx, 0, "user_pubkey")
	if err != nil {
		return nil, err
	}

	return &types.PsTrade{
		Signature:   sig,
		Mint:        mint,
		Pool:        pool,
		Direction:   direction,
		SolAmount:   int64(solAmount),
		TokenAmount: int64(tokenAmount),
		UserPubkey:  user,
		Ts:          time.Now().UTC(),
	}, nil
}

func firstTokenBalanceMint(tx *types.TxRecord) (string, error) {
	if tx.Meta == nil {
		return "", decodeErr("mint", "meta missing")
	}
	if len(tx.Meta.PreTokenBalances) == 0 {
		return "", decodeErr("mint", "pre token balances empty")
	}
	return tx.Meta.PreTokenBalances[0].Mint, nil
}

func tradeDirection(tx *types.TxRecord) (types.TradeDirection, error) {
	if tx.Meta == nil {
		return "", decodeErr("direction", "meta missing")
	}
	for _, log := range tx.Meta.LogMessages {
		if strings.Contains(log, "Instruction: Sell") {
			return types.DirectionSell, nil
		}
		if strings.Contains(log, "Instruction: Buy") {
			return types.DirectionBuy, nil
		}
	}
	return "", decodeErr("direction", "no trade instruction in logs")
}

// directionalSolAmount computes the SOL moved, signed by direction before
// taking the absolute value: buys spend from the fee payer, sells credit it.
func directionalSolAmount(tx *types.TxRecord, d types.TradeDirection) (uint64, error) {
	if tx.Meta == nil {
		return 0, decodeErr("sol_amount", "meta missing")
	}
	if len(tx.Meta.PreBalances) == 0 || len(tx.Meta.PostBalances) == 0 {
		return 0, decodeErr("sol_amount", "balances missing")
	}
	pre := int64(tx.Meta.PreBalances[0])
	post := int64(tx.Meta.PostBalances[0])
	fee := int64(tx.Meta.Fee)

	var change int64
	if d == types.DirectionBuy {
		change = pre - post - fee
	} else {
		change = post - pre + fee
	}
	if change < 0 {
		change = -change
	}
	return uint64(change), nil
}

// maxPostBalanceOwner returns the owner of the largest post-trade token
// balance, which for pool platforms is the market's vault authority.
func maxPostBalanceOwner(tx *types.TxRecord, field string) (string, error) {
	if tx.Meta == nil {
		return "", decodeErr(field, "meta missing")
	}
	var owner string
	var best uint64
	found := false
	for _, tb := range tx.Meta.PostTokenBalances {
		var amount uint64
		if tb.UITokenAmount != nil {
			if v, err := strconv.ParseUint(tb.UITokenAmount.Amount, 10, 64); err == nil {
				amount = v
			}
		}
		if !found || amount > best {
			best = amount
			owner = tb.Owner
			found = true
		}
	}
	if !found {
		return "", decodeErr(field, "no post token balances")
	}
	return owner, nil
}
