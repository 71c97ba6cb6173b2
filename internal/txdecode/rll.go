package txdecode

import (
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// DecodeRllTrade extracts the lightweight trade record from a Raydium
// LaunchLab swap. The pool-state address is the authority owning the largest
// post-trade vault balance.
func DecodeRllTrade(tx *types.TxRecord) (*types.RllTrade, error) {
	sig, err := signature(tx)
	if err != nil {
		return nil, err
	}
	mint, err := firstTokenBalanceMint(tx)
	if err != nil {
		return nil, err
	}
	poolState, err := maxPostBalanceOwner(tx, "pool_state")
	if err != nil {
		return nil, err
	}
	direction, err := tradeDirection(tx)
	if err != nil {
		return nil, err
	}
	tokenAmount, err := innerTokenAmount(tx, 0)
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

	return &types.RllTrade{
		Signature:   sig,
		Mint:        mint,
		PoolState:   poolState,
		Direction:   direction,
		SolAmount:   int64(solAmount),
		TokenAmount: int64(tokenAmount),
		UserPubkey:  user,
		Ts:          time.Now().UTC(),
	}, nil
}
