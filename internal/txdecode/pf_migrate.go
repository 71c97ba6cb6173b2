package txdecode

import (
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// DecodePfMigrate extracts a migration record from the last inner instruction
// of the first inner group. After 16 bytes of discriminators the layout is:
// user:32, mint:32, mintAmount:u64, solAmount:u64, poolMigrationFee:u64,
// bondingCurve:32, timestamp:i64, pool:32.
func DecodePfMigrate(tx *types.TxRecord) (*types.PfMigrate, error) {
	if tx.Meta == nil {
		return nil, decodeErr("migrate_event", "meta missing")
	}
	if len(tx.Meta.InnerInstructions) == 0 {
		return nil, decodeErr("migrate_event", "no inner instructions")
	}
	group := tx.Meta.InnerInstructions[0]
	if len(group.Instructions) == 0 {
		return nil, decodeErr("migrate_event", "inner group empty")
	}
	last := group.Instructions[len(group.Instructions)-1]

	r := newReader(last.Data)
	if err := r.skip("discriminators", 16); err != nil {
		return nil, err
	}

	user, err := r.pubkey("user")
	if err != nil {
		return nil, err
	}
	mint, err := r.pubkey("mint")
	if err != nil {
		return nil, err
	}
	mintAmount, err := r.u64("mint_amount")
	if err != nil {
		return nil, err
	}
	solAmount, err := r.u64("sol_amount")
	if err != nil {
		return nil, err
	}
	migrationFee, err := r.u64("pool_migration_fee")
	if err != nil {
		return nil, err
	}
	curve, err := r.pubkey("bonding_curve")
	if err != nil {
		return nil, err
	}
	ts, err := r.i64("timestamp")
	if err != nil {
		return nil, err
	}
	pool, err := r.pubkey("pool")
	if err != nil {
		return nil, err
	}

	return &types.PfMigrate{
		Mint:             mint,
		BondingCurve:     curve,
		Pool:             pool,
		User:             user,
		Status:           types.StatusMigrated,
		TokenAmount:      int64(mintAmount),
		SolAmount:        int64(solAmount),
		PoolMigrationFee: migrationFee,
		Ts:               time.Unix(ts, 0).UTC(),
	}, nil
}
