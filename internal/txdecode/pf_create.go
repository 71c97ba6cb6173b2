package txdecode

import (
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Position of the create instruction among the transaction's top-level
// instructions, and of its event among the first inner group.
const (
	pfCreateIxIndex    = 2
	pfCreateEventIndex = 14
)

// InitializeMint2 opcode of the token program; decimals follows at byte 1.
const initializeMint2Op = 20

// DecodePfCreate extracts a token creation record. Name, symbol, uri and
// creator come from the create instruction's data; the initial reserves come
// from the event emitted as an inner instruction.
func DecodePfCreate(tx *types.TxRecord) (*types.PfCreate, error) {
	name, symbol, uri, creator, err := parseCreateArgs(tx)
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
	user, err := accountKey(tx, pfKeySigner, "user_address")
	if err != nil {
		return nil, err
	}

	evt, err := parseCreateEvent(tx)
	if err != nil {
		return nil, err
	}

	decimals, err := mintDecimals(tx)
	if err != nil {
		return nil, err
	}

	return &types.PfCreate{
		Mint:         mint,
		BondingCurve: curve,
		Name:         name,
		Symbol:       symbol,
		URI:          uri,
		Creator:      creator,
		UserAddress:  user,
		Decimals:     int16(decimals),

		VirtualTokenReserves: int64(evt.virtualTokenReserves),
		VirtualSolReserves:   int64(evt.virtualSolReserves),
		RealTokenReserves:    int64(evt.realTokenReserves),
		TokenTotalSupply:     int64(evt.tokenTotalSupply),

		Ts: time.Unix(evt.timestamp, 0).UTC(),
	}, nil
}

// parseCreateArgs reads the create instruction's argument block: an 8-byte
// discriminator, three length-prefixed strings, then the creator pubkey. A
// zero-length uri means no metadata URI.
func parseCreateArgs(tx *types.TxRecord) (name, symbol, uri, creator string, err error) {
	if tx.Message == nil {
		return "", "", "", "", decodeErr("create_args", "message missing")
	}
	if len(tx.Message.Instructions) <= pfCreateIxIndex {
		return "", "", "", "", decodeErr("create_args", "no create instruction at index %d", pfCreateIxIndex)
	}

	r := newReader(tx.Message.Instructions[pfCreateIxIndex].Data)
	if err = r.skip("discriminator", 8); err != nil {
		return
	}
	if name, err = r.str("name"); err != nil {
		return
	}
	if symbol, err = r.str("symbol"); err != nil {
		return
	}
	if uri, err = r.str("uri"); err != nil {
		return
	}
	creator, err = r.pubkey("creator")
	return
}

type pfCreateEvent struct {
	timestamp            int64
	virtualTokenReserves uint64
	virtualSolReserves   uint64
	realTokenReserves    uint64
	tokenTotalSupply     uint64
}

// parseCreateEvent reads the create event emitted as inner instruction 14 of
// the first inner group: 16 bytes of discriminators, the same string preamble
// as the instruction args, four pubkeys, then timestamp and reserve fields.
func parseCreateEvent(tx *types.TxRecord) (*pfCreateEvent, error) {
	if tx.Meta == nil {
		return nil, decodeErr("create_event", "meta missing")
	}
	if len(tx.Meta.InnerInstructions) == 0 {
		return nil, decodeErr("create_event", "no inner instructions")
	}
	group := tx.Meta.InnerInstructions[0]
	if len(group.Instructions) <= pfCreateEventIndex {
		return nil, decodeErr("create_event", "no event instruction at index %d", pfCreateEventIndex)
	}

	r := newReader(group.Instructions[pfCreateEventIndex].Data)
	if err := r.skip("discriminators", 16); err != nil {
		return nil, err
	}
	if _, err := r.str("name"); err != nil {
		return nil, err
	}
	if _, err := r.str("symbol"); err != nil {
		return nil, err
	}
	if _, err := r.str("uri"); err != nil {
		return nil, err
	}
	// mint, bonding curve, user, creator
	if err := r.skip("pubkeys", 32*4); err != nil {
		return nil, err
	}

	var evt pfCreateEvent
	var err error
	if evt.timestamp, err = r.i64("timestamp"); err != nil {
		return nil, err
	}
	if evt.virtualTokenReserves, err = r.u64("virtual_token_reserves"); err != nil {
		return nil, err
	}
	if evt.virtualSolReserves, err = r.u64("virtual_sol_reserves"); err != nil {
		return nil, err
	}
	if evt.realTokenReserves, err = r.u64("real_token_reserves"); err != nil {
		return nil, err
	}
	if evt.tokenTotalSupply, err = r.u64("token_total_supply"); err != nil {
		return nil, err
	}
	return &evt, nil
}

// mintDecimals reads decimals from the InitializeMint2 inner instruction.
func mintDecimals(tx *types.TxRecord) (uint8, error) {
	if tx.Meta == nil {
		return 0, decodeErr("decimals", "meta missing")
	}
	if len(tx.Meta.InnerInstructions) == 0 {
		return 0, decodeErr("decimals", "no inner instructions")
	}
	for _, ix := range tx.Meta.InnerInstructions[0].Instructions {
		if len(ix.Data) == 0 || ix.Data[0] != initializeMint2Op {
			continue
		}
		if len(ix.Data) < 2 {
			return 0, decodeErr("decimals", "InitializeMint2 data too short")
		}
		return ix.Data[1], nil
	}
	return 0, decodeErr("decimals", "InitializeMint2 not found")
}
