package txdecode

import (
	"bytes"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func strField(s string) []byte {
	b := make([]byte, 4+len(s))
	b[0] = byte(len(s))
	copy(b[4:], s)
	return b
}

func createArgs() []byte {
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0xBB}, 8))
	b.Write(strField("Bonk Inu"))
	b.Write(strField("BONK"))
	b.Write(strField("https://meta.example/bonk.json"))
	b.Write(key(9)) // creator
	return b.Bytes()
}

func createEvent() []byte {
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0xCC}, 16))
	b.Write(strField("Bonk Inu"))
	b.Write(strField("BONK"))
	b.Write(strField("https://meta.example/bonk.json"))
	b.Write(key(2))                      // mint
	b.Write(key(3))                      // bonding curve
	b.Write(key(1))                      // user
	b.Write(key(9))                      // creator
	b.Write(le64(1_700_000_000))         // timestamp
	b.Write(le64(1_073_000_000_000_000)) // virtual_token
	b.Write(le64(30_000_000_000))        // virtual_sol
	b.Write(le64(793_100_000_000_000))   // real_token
	b.Write(le64(1_000_000_000_000_000)) // total_supply
	return b.Bytes()
}

func createTx() *types.TxRecord {
	inner := make([]types.CompiledInstruction, 15)
	inner[3] = types.CompiledInstruction{Data: []byte{initializeMint2Op, 6}}
	inner[14] = types.CompiledInstruction{Data: createEvent()}

	return &types.TxRecord{
		Signature: bytes.Repeat([]byte{0x66}, 64),
		Message: &types.TxMessage{
			AccountKeys:     [][]byte{key(1), key(2), key(3)},
			RecentBlockhash: key(4),
			Instructions: []types.CompiledInstruction{
				{}, {},
				{Data: createArgs()},
			},
		},
		Meta: &types.TxMeta{
			LogMessages:       []string{"Program log: Instruction: CreateV2"},
			InnerInstructions: []types.InnerInstructionGroup{{Index: 0, Instructions: inner}},
		},
	}
}

func TestDecodePfCreate(t *testing.T) {
	t.Parallel()

	create, err := DecodePfCreate(createTx())
	if err != nil {
		t.Fatalf("DecodePfCreate: %v", err)
	}

	if create.Name != "Bonk Inu" || create.Symbol != "BONK" {
		t.Errorf("name/symbol = %q/%q", create.Name, create.Symbol)
	}
	if create.URI != "https://meta.example/bonk.json" {
		t.Errorf("uri = %q", create.URI)
	}
	if create.Creator != base58.Encode(key(9)) {
		t.Errorf("creator = %q", create.Creator)
	}
	if create.Mint != base58.Encode(key(2)) || create.BondingCurve != base58.Encode(key(3)) {
		t.Errorf("mint/curve = %q/%q", create.Mint, create.BondingCurve)
	}
	if create.UserAddress != base58.Encode(key(1)) {
		t.Errorf("user = %q", create.UserAddress)
	}
	if create.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", create.Decimals)
	}
	if create.VirtualTokenReserves != 1_073_000_000_000_000 {
		t.Errorf("virtual token = %d", create.VirtualTokenReserves)
	}
	if create.VirtualSolReserves != 30_000_000_000 {
		t.Errorf("virtual sol = %d", create.VirtualSolReserves)
	}
	if create.RealTokenReserves != 793_100_000_000_000 {
		t.Errorf("real token = %d", create.RealTokenReserves)
	}
	if create.TokenTotalSupply != 1_000_000_000_000_000 {
		t.Errorf("total supply = %d", create.TokenTotalSupply)
	}
	if create.Ts.Unix() != 1_700_000_000 {
		t.Errorf("ts = %v", create.Ts)
	}
}

func TestDecodePfCreateEmptyURI(t *testing.T) {
	t.Parallel()

	tx := createTx()
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0xBB}, 8))
	b.Write(strField("NoMeta"))
	b.Write(strField("NM"))
	b.Write(strField("")) // len 0: no URI
	b.Write(key(9))
	tx.Message.Instructions[2].Data = b.Bytes()

	create, err := DecodePfCreate(tx)
	if err != nil {
		t.Fatalf("DecodePfCreate: %v", err)
	}
	if create.URI != "" {
		t.Errorf("uri = %q, want empty", create.URI)
	}
}

func TestDecodePfCreateTruncatedArgs(t *testing.T) {
	t.Parallel()

	tx := createTx()
	tx.Message.Instructions[2].Data = tx.Message.Instructions[2].Data[:14]
	if _, err := DecodePfCreate(tx); err == nil {
		t.Fatal("expected error for truncated create args")
	}
}

func migrateEvent() []byte {
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0xDD}, 16))
	b.Write(key(1))              // user
	b.Write(key(2))              // mint
	b.Write(le64(7_000_000))     // mintAmount
	b.Write(le64(85_000_000))    // solAmount
	b.Write(le64(15_000))        // poolMigrationFee
	b.Write(key(3))              // bonding curve
	b.Write(le64(1_700_000_200)) // timestamp
	b.Write(key(5))              // pool
	return b.Bytes()
}

func TestDecodePfMigrate(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Signature: bytes.Repeat([]byte{0x77}, 64),
		Message:   &types.TxMessage{AccountKeys: [][]byte{key(1)}},
		Meta: &types.TxMeta{
			LogMessages: []string{"Program log: Instruction: Migrate"},
			InnerInstructions: []types.InnerInstructionGroup{
				{Index: 0, Instructions: []types.CompiledInstruction{
					{Data: []byte{0x01}},
					{Data: migrateEvent()},
				}},
			},
		},
	}

	m, err := DecodePfMigrate(tx)
	if err != nil {
		t.Fatalf("DecodePfMigrate: %v", err)
	}
	if m.User != base58.Encode(key(1)) || m.Mint != base58.Encode(key(2)) {
		t.Errorf("user/mint = %q/%q", m.User, m.Mint)
	}
	if m.BondingCurve != base58.Encode(key(3)) || m.Pool != base58.Encode(key(5)) {
		t.Errorf("curve/pool = %q/%q", m.BondingCurve, m.Pool)
	}
	if m.TokenAmount != 7_000_000 || m.SolAmount != 85_000_000 {
		t.Errorf("amounts = %d/%d", m.TokenAmount, m.SolAmount)
	}
	if m.PoolMigrationFee != 15_000 {
		t.Errorf("migration fee = %d", m.PoolMigrationFee)
	}
	if m.Status != types.StatusMigrated {
		t.Errorf("status = %v", m.Status)
	}
	if m.Ts.Unix() != 1_700_000_200 {
		t.Errorf("ts = %v", m.Ts)
	}
}

func TestDecodePfMigrateShortEvent(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Meta: &types.TxMeta{
			InnerInstructions: []types.InnerInstructionGroup{
				{Instructions: []types.CompiledInstruction{{Data: migrateEvent()[:40]}}},
			},
		},
	}
	if _, err := DecodePfMigrate(tx); err == nil {
		t.Fatal("expected error for short migrate event")
	}
}
