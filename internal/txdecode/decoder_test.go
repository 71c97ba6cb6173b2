package txdecode

import (
	"testing"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func TestDecoderDispatchTrade(t *testing.T) {
	t.Parallel()

	d := New(Options{})
	evt, err := d.Decode(tradeTx(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt == nil || evt.Type != types.EventPfTradeOccurred {
		t.Fatalf("event = %+v, want PF_TRADE_OCCURRED", evt)
	}
	if _, ok := evt.Data.(*types.PfTrade); !ok {
		t.Errorf("payload type = %T", evt.Data)
	}
}

func TestDecoderGatesLifecycleEvents(t *testing.T) {
	t.Parallel()

	tx := createTx()
	tx.Message.AccountKeys = append(tx.Message.AccountKeys, programKey(t, types.PumpFunProgramID))
	tx.Message.Instructions[0].ProgramIDIndex = 3

	d := New(Options{})
	evt, err := d.Decode(tx)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt != nil {
		t.Fatalf("gated create emitted: %+v", evt)
	}

	d = New(Options{EmitCreates: true})
	evt, err = d.Decode(tx)
	if err != nil {
		t.Fatalf("Decode with EmitCreates: %v", err)
	}
	if evt == nil || evt.Type != types.EventPfTokenCreated {
		t.Fatalf("event = %+v, want PF_TOKEN_CREATED", evt)
	}
}

func TestDecoderUnknownPlatform(t *testing.T) {
	t.Parallel()

	d := New(Options{})
	tx := &types.TxRecord{
		Message: &types.TxMessage{AccountKeys: [][]byte{key(1)}},
		Meta:    &types.TxMeta{LogMessages: []string{"Program log: other"}},
	}
	if _, err := d.Decode(tx); err == nil {
		t.Fatal("expected classification error")
	}
}
