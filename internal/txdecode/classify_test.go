package txdecode

import (
	"bytes"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func programKey(t *testing.T, id string) []byte {
	t.Helper()
	raw, err := base58.Decode(id)
	if err != nil {
		t.Fatalf("decode %s: %v", id, err)
	}
	return raw
}

func TestClassifyFromFirstInstruction(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Message: &types.TxMessage{
			AccountKeys:  [][]byte{key(1), programKey(t, types.PumpSwapProgramID)},
			Instructions: []types.CompiledInstruction{{ProgramIDIndex: 1}},
		},
	}
	if got := Classify(tx); got != types.PlatformPumpSwap {
		t.Errorf("Classify = %v, want PumpSwap", got)
	}
}

func TestClassifyFromLogs(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Message: &types.TxMessage{
			AccountKeys:  [][]byte{key(1)},
			Instructions: []types.CompiledInstruction{{ProgramIDIndex: 0}},
		},
		Meta: &types.TxMeta{
			LogMessages: []string{
				"Program " + types.RaydiumLaunchLabProgramID + " invoke [1]",
			},
		},
	}
	if got := Classify(tx); got != types.PlatformRaydiumLaunchLab {
		t.Errorf("Classify = %v, want RaydiumLaunchLab", got)
	}
}

func TestClassifyFromFirstAccountKey(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Message: &types.TxMessage{
			AccountKeys: [][]byte{programKey(t, types.PumpFunProgramID)},
		},
	}
	if got := Classify(tx); got != types.PlatformPumpFun {
		t.Errorf("Classify = %v, want PumpFun", got)
	}
}

func TestClassifyFromInnerInstructions(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Message: &types.TxMessage{
			AccountKeys: [][]byte{key(1), programKey(t, types.PumpFunProgramID)},
		},
		Meta: &types.TxMeta{
			InnerInstructions: []types.InnerInstructionGroup{
				{Instructions: []types.CompiledInstruction{{ProgramIDIndex: 1}}},
			},
		},
	}
	if got := Classify(tx); got != types.PlatformPumpFun {
		t.Errorf("Classify = %v, want PumpFun", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	t.Parallel()

	tx := &types.TxRecord{
		Message: &types.TxMessage{AccountKeys: [][]byte{key(1)}},
		Meta:    &types.TxMeta{LogMessages: []string{"Program log: nothing"}},
	}
	if got := Classify(tx); got != types.PlatformUnknown {
		t.Errorf("Classify = %v, want Unknown", got)
	}
}

func TestClassifyPrefersPumpSwapInLogs(t *testing.T) {
	t.Parallel()

	// A PumpSwap swap CPIs into Pump.fun: both program ids appear. The
	// log strategy must still pick PumpSwap.
	tx := &types.TxRecord{
		Message: &types.TxMessage{AccountKeys: [][]byte{key(1)}},
		Meta: &types.TxMeta{
			LogMessages: []string{
				"Program " + types.PumpFunProgramID + " invoke [2]",
				"Program " + types.PumpSwapProgramID + " invoke [1]",
			},
		},
	}
	if got := Classify(tx); got != types.PlatformPumpSwap {
		t.Errorf("Classify = %v, want PumpSwap", got)
	}
}

func TestReaderBounds(t *testing.T) {
	t.Parallel()

	r := newReader(bytes.Repeat([]byte{1}, 10))
	if _, err := r.u64("a"); err != nil {
		t.Fatalf("u64 within bounds: %v", err)
	}
	if _, err := r.u64("b"); err == nil {
		t.Fatal("expected out-of-bounds error")
	}

	r = newReader([]byte{3, 0, 0, 0, 'a', 'b'})
	if _, err := r.str("s"); err == nil {
		t.Fatal("expected error for short string body")
	}

	r = newReader([]byte{2, 0, 0, 0, 'h', 'i'})
	s, err := r.str("s")
	if err != nil || s != "hi" {
		t.Fatalf("str = %q, %v; want hi", s, err)
	}
}
