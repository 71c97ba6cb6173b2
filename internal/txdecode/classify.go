package txdecode

import (
	"strings"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Classify determines which platform a transaction belongs to. Strategies are
// tried in order: top-level first instruction's program id, program-id
// substring in the logs, first account key, first inner instruction's
// program id. Returns PlatformUnknown when none match.
func Classify(tx *types.TxRecord) types.Platform {
	if p := classifyFromInstructions(tx); p != types.PlatformUnknown {
		return p
	}
	if p := classifyFromLogs(tx); p != types.PlatformUnknown {
		return p
	}
	if p := classifyFromAccountKeys(tx); p != types.PlatformUnknown {
		return p
	}
	return classifyFromInnerInstructions(tx)
}

func programIDToPlatform(key []byte) types.Platform {
	if len(key) != 32 {
		return types.PlatformUnknown
	}
	switch base58.Encode(key) {
	case types.PumpFunProgramID:
		return types.PlatformPumpFun
	case types.PumpSwapProgramID:
		return types.PlatformPumpSwap
	case types.RaydiumLaunchLabProgramID:
		return types.PlatformRaydiumLaunchLab
	default:
		return types.PlatformUnknown
	}
}

func classifyFromInstructions(tx *types.TxRecord) types.Platform {
	if tx.Message == nil || len(tx.Message.Instructions) == 0 {
		return types.PlatformUnknown
	}
	ix := tx.Message.Instructions[0]
	idx := int(ix.ProgramIDIndex)
	if idx >= len(tx.Message.AccountKeys) {
		return types.PlatformUnknown
	}
	return programIDToPlatform(tx.Message.AccountKeys[idx])
}

func classifyFromLogs(tx *types.TxRecord) types.Platform {
	if tx.Meta == nil {
		return types.PlatformUnknown
	}
	// PumpSwap is checked first: its transactions routinely CPI into the
	// Pump.fun program, so a PumpFun match alone is not conclusive.
	targets := []struct {
		programID string
		platform  types.Platform
	}{
		{types.PumpSwapProgramID, types.PlatformPumpSwap},
		{types.PumpFunProgramID, types.PlatformPumpFun},
		{types.RaydiumLaunchLabProgramID, types.PlatformRaydiumLaunchLab},
	}
	for _, t := range targets {
		for _, log := range tx.Meta.LogMessages {
			if strings.Contains(log, t.programID) {
				return t.platform
			}
		}
	}
	return types.PlatformUnknown
}

func classifyFromAccountKeys(tx *types.TxRecord) types.Platform {
	if tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return types.PlatformUnknown
	}
	return programIDToPlatform(tx.Message.AccountKeys[0])
}

func classifyFromInnerInstructions(tx *types.TxRecord) types.Platform {
	if tx.Message == nil || tx.Meta == nil || len(tx.Meta.InnerInstructions) == 0 {
		return types.PlatformUnknown
	}
	inner := tx.Meta.InnerInstructions[0]
	if len(inner.Instructions) == 0 {
		return types.PlatformUnknown
	}
	idx := int(inner.Instructions[0].ProgramIDIndex)
	if idx >= len(tx.Message.AccountKeys) {
		return types.PlatformUnknown
	}
	return programIDToPlatform(tx.Message.AccountKeys[idx])
}
