package txdecode

import (
	"strings"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Options gates which event kinds the decoder emits. Trades are always
// emitted; creates and migrations are off by default.
type Options struct {
	EmitCreates    bool
	EmitMigrations bool
}

// Decoder classifies and decodes raw stream transactions.
type Decoder struct {
	opts Options
}

// New returns a decoder with the given options.
func New(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

// Decode converts one raw transaction into at most one canonical event.
// A nil event with nil error means the transaction is recognized but carries
// nothing to index (e.g. a gated lifecycle event). Classification and decode
// failures return a *DecodeError; callers log and drop.
func (d *Decoder) Decode(tx *types.TxRecord) (*types.Event, error) {
	platform := Classify(tx)

	switch platform {
	case types.PlatformPumpFun:
		return d.decodePf(tx)
	case types.PlatformPumpSwap:
		return d.decodePs(tx)
	case types.PlatformRaydiumLaunchLab:
		return d.decodeRll(tx)
	default:
		return nil, decodeErr("platform", "unknown platform")
	}
}

func (d *Decoder) decodePf(tx *types.TxRecord) (*types.Event, error) {
	logs := txLogs(tx)
	switch {
	case isTradeTx(logs):
		trade, err := DecodePfTrade(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventPfTradeOccurred, Data: trade}, nil

	case isCreateTx(logs):
		if !d.opts.EmitCreates {
			return nil, nil
		}
		create, err := DecodePfCreate(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventPfTokenCreated, Data: create}, nil

	case isMigrateTx(logs):
		if !d.opts.EmitMigrations {
			return nil, nil
		}
		migrate, err := DecodePfMigrate(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventPfTokenMigrated, Data: migrate}, nil
	}
	return nil, nil
}

func (d *Decoder) decodePs(tx *types.TxRecord) (*types.Event, error) {
	if !isTradeTx(txLogs(tx)) {
		return nil, nil
	}
	trade, err := DecodePsTrade(tx)
	if err != nil {
		return nil, err
	}
	return &types.Event{Type: types.EventPsTradeOccurred, Data: trade}, nil
}

func (d *Decoder) decodeRll(tx *types.TxRecord) (*types.Event, error) {
	logs := txLogs(tx)
	switch {
	case isTradeTx(logs):
		trade, err := DecodeRllTrade(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventRllTradeOccurred, Data: trade}, nil

	case isCreateTx(logs):
		if !d.opts.EmitCreates {
			return nil, nil
		}
		create, err := DecodePfCreate(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventRllTokenCreated, Data: create}, nil

	case isMigrateTx(logs):
		if !d.opts.EmitMigrations {
			return nil, nil
		}
		migrate, err := DecodePfMigrate(tx)
		if err != nil {
			return nil, err
		}
		return &types.Event{Type: types.EventRllTokenMigrated, Data: migrate}, nil
	}
	return nil, nil
}

func txLogs(tx *types.TxRecord) []string {
	if tx.Meta == nil {
		return nil
	}
	return tx.Meta.LogMessages
}

func isTradeTx(logs []string) bool {
	for _, log := range logs {
		if strings.HasPrefix(log, "Program log: SwapEvent") ||
			strings.Contains(log, "Program log: Instruction: Buy") ||
			strings.Contains(log, "Program log: Instruction: Sell") {
			return true
		}
	}
	return false
}

func isCreateTx(logs []string) bool {
	for _, log := range logs {
		if strings.Contains(log, "Program log: Instruction: CreateV2") {
			return true
		}
	}
	return false
}

func isMigrateTx(logs []string) bool {
	for _, log := range logs {
		if strings.Contains(log, "Program log: Instruction: Migrate") {
			return true
		}
	}
	return false
}
