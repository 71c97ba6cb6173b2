package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	trade := &PfTrade{
		Signature:            "5VfYm",
		Slot:                 12345,
		Mint:                 "MintAddr",
		BondingCurve:         "CurveAddr",
		IxName:               "buy",
		IsBuy:                true,
		SolAmount:            1_000_000,
		TokenAmount:          5_000,
		Decimals:             6,
		VirtualSolReserves:   30_000_000_000_000,
		VirtualTokenReserves: 1_073_000_000_000_000,
		Ts:                   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(Event{Type: EventPfTradeOccurred, Data: trade})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	evt, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if evt.Type != EventPfTradeOccurred {
		t.Errorf("type = %q, want %q", evt.Type, EventPfTradeOccurred)
	}

	got, ok := evt.Data.(*PfTrade)
	if !ok {
		t.Fatalf("data type = %T, want *PfTrade", evt.Data)
	}
	if got.Signature != trade.Signature {
		t.Errorf("signature = %q, want %q", got.Signature, trade.Signature)
	}
	if got.VirtualTokenReserves != trade.VirtualTokenReserves {
		t.Errorf("virtual_token_reserves = %d, want %d", got.VirtualTokenReserves, trade.VirtualTokenReserves)
	}
	if !got.Ts.Equal(trade.Ts) {
		t.Errorf("ts = %v, want %v", got.Ts, trade.Ts)
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	t.Parallel()

	if _, err := DecodeEvent([]byte(`{"event_type":"NOT_A_THING","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestDecodeEventBadJSON(t *testing.T) {
	t.Parallel()

	if _, err := DecodeEvent([]byte(`{"event_type":`)); err == nil {
		t.Fatal("expected error for truncated envelope")
	}
}

func TestEventTypeWireNames(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Event{Type: EventPfPriceUpdated, Data: &PfPriceUpdate{BondingCurve: "bc"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(env["event_type"]) != `"PF_PRICE_UPDATED"` {
		t.Errorf("event_type on wire = %s, want \"PF_PRICE_UPDATED\"", env["event_type"])
	}
}

func TestEnrichedTokenSecondary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token EnrichedToken
		want  string
	}{
		{"bonding curve", EnrichedToken{BondingCurve: "bc"}, "bc"},
		{"pool", EnrichedToken{Pool: "p"}, "p"},
		{"pool state", EnrichedToken{PoolState: "ps"}, "ps"},
		{"empty", EnrichedToken{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Secondary(); got != tt.want {
				t.Errorf("Secondary() = %q, want %q", got, tt.want)
			}
		})
	}
}
