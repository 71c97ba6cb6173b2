package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the routing key carried in every bus envelope. Values are
// SCREAMING_SNAKE_CASE on the wire.
type EventType string

const (
	EventPfTradeOccurred  EventType = "PF_TRADE_OCCURRED"
	EventPfTokenCreated   EventType = "PF_TOKEN_CREATED"
	EventPfTokenMigrated  EventType = "PF_TOKEN_MIGRATED"
	EventPfPriceUpdated   EventType = "PF_PRICE_UPDATED"
	EventPsTradeOccurred  EventType = "PS_TRADE_OCCURRED"
	EventPsTokenCreated   EventType = "PS_TOKEN_CREATED"
	EventPsPriceUpdated   EventType = "PS_PRICE_UPDATED"
	EventRllTradeOccurred EventType = "RLL_TRADE_OCCURRED"
	EventRllTokenCreated  EventType = "RLL_TOKEN_CREATED"
	EventRllTokenMigrated EventType = "RLL_TOKEN_MIGRATED"
	EventRllPriceUpdated  EventType = "RLL_PRICE_UPDATED"
	EventPriceRequested   EventType = "PRICE_REQUESTED"
	EventTokenFulfilled   EventType = "TOKEN_FULFILLED"
)

// PfTrade is the canonical record of a single Pump.fun swap. It unifies three
// disjoint sources: the account-key table, the fee program's log annotations,
// and the base64 trade event payload.
type PfTrade struct {
	// Transaction identity
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Blockhash string `json:"blockhash"`

	// Actors
	Signer       string `json:"signer"`
	FeePayer     string `json:"fee_payer"`
	User         string `json:"user"`
	Creator      string `json:"creator"`
	FeeRecipient string `json:"fee_recipient"`

	// Market
	Mint         string `json:"mint"`
	BondingCurve string `json:"bonding_curve"`
	IsPumpPool   bool   `json:"is_pump_pool"`

	// Instruction semantics
	IxName string `json:"ix_name"` // buy | sell | buy_exact_sol_in
	IsBuy  bool   `json:"is_buy"`

	// Amounts
	SolAmount         uint64 `json:"sol_amount"`
	TokenAmount       uint64 `json:"token_amount"`
	TradeSizeLamports uint64 `json:"trade_size_lamports"`

	// Fees
	TransactionFee        uint64 `json:"transaction_fee"`
	FeeLamports           uint64 `json:"fee_lamports"`
	FeeBasisPoints        uint64 `json:"fee_basis_points"`
	CreatorFeeLamports    uint64 `json:"creator_fee_lamports"`
	CreatorFeeBasisPoints uint64 `json:"creator_fee_basis_points"`

	// Post-trade bonding-curve state
	Decimals             int16  `json:"decimals"`
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
	MarketCapLamports    uint64 `json:"market_cap_lamports"`

	// Volume tracking
	TrackVolume          bool   `json:"track_volume"`
	TotalUnclaimedTokens uint64 `json:"total_unclaimed_tokens"`
	TotalClaimedTokens   uint64 `json:"total_claimed_tokens"`
	CurrentSolVolume     uint64 `json:"current_sol_volume"`
	LastUpdateTimestamp  int64  `json:"last_update_timestamp"`

	// Decoder wall-clock time
	Ts time.Time `json:"ts"`
}

// PfCreate is the record of a Pump.fun token creation.
type PfCreate struct {
	Mint         string `json:"mint"`
	BondingCurve string `json:"bonding_curve"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	URI          string `json:"uri"`
	Creator      string `json:"creator"`
	UserAddress  string `json:"user_address"`
	Decimals     int16  `json:"decimals"`

	VirtualTokenReserves int64 `json:"virtual_token_reserves"`
	VirtualSolReserves   int64 `json:"virtual_sol_reserves"`
	RealTokenReserves    int64 `json:"real_token_reserves"`
	TokenTotalSupply     int64 `json:"token_total_supply"`

	Ts time.Time `json:"ts"`
}

// PfMigrate is the record of a bonding curve migrating into a pool.
type PfMigrate struct {
	Mint             string      `json:"mint"`
	BondingCurve     string      `json:"bonding_curve"`
	Pool             string      `json:"pool"`
	User             string      `json:"user"`
	Status           TokenStatus `json:"status"`
	TokenAmount      int64       `json:"token_amount"`
	SolAmount        int64       `json:"sol_amount"`
	PoolMigrationFee uint64      `json:"pool_migration_fee"`
	Ts               time.Time   `json:"ts"`
}

// PsTrade is the lightweight record of a PumpSwap pool swap.
type PsTrade struct {
	Signature   string         `json:"signature"`
	Mint        string         `json:"mint"`
	Pool        string         `json:"pool"`
	Direction   TradeDirection `json:"direction"`
	SolAmount   int64          `json:"sol_amount"`
	TokenAmount int64          `json:"token_amount"`
	UserPubkey  string         `json:"user_pubkey"`
	Ts          time.Time      `json:"ts"`
}

// RllTrade is the lightweight record of a Raydium LaunchLab swap.
type RllTrade struct {
	Signature   string         `json:"signature"`
	Mint        string         `json:"mint"`
	PoolState   string         `json:"pool_state"`
	Direction   TradeDirection `json:"direction"`
	SolAmount   int64          `json:"sol_amount"`
	TokenAmount int64          `json:"token_amount"`
	UserPubkey  string         `json:"user_pubkey"`
	Ts          time.Time      `json:"ts"`
}

// PfPriceUpdate is a post-trade price snapshot read from a bonding-curve
// account update.
type PfPriceUpdate struct {
	BondingCurve string      `json:"bonding_curve"`
	Source       PriceSource `json:"source"`
	Ts           time.Time   `json:"ts"`

	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
}

// PsPriceUpdate is a price snapshot read from a PumpSwap pool account update.
type PsPriceUpdate struct {
	Pool   string      `json:"pool"`
	Source PriceSource `json:"source"`
	Ts     time.Time   `json:"ts"`

	TokenAReserves uint64 `json:"token_a_reserves"`
	TokenBReserves uint64 `json:"token_b_reserves"`
}

// RllPriceUpdate is a price snapshot read from a LaunchLab pool-state update.
type RllPriceUpdate struct {
	PoolState string      `json:"pool_state"`
	Source    PriceSource `json:"source"`
	Ts        time.Time   `json:"ts"`

	BaseDecimals  uint8  `json:"base_decimals"`
	QuoteDecimals uint8  `json:"quote_decimals"`
	VirtualBase   uint64 `json:"virtual_base"`
	VirtualQuote  uint64 `json:"virtual_quote"`
}

// SubscriptionRequest asks the account subscriber to track a set of market
// accounts, keyed by base58 address.
type SubscriptionRequest struct {
	TrackedAccounts map[string]Platform `json:"tracked_accounts"`
}

// EnrichedToken is the resolver's output: market identity, derived price and
// all metadata the resolver could find. Missing metadata stays empty rather
// than failing the lookup.
type EnrichedToken struct {
	Mint     string   `json:"mint"`
	Platform Platform `json:"platform"`

	BondingCurve string `json:"bondingCurve,omitempty"`
	Pool         string `json:"pool,omitempty"`
	PoolState    string `json:"poolState,omitempty"`

	Price    int64 `json:"price"`
	Decimals uint8 `json:"decimals"`

	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`

	Description string `json:"description"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Website     string `json:"website"`
	Image       string `json:"image"`
}

// Secondary returns the populated platform-specific market address.
func (t *EnrichedToken) Secondary() string {
	switch {
	case t.BondingCurve != "":
		return t.BondingCurve
	case t.Pool != "":
		return t.Pool
	default:
		return t.PoolState
	}
}

// Event is the bus envelope: a routing tag plus the matching payload.
type Event struct {
	Type EventType `json:"event_type"`
	Data any       `json:"data"`
}

// rawEvent defers payload decoding until the type tag has been inspected.
type rawEvent struct {
	Type EventType       `json:"event_type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses an envelope and decodes the payload into the variant
// dictated by the event_type tag. An unknown tag or a payload that does not
// parse as the tagged variant is a protocol error.
func DecodeEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	data, err := newPayload(raw.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, data); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	return &Event{Type: raw.Type, Data: data}, nil
}

func newPayload(t EventType) (any, error) {
	switch t {
	case EventPfTradeOccurred:
		return &PfTrade{}, nil
	case EventPfTokenCreated:
		return &PfCreate{}, nil
	case EventPfTokenMigrated:
		return &PfMigrate{}, nil
	case EventPfPriceUpdated:
		return &PfPriceUpdate{}, nil
	case EventPsTradeOccurred:
		return &PsTrade{}, nil
	case EventPsTokenCreated:
		return &PfCreate{}, nil
	case EventPsPriceUpdated:
		return &PsPriceUpdate{}, nil
	case EventRllTradeOccurred:
		return &RllTrade{}, nil
	case EventRllTokenCreated:
		return &PfCreate{}, nil
	case EventRllTokenMigrated:
		return &PfMigrate{}, nil
	case EventRllPriceUpdated:
		return &RllPriceUpdate{}, nil
	case EventPriceRequested:
		return &SubscriptionRequest{}, nil
	case EventTokenFulfilled:
		return &EnrichedToken{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}
