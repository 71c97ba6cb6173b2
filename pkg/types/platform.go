// Package types defines the canonical data model shared by every binary in
// the indexer: platform identifiers, raw stream records, decoded market
// events, the bus envelope, and the enriched token shape returned to clients.
package types

// Program IDs of the three indexed market platforms.
const (
	PumpFunProgramID          = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	PumpSwapProgramID         = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	RaydiumLaunchLabProgramID = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"
)

// Token program IDs used by RPC probes and inner-instruction decoding.
const (
	SPLTokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	MetadataProgramID  = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	WrappedSOLMint     = "So11111111111111111111111111111111111111112"
)

// Platform identifies which market program produced a record.
type Platform string

const (
	PlatformPumpFun          Platform = "PumpFun"
	PlatformPumpSwap         Platform = "PumpSwap"
	PlatformRaydiumLaunchLab Platform = "RaydiumLaunchLab"
	PlatformUnknown          Platform = "Unknown"
)

// TradeDirection is the side of a swap from the trader's perspective.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "Buy"
	DirectionSell TradeDirection = "Sell"
)

// PriceSource identifies which on-chain structure a price was derived from.
type PriceSource string

const (
	SourcePfBondingCurve PriceSource = "PfBondingCurve"
	SourcePfTrade        PriceSource = "PfTrade"
	SourcePsPool         PriceSource = "PsPool"
	SourceRllPoolState   PriceSource = "RllPoolState"
)

// TokenStatus is the lifecycle state of a token.
type TokenStatus string

const (
	StatusCreated  TokenStatus = "Created"
	StatusMigrated TokenStatus = "Migrated"
)
