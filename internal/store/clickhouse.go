package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Columnar is the append-only trade log in ClickHouse.
type Columnar struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewColumnar connects to ClickHouse over its HTTP endpoint.
func NewColumnar(cfg config.ClickHouseConfig, logger *slog.Logger) (*Columnar, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse url: %w", err)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{u.Host},
		Protocol: clickhouse.HTTP,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	logger.Info("clickhouse client initialized", "url", cfg.URL, "database", cfg.Database)
	return &Columnar{conn: conn, logger: logger.With("component", "clickhouse")}, nil
}

// Close shuts the connection pool down.
func (c *Columnar) Close() error {
	return c.conn.Close()
}

// InsertTrade appends the full canonical trade row keyed by signature.
// Booleans are materialized as UInt8 and the observation timestamp as
// milliseconds since epoch.
func (c *Columnar) InsertTrade(ctx context.Context, t *types.PfTrade) error {
	err := c.conn.Exec(ctx, `
		INSERT INTO pf_trades (
			signature, slot, blockhash,
			signer, fee_payer, user, creator, fee_recipient,
			mint, bonding_curve, is_pump_pool,
			ix_name, is_buy,
			sol_amount, token_amount, trade_size_lamports,
			transaction_fee, fee_lamports, fee_basis_points,
			creator_fee_lamports, creator_fee_basis_points,
			decimals,
			virtual_sol_reserves, virtual_token_reserves,
			real_sol_reserves, real_token_reserves,
			market_cap_lamports,
			track_volume,
			total_unclaimed_tokens, total_claimed_tokens,
			current_sol_volume, last_update_timestamp,
			timestamp
		)
		VALUES (
			?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?,
			?,
			?, ?,
			?, ?,
			?,
			?,
			?, ?,
			?, ?,
			?
		)`,
		t.Signature, t.Slot, t.Blockhash,
		t.Signer, t.FeePayer, t.User, t.Creator, t.FeeRecipient,
		t.Mint, t.BondingCurve, boolToU8(t.IsPumpPool),
		t.IxName, boolToU8(t.IsBuy),
		t.SolAmount, t.TokenAmount, t.TradeSizeLamports,
		t.TransactionFee, t.FeeLamports, t.FeeBasisPoints,
		t.CreatorFeeLamports, t.CreatorFeeBasisPoints,
		t.Decimals,
		t.VirtualSolReserves, t.VirtualTokenReserves,
		t.RealSolReserves, t.RealTokenReserves,
		t.MarketCapLamports,
		boolToU8(t.TrackVolume),
		t.TotalUnclaimedTokens, t.TotalClaimedTokens,
		t.CurrentSolVolume, t.LastUpdateTimestamp,
		t.Ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert pf_trades: %w", err)
	}

	c.logger.Debug("trade row inserted", "signature", t.Signature)
	return nil
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
