package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// resolveTimeout bounds one complete lookup, racers included.
const resolveTimeout = 3 * time.Second

var (
	// ErrTimeout is returned when the lookup deadline expires.
	ErrTimeout = errors.New("resolve timeout")
	// ErrNotFound is returned when every probe comes back empty.
	ErrNotFound = errors.New("token not found")
)

// tokenKinds are the four address kinds a token is cached under.
var tokenKinds = []string{"mint", "bonding_curve", "pool", "pool_state"}

// cacheReader is the slice of the cache the resolver reads; satisfied by
// *store.Cache.
type cacheReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// tokenReader is the slice of the relational store the resolver reads;
// satisfied by *store.DB.
type tokenReader interface {
	FetchTokenByAddress(ctx context.Context, input string) (*store.TokenRow, error)
}

// Resolver races cache, relational and on-chain probes to turn one input
// string into an enriched token.
type Resolver struct {
	cache  cacheReader
	db     tokenReader
	rpc    RPCClient
	meta   *metadataResolver
	logger *slog.Logger

	// timeout is resolveTimeout outside of tests.
	timeout time.Duration
}

// NewResolver wires the three probe backends.
func NewResolver(cache cacheReader, db tokenReader, rpc RPCClient, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:  cache,
		db:     db,
		rpc:    rpc,
		meta:   newMetadataResolver(rpc, logger),
		logger: logger.With("component", "resolver"),

		timeout: resolveTimeout,
	}
}

// Resolve produces the single best-matching enriched token for the input, or
// ErrNotFound. The whole lookup is bounded by a 3-second deadline; abandoned
// racers are cancelled and release their handles. Only the address path is
// implemented; symbol and name lookups classify but do not yet probe.
func (r *Resolver) Resolve(ctx context.Context, input string) (*types.EnrichedToken, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	classification := Classify(input)
	if _, ok := classification.Matches[TypeAddress]; !ok {
		return nil, ErrNotFound
	}

	results := make(chan *types.EnrichedToken, 8)
	var wg sync.WaitGroup
	launch := func(probe func(context.Context) *types.EnrichedToken) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token := probe(ctx); token != nil {
				select {
				case results <- token:
				default:
				}
			}
		}()
	}

	// Racing direct reads.
	launch(func(ctx context.Context) *types.EnrichedToken { return r.cacheProbe(ctx, input) })
	launch(func(ctx context.Context) *types.EnrichedToken { return r.dbProbe(ctx, input) })

	// RPC fallback: the input as a market secondary.
	launch(func(ctx context.Context) *types.EnrichedToken {
		if token := r.resolveByBondingCurve(ctx, input); token != nil {
			return token
		}
		return r.resolveByPool(ctx, input)
	})

	// RPC fallback: the input as a mint, probing derived addresses.
	if pda, err := DeriveBondingCurvePDA(input); err == nil {
		launch(func(ctx context.Context) *types.EnrichedToken {
			return r.resolveByBondingCurve(ctx, pda)
		})
	}
	if pda, err := DerivePoolPDA(input); err == nil {
		launch(func(ctx context.Context) *types.EnrichedToken {
			return r.resolveByPool(ctx, pda)
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case token := <-results:
		return token, nil
	case <-done:
		select {
		case token := <-results:
			return token, nil
		default:
			return nil, ErrNotFound
		}
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// cacheProbe checks the four tokens:by_* keys for a full enriched token.
func (r *Resolver) cacheProbe(ctx context.Context, input string) *types.EnrichedToken {
	for _, kind := range tokenKinds {
		raw, found, err := r.cache.Get(ctx, store.TokenKey(kind, input))
		if err != nil || !found {
			continue
		}
		var token types.EnrichedToken
		if err := json.Unmarshal([]byte(raw), &token); err != nil {
			r.logger.Warn("corrupt cached token", "kind", kind, "error", err)
			continue
		}
		return &token
	}
	return nil
}

// dbProbe looks the input up in the relational store and, on a hit, resolves
// the row's market secondary on-chain for a current price.
func (r *Resolver) dbProbe(ctx context.Context, input string) *types.EnrichedToken {
	row, err := r.db.FetchTokenByAddress(ctx, input)
	if err != nil || row == nil {
		return nil
	}
	if row.BondingCurve != "" {
		if token := r.resolveByBondingCurve(ctx, row.BondingCurve); token != nil {
			return token
		}
	}
	if row.Pool != "" {
		if token := r.resolveByPool(ctx, row.Pool); token != nil {
			return token
		}
	}
	return nil
}

// resolveByBondingCurve treats the address as a bonding curve (or a
// LaunchLab pool state) and builds the enriched token from on-chain state.
func (r *Resolver) resolveByBondingCurve(ctx context.Context, address string) *types.EnrichedToken {
	acc, err := r.rpc.GetAccount(ctx, address)
	if err != nil {
		return nil
	}

	switch acc.Owner {
	case types.PumpFunProgramID, types.SPLTokenProgramID, types.Token2022ProgramID:
		return r.enrichBondingCurve(ctx, address, acc)
	case types.RaydiumLaunchLabProgramID:
		return r.enrichPoolState(ctx, address, acc)
	default:
		return nil
	}
}

func (r *Resolver) enrichBondingCurve(ctx context.Context, address string, acc *Account) *types.EnrichedToken {
	curve, err := DecodeBondingCurve(acc.Data)
	if err != nil {
		r.logger.Debug("not a bonding curve", "address", address, "error", err)
		return nil
	}

	mint := r.firstOwnedMint(ctx, address)
	if mint == "" {
		return nil
	}

	mintAcc, err := r.rpc.GetAccount(ctx, mint)
	if err != nil {
		return nil
	}
	decimals, err := MintDecimals(mintAcc.Data)
	if err != nil {
		return nil
	}

	price, err := BondingCurvePrice(curve, decimals)
	if err != nil {
		r.logger.Warn("bonding curve price undefined", "address", address, "error", err)
		return nil
	}

	meta := r.meta.tokenMetadata(ctx, mint)
	extended := r.meta.extendedMetadata(ctx, meta.URI)

	return &types.EnrichedToken{
		Mint:         mint,
		Platform:     types.PlatformPumpFun,
		BondingCurve: address,
		Price:        price,
		Decimals:     decimals,

		Name:   meta.Name,
		Symbol: meta.Symbol,
		URI:    meta.URI,

		Description: extended.Description,
		Twitter:     extended.Twitter,
		Telegram:    extended.Telegram,
		Website:     extended.Website,
		Image:       extended.Image,
	}
}

func (r *Resolver) enrichPoolState(ctx context.Context, address string, acc *Account) *types.EnrichedToken {
	state, err := DecodePoolState(acc.Data)
	if err != nil {
		r.logger.Debug("not a pool state", "address", address, "error", err)
		return nil
	}

	price, err := PoolStatePrice(state)
	if err != nil {
		r.logger.Warn("pool state price undefined", "address", address, "error", err)
		return nil
	}

	meta := r.meta.tokenMetadata(ctx, state.BaseMint)
	extended := r.meta.extendedMetadata(ctx, meta.URI)

	return &types.EnrichedToken{
		Mint:      state.BaseMint,
		Platform:  types.PlatformRaydiumLaunchLab,
		PoolState: address,
		Price:     price,
		Decimals:  state.BaseDecimals,

		Name:   meta.Name,
		Symbol: meta.Symbol,
		URI:    meta.URI,

		Description: extended.Description,
		Twitter:     extended.Twitter,
		Telegram:    extended.Telegram,
		Website:     extended.Website,
		Image:       extended.Image,
	}
}

// resolveByPool treats the address as a PumpSwap pool.
func (r *Resolver) resolveByPool(ctx context.Context, address string) *types.EnrichedToken {
	acc, err := r.rpc.GetAccount(ctx, address)
	if err != nil || acc.Owner != types.PumpSwapProgramID {
		return nil
	}

	pool, err := DecodePool(acc.Data)
	if err != nil {
		r.logger.Debug("not a pool", "address", address, "error", err)
		return nil
	}

	baseAmount := r.tokenAccountBalance(ctx, pool.PoolBaseTokenAccount)
	quoteAmount := r.tokenAccountBalance(ctx, pool.PoolQuoteTokenAccount)

	mintAcc, err := r.rpc.GetAccount(ctx, pool.BaseMint)
	if err != nil {
		return nil
	}
	decimals, err := MintDecimals(mintAcc.Data)
	if err != nil {
		return nil
	}

	price, err := PoolPrice(baseAmount, quoteAmount, decimals)
	if err != nil {
		r.logger.Warn("pool price undefined", "address", address, "error", err)
		return nil
	}

	meta := r.meta.tokenMetadata(ctx, pool.BaseMint)
	extended := r.meta.extendedMetadata(ctx, meta.URI)

	return &types.EnrichedToken{
		Mint:     pool.BaseMint,
		Platform: types.PlatformPumpSwap,
		Pool:     address,
		Price:    price,
		Decimals: decimals,

		Name:   meta.Name,
		Symbol: meta.Symbol,
		URI:    meta.URI,

		Description: extended.Description,
		Twitter:     extended.Twitter,
		Telegram:    extended.Telegram,
		Website:     extended.Website,
		Image:       extended.Image,
	}
}

// firstOwnedMint returns the mint of the first token account owned by the
// address, trying the token-2022 program first.
func (r *Resolver) firstOwnedMint(ctx context.Context, owner string) string {
	for _, program := range []string{types.Token2022ProgramID, types.SPLTokenProgramID} {
		accounts, err := r.rpc.GetTokenAccountsByOwner(ctx, owner, program)
		if err != nil || len(accounts) == 0 {
			continue
		}
		return accounts[0].Mint
	}
	return ""
}

func (r *Resolver) tokenAccountBalance(ctx context.Context, address string) uint64 {
	acc, err := r.rpc.GetAccount(ctx, address)
	if err != nil {
		return 0
	}
	amount, err := TokenAccountAmount(acc.Data)
	if err != nil {
		return 0
	}
	return amount
}
