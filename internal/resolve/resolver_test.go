package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

type fakeCache struct {
	data map[string]string
}

func (f *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

type fakeDB struct {
	rows map[string]*store.TokenRow
}

func (f *fakeDB) FetchTokenByAddress(_ context.Context, input string) (*store.TokenRow, error) {
	return f.rows[input], nil
}

type fakeRPC struct {
	accounts      map[string]*Account
	tokenAccounts map[string][]TokenAccount
}

func (f *fakeRPC) GetAccount(_ context.Context, address string) (*Account, error) {
	acc, ok := f.accounts[address]
	if !ok {
		return nil, fmt.Errorf("account %s not found", address)
	}
	return acc, nil
}

func (f *fakeRPC) GetTokenAccountsByOwner(_ context.Context, owner, programID string) ([]TokenAccount, error) {
	return f.tokenAccounts[owner+"/"+programID], nil
}

// blockingRPC never answers; used to drive the deadline path.
type blockingRPC struct {
	block chan struct{}
}

func (b *blockingRPC) GetAccount(_ context.Context, _ string) (*Account, error) {
	<-b.block
	return nil, errors.New("blocked")
}

func (b *blockingRPC) GetTokenAccountsByOwner(_ context.Context, _, _ string) ([]TokenAccount, error) {
	<-b.block
	return nil, errors.New("blocked")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mintAccountData(decimals byte) []byte {
	data := make([]byte, 82)
	data[44] = decimals
	return data
}

func newCurveFixture() (rpc *fakeRPC, curveAddr, mintAddr string) {
	curveAddr = base58.Encode(key(20))
	mintAddr = base58.Encode(key(21))

	rpc = &fakeRPC{
		accounts: map[string]*Account{
			curveAddr: {Owner: types.PumpFunProgramID, Data: curveData()},
			mintAddr:  {Owner: types.SPLTokenProgramID, Data: mintAccountData(6)},
		},
		tokenAccounts: map[string][]TokenAccount{
			curveAddr + "/" + types.Token2022ProgramID: {{Mint: mintAddr, Amount: 1}},
		},
	}
	return rpc, curveAddr, mintAddr
}

func TestResolveFromCache(t *testing.T) {
	t.Parallel()

	addr := base58.Encode(key(30))
	cached, _ := json.Marshal(types.EnrichedToken{
		Mint: "CachedMint", Platform: types.PlatformPumpFun, BondingCurve: addr, Price: 42,
	})

	r := NewResolver(
		&fakeCache{data: map[string]string{store.TokenKey("bonding_curve", addr): string(cached)}},
		&fakeDB{},
		&fakeRPC{accounts: map[string]*Account{}},
		discard(),
	)

	token, err := r.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.Mint != "CachedMint" || token.Price != 42 {
		t.Errorf("token = %+v", token)
	}
}

func TestResolveByBondingCurveRPC(t *testing.T) {
	t.Parallel()

	rpc, curveAddr, mintAddr := newCurveFixture()
	r := NewResolver(&fakeCache{}, &fakeDB{}, rpc, discard())

	token, err := r.Resolve(context.Background(), curveAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.Mint != mintAddr {
		t.Errorf("mint = %q, want %q", token.Mint, mintAddr)
	}
	if token.BondingCurve != curveAddr {
		t.Errorf("bonding curve = %q", token.BondingCurve)
	}
	if token.Platform != types.PlatformPumpFun {
		t.Errorf("platform = %v", token.Platform)
	}
	if token.Price != 27 {
		t.Errorf("price = %d, want 27", token.Price)
	}
	if token.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", token.Decimals)
	}
	// Metadata is absent upstream: defaults, never a failure.
	if token.Name != "" || token.Symbol != "" {
		t.Errorf("metadata = %q/%q, want empty defaults", token.Name, token.Symbol)
	}
}

func TestResolveViaDBSecondary(t *testing.T) {
	t.Parallel()

	rpc, curveAddr, mintAddr := newCurveFixture()
	db := &fakeDB{rows: map[string]*store.TokenRow{
		mintAddr: {Mint: mintAddr, Platform: types.PlatformPumpFun, BondingCurve: curveAddr},
	}}
	r := NewResolver(&fakeCache{}, db, rpc, discard())

	token, err := r.Resolve(context.Background(), mintAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.BondingCurve != curveAddr {
		t.Errorf("bonding curve = %q, want %q", token.BondingCurve, curveAddr)
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()

	r := NewResolver(&fakeCache{}, &fakeDB{}, &fakeRPC{accounts: map[string]*Account{}}, discard())

	_, err := r.Resolve(context.Background(), base58.Encode(key(40)))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveRejectsNonAddress(t *testing.T) {
	t.Parallel()

	r := NewResolver(&fakeCache{}, &fakeDB{}, &fakeRPC{}, discard())

	if _, err := r.Resolve(context.Background(), "SOL"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for symbol input", err)
	}
}

func TestResolveTimeout(t *testing.T) {
	t.Parallel()

	blocked := &blockingRPC{block: make(chan struct{})}
	defer close(blocked.block)

	r := NewResolver(&fakeCache{}, &fakeDB{}, blocked, discard())
	r.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := r.Resolve(context.Background(), base58.Encode(key(41)))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("deadline not enforced: took %v", elapsed)
	}
}

func TestResolveRepeatableIdentity(t *testing.T) {
	t.Parallel()

	rpc, curveAddr, _ := newCurveFixture()
	r := NewResolver(&fakeCache{}, &fakeDB{}, rpc, discard())

	first, err := r.Resolve(context.Background(), curveAddr)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), curveAddr)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if first.Mint != second.Mint || first.BondingCurve != second.BondingCurve || first.Platform != second.Platform {
		t.Errorf("market identity differs between lookups:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}
