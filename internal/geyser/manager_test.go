package geyser

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

type fakeAcctStream struct {
	items chan *types.AccountRecord
}

func (s *fakeAcctStream) Recv(ctx context.Context) (*types.AccountRecord, error) {
	select {
	case acc := <-s.items:
		return acc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeAcctStream) Close() error { return nil }

type fakeClient struct {
	mu   sync.Mutex
	fail bool
	subs []*fakeAcctStream
}

func (c *fakeClient) SubscribeTransactions(ctx context.Context, _ TxFilter) (TxStream, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) SubscribeAccounts(ctx context.Context, _ AccountFilter) (AccountStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("subscribe refused")
	}
	s := &fakeAcctStream{items: make(chan *types.AccountRecord, 8)}
	c.subs = append(c.subs, s)
	return s, nil
}

func (c *fakeClient) setFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

func (c *fakeClient) stream(i int) *fakeAcctStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[i]
}

func (c *fakeClient) subCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func curveAccount(pub []byte) *types.AccountRecord {
	data := make([]byte, 40)
	binary.LittleEndian.PutUint64(data[8:], 1_000) // virtual token
	binary.LittleEndian.PutUint64(data[16:], 2_000)
	return &types.AccountRecord{Pubkey: pub, Data: data}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startManager(t *testing.T) (*Manager, *fakeClient, chan types.Event, context.CancelFunc) {
	t.Helper()
	client := &fakeClient{}
	events := make(chan types.Event, 16)
	m := NewManager(client, events, discard())
	m.stabilityWait = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	return m, client, events, cancel
}

func TestManagerUpdateInstallsSubscription(t *testing.T) {
	t.Parallel()

	m, client, events, cancel := startManager(t)
	defer cancel()

	pub := bytes.Repeat([]byte{9}, 32)
	tracked := map[string]types.Platform{base58.Encode(pub): types.PlatformPumpFun}

	if err := m.Update(context.Background(), tracked); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if client.subCount() != 1 {
		t.Fatalf("subscriptions = %d, want 1", client.subCount())
	}

	client.stream(0).items <- curveAccount(pub)
	select {
	case evt := <-events:
		if evt.Type != types.EventPfPriceUpdated {
			t.Errorf("event type = %v", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered from installed subscription")
	}
}

func TestManagerSwapReplacesSubscription(t *testing.T) {
	t.Parallel()

	m, client, _, cancel := startManager(t)
	defer cancel()

	pub := bytes.Repeat([]byte{9}, 32)
	tracked := map[string]types.Platform{base58.Encode(pub): types.PlatformPumpFun}

	if err := m.Update(context.Background(), tracked); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	if err := m.Update(context.Background(), tracked); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if client.subCount() != 2 {
		t.Fatalf("subscriptions = %d, want 2", client.subCount())
	}
}

func TestManagerStabilityTimeoutPreservesOld(t *testing.T) {
	t.Parallel()

	m, client, events, cancel := startManager(t)
	defer cancel()

	pub := bytes.Repeat([]byte{9}, 32)
	tracked := map[string]types.Platform{base58.Encode(pub): types.PlatformPumpFun}

	if err := m.Update(context.Background(), tracked); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	// A refused subscribe keeps the new consumer in its backoff loop, so it
	// never signals stability and the swap must fail.
	client.setFail(true)
	err := m.Update(context.Background(), tracked)
	if !errors.Is(err, ErrStability) {
		t.Fatalf("Update error = %v, want ErrStability", err)
	}
	client.setFail(false)

	// The original subscription is still live and delivering.
	client.stream(0).items <- curveAccount(pub)
	select {
	case evt := <-events:
		if evt.Type != types.EventPfPriceUpdated {
			t.Errorf("event type = %v", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("old subscription stopped delivering after failed swap")
	}
}

func TestManagerShutdownJoins(t *testing.T) {
	t.Parallel()

	m, _, _, cancel := startManager(t)
	defer cancel()

	pub := bytes.Repeat([]byte{9}, 32)
	tracked := map[string]types.Platform{base58.Encode(pub): types.PlatformPumpFun}
	if err := m.Update(context.Background(), tracked); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
