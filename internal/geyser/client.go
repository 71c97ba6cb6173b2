// Package geyser maintains the live subscriptions to the streaming node.
//
// Two consumers run on top of a narrow client capability: the transaction
// consumer feeds the transaction decoder, and the account consumer feeds the
// account decoder. Both auto-reconnect with exponential backoff (1s → 30s
// max, reset on every successful connect). The subscription manager owns the
// account consumer's lifecycle and supports atomic reconfiguration under a
// stable-before-swap discipline.
package geyser

import (
	"context"
	"time"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// TxFilter selects the transactions to stream: any transaction touching one
// of the included accounts, excluding votes and failures.
type TxFilter struct {
	AccountInclude []string
}

// AccountFilter selects the account snapshots to stream.
type AccountFilter struct {
	Accounts []string
}

// TxStream yields transactions in stream order. Recv blocks until the next
// item, the stream ends, or ctx is done.
type TxStream interface {
	Recv(ctx context.Context) (*types.TxRecord, error)
	Close() error
}

// AccountStream yields account snapshots in stream order.
type AccountStream interface {
	Recv(ctx context.Context) (*types.AccountRecord, error)
	Close() error
}

// Client is the capability the consumers need from the streaming node. Each
// Subscribe call establishes a fresh session; reconnect loops call it again
// after a failure.
type Client interface {
	SubscribeTransactions(ctx context.Context, filter TxFilter) (TxStream, error)
	SubscribeAccounts(ctx context.Context, filter AccountFilter) (AccountStream, error)
}

// nextBackoff doubles the wait up to the cap.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
