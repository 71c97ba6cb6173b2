package geyser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/0xdmtry/dex-indexer/internal/config"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

const (
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// wsClient implements the stream capability over the node's WebSocket
// endpoint. Each Subscribe call dials a fresh session, sends one subscribe
// request, and yields frames until the connection drops; the consumers'
// reconnect loops own retry.
type wsClient struct {
	url   string
	token string
}

// NewWSClient builds a stream client for the configured node.
func NewWSClient(cfg config.GeyserConfig) Client {
	return &wsClient{url: cfg.URL, token: cfg.Token}
}

// subscribeMsg is the request sent after dialing: exactly one of the filter
// fields is set.
type subscribeMsg struct {
	Transactions *txFilterMsg   `json:"transactions,omitempty"`
	Accounts     *acctFilterMsg `json:"accounts,omitempty"`
}

type txFilterMsg struct {
	AccountInclude []string `json:"account_include"`
	Vote           bool     `json:"vote"`
	Failed         bool     `json:"failed"`
}

type acctFilterMsg struct {
	Accounts []string `json:"account"`
}

// frame is one stream update; exactly one payload field is set.
type frame struct {
	Transaction *types.TxRecord      `json:"transaction,omitempty"`
	Account     *types.AccountRecord `json:"account,omitempty"`
}

func (c *wsClient) dial(ctx context.Context, msg subscribeMsg) (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("X-Token", c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

func (c *wsClient) SubscribeTransactions(ctx context.Context, filter TxFilter) (TxStream, error) {
	conn, err := c.dial(ctx, subscribeMsg{
		Transactions: &txFilterMsg{AccountInclude: filter.AccountInclude},
	})
	if err != nil {
		return nil, err
	}
	return &wsTxStream{conn: conn}, nil
}

func (c *wsClient) SubscribeAccounts(ctx context.Context, filter AccountFilter) (AccountStream, error) {
	conn, err := c.dial(ctx, subscribeMsg{
		Accounts: &acctFilterMsg{Accounts: filter.Accounts},
	})
	if err != nil {
		return nil, err
	}
	return &wsAcctStream{conn: conn}, nil
}

// readFrame reads the next frame with a deadline so silent server failures
// surface as reconnects.
func readFrame(conn *websocket.Conn) (*frame, error) {
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}

type wsTxStream struct {
	conn *websocket.Conn
}

func (s *wsTxStream) Recv(ctx context.Context) (*types.TxRecord, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f, err := readFrame(s.conn)
		if err != nil {
			return nil, err
		}
		if f.Transaction != nil {
			return f.Transaction, nil
		}
		// Keep-alives and unrelated frames are skipped.
	}
}

func (s *wsTxStream) Close() error {
	return s.conn.Close()
}

type wsAcctStream struct {
	conn *websocket.Conn
}

func (s *wsAcctStream) Recv(ctx context.Context) (*types.AccountRecord, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f, err := readFrame(s.conn)
		if err != nil {
			return nil, err
		}
		if f.Account != nil {
			return f.Account, nil
		}
	}
}

func (s *wsAcctStream) Close() error {
	return s.conn.Close()
}
