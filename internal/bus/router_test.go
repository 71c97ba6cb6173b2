package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopicForCoversAllTopics(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, topic := range AllTopics() {
		seen[topic] = true
	}
	for evtType, topic := range topicByType {
		if !seen[topic] {
			t.Errorf("event %s maps to unlisted topic %s", evtType, topic)
		}
	}
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	r := NewRouter(discard())
	var got *types.Event
	r.Handle(TopicPfTrade, func(_ context.Context, evt *types.Event) error {
		got = evt
		return nil
	})

	payload, _ := json.Marshal(types.Event{
		Type: types.EventPfTradeOccurred,
		Data: &types.PfTrade{Signature: "sig", Mint: "m"},
	})

	if err := r.Dispatch(context.Background(), TopicPfTrade, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got == nil {
		t.Fatal("handler not invoked")
	}
	trade := got.Data.(*types.PfTrade)
	if trade.Signature != "sig" {
		t.Errorf("signature = %q", trade.Signature)
	}
}

func TestRouterDispatchTypeMismatch(t *testing.T) {
	t.Parallel()

	r := NewRouter(discard())
	called := false
	r.Handle(TopicPfTrade, func(_ context.Context, _ *types.Event) error {
		called = true
		return nil
	})

	// A price update envelope arriving on the trade topic must be rejected.
	payload, _ := json.Marshal(types.Event{
		Type: types.EventPfPriceUpdated,
		Data: &types.PfPriceUpdate{BondingCurve: "bc"},
	})

	if err := r.Dispatch(context.Background(), TopicPfTrade, payload); err == nil {
		t.Fatal("expected mismatch error")
	}
	if called {
		t.Error("handler invoked despite mismatch")
	}
}

func TestRouterDispatchUnknownTopic(t *testing.T) {
	t.Parallel()

	r := NewRouter(discard())
	if err := r.Dispatch(context.Background(), "mystery", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unregistered topic")
	}
}

func TestRouterDispatchMalformedEnvelope(t *testing.T) {
	t.Parallel()

	r := NewRouter(discard())
	r.Handle(TopicPfTrade, func(_ context.Context, _ *types.Event) error { return nil })

	if err := r.Dispatch(context.Background(), TopicPfTrade, []byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
