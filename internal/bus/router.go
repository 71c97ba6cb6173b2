package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Handler processes one decoded event from a topic.
type Handler func(ctx context.Context, evt *types.Event) error

// Router decodes envelopes and dispatches them by topic to typed handlers.
// An envelope whose event_type does not belong on its topic is a protocol
// error: logged and dropped.
type Router struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "bus_router"),
	}
}

// Handle registers the handler for a topic.
func (r *Router) Handle(topic string, h Handler) {
	r.handlers[topic] = h
}

// Topics returns the topics with a registered handler.
func (r *Router) Topics() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Dispatch decodes one raw message and routes it. Decode and mismatch
// failures are returned so the consumer can log and drop; handler errors are
// passed through.
func (r *Router) Dispatch(ctx context.Context, topic string, payload []byte) error {
	h, ok := r.handlers[topic]
	if !ok {
		return fmt.Errorf("no handler for topic %q", topic)
	}

	evt, err := types.DecodeEvent(payload)
	if err != nil {
		return err
	}

	if TopicFor(evt.Type) != topic {
		return fmt.Errorf("event type %s does not belong on topic %s", evt.Type, topic)
	}

	return h(ctx, evt)
}
