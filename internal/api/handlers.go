package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// cacheBackend is the slice of the cache the handlers use; satisfied by
// *store.Cache.
type cacheBackend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// heartbeatInterval paces the /ws/ping stream.
const heartbeatInterval = time.Second

// lookupWait bounds how long a price stream waits for the resolver's first
// answer.
const lookupWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handlers implements the REST and WebSocket endpoints.
type Handlers struct {
	cache        cacheBackend
	creationHub  *Hub
	migrationHub *Hub
	logger       *slog.Logger
}

// NewHandlers wires the handlers to the cache and stream hubs.
func NewHandlers(cache cacheBackend, creationHub, migrationHub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		cache:        cache,
		creationHub:  creationHub,
		migrationHub: migrationHub,
		logger:       logger.With("component", "api_handlers"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandlePing answers the liveness probe.
func (h *Handlers) HandlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePrice returns the cached token record of a bonding curve.
func (h *Handlers) HandlePrice(w http.ResponseWriter, r *http.Request) {
	curve := r.PathValue("bonding_curve")

	raw, found, err := h.cache.Get(r.Context(), store.TokenKey("bonding_curve", curve))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"bonding_curve": curve, "error": "not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(raw))
}

// HandleBondingCurve returns the progress projection of a mint.
func (h *Handlers) HandleBondingCurve(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")

	raw, found, err := h.cache.HGet(r.Context(), store.ProgressHashKey, mint)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"mint": mint, "error": "not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(raw))
}

// HandleWSPing streams a heartbeat every second.
func (h *Handlers) HandleWSPing(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ping":"ok"}`)); err != nil {
				return
			}
		}
	}
}

// HandleWSCreation streams token creations.
func (h *Handlers) HandleWSCreation(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.creationHub.Attach(conn)
}

// HandleWSMigration streams migrations.
func (h *Handlers) HandleWSMigration(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.migrationHub.Attach(conn)
}

// HandleWSPrice resolves the identifier through the request channel, sends
// the enriched token as the first frame, then streams that market's price
// updates.
func (h *Handlers) HandleWSPrice(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	channelID := uuid.NewString()

	// Listen on the private channel before publishing the request so the
	// resolver's answer cannot be missed.
	sub := h.cache.Subscribe(ctx, channelID)
	defer sub.Close()

	req, err := json.Marshal([]string{identifier, channelID})
	if err != nil {
		return
	}
	if err := h.cache.Publish(ctx, store.ReqHandlerChannel, string(req)); err != nil {
		h.logger.Error("lookup request publish failed", "identifier", identifier, "error", err)
		return
	}

	var token types.EnrichedToken
	select {
	case <-ctx.Done():
		return
	case <-time.After(lookupWait):
		h.logger.Info("lookup produced no answer", "identifier", identifier)
		return
	case msg, ok := <-sub.Channel():
		if !ok {
			return
		}
		if err := json.Unmarshal([]byte(msg.Payload), &token); err != nil {
			h.logger.Warn("malformed resolver answer", "error", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
			return
		}
	}

	h.streamPrices(ctx, conn, token.Mint)
}

// streamPrices forwards ws:<mint> updates to the client until either side
// goes away.
func (h *Handlers) streamPrices(ctx context.Context, conn *websocket.Conn, mint string) {
	sub := h.cache.Subscribe(ctx, "ws:"+mint)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
