// Package api serves the public HTTP/WebSocket surface backed by the cache:
// REST reads of the price and progress projections, and streaming endpoints
// bridging the cache pub/sub channels to WebSocket clients.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xdmtry/dex-indexer/internal/store"
)

// Server runs the HTTP/WebSocket API.
type Server struct {
	cache        *store.Cache
	handlers     *Handlers
	creationHub  *Hub
	migrationHub *Hub
	server       *http.Server
	logger       *slog.Logger
}

// NewServer builds the server and its routes.
func NewServer(addr string, cache *store.Cache, logger *slog.Logger) *Server {
	creationHub := NewHub(logger.With("stream", "creation"))
	migrationHub := NewHub(logger.With("stream", "migration"))
	handlers := NewHandlers(cache, creationHub, migrationHub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/ping", handlers.HandlePing)
	mux.HandleFunc("GET /v1/price/{bonding_curve}", handlers.HandlePrice)
	mux.HandleFunc("GET /v1/bonding-curve/{mint}", handlers.HandleBondingCurve)
	mux.HandleFunc("GET /v1/ws/ping", handlers.HandleWSPing)
	mux.HandleFunc("GET /v1/ws/price/{identifier}", handlers.HandleWSPrice)
	mux.HandleFunc("GET /v1/ws/creation", handlers.HandleWSCreation)
	mux.HandleFunc("GET /v1/ws/migration", handlers.HandleWSMigration)

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		cache:        cache,
		handlers:     handlers,
		creationHub:  creationHub,
		migrationHub: migrationHub,
		server:       server,
		logger:       logger.With("component", "api_server"),
	}
}

// Start runs the hubs, their cache-bus bridges and the HTTP listener. Blocks
// until the listener fails.
func (s *Server) Start(ctx context.Context) error {
	go s.creationHub.Run(ctx)
	go s.migrationHub.Run(ctx)
	go s.bridge(ctx, store.CreationChannel, s.creationHub)
	go s.bridge(ctx, store.MigrationChannel, s.migrationHub)

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// bridge forwards one cache pub/sub channel into a hub.
func (s *Server) bridge(ctx context.Context, channel string, hub *Hub) {
	sub := s.cache.Subscribe(ctx, channel)
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
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}
