// Package api serves the order books over HTTP and WebSocket.
//
// REST routes expose the tracked books, on-demand books for any market, the
// derived application address, and proxied market API data. The /ws hub
// streams book updates as the engine refreshes them; /metrics exposes the
// prometheus registry.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcade-book/internal/config"
)

// Server runs the HTTP/WebSocket API
type Server struct {
	cfg      config.DashboardConfig
	provider BookProvider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	ctx      context.Context // scopes the hub and event consumer
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// NewServer creates a new API server. markets may be nil when no market API
// is configured; the proxied routes then answer 503.
func NewServer(cfg config.Config, provider BookProvider, markets MarketDataSource, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, markets, cfg, hub, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Dashboard.Port),
		Handler:      newMux(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Engine.FetchTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:      cfg.Dashboard,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   server,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With("component", "api-server"),
	}
}

func newMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /api/snapshot", h.HandleSnapshot)
	mux.HandleFunc("GET /api/orderbook", h.HandleOrderBook)
	mux.HandleFunc("GET /api/address", h.HandleAddress)
	mux.HandleFunc("GET /api/markets", h.HandleMarkets)
	mux.HandleFunc("GET /api/market", h.HandleMarket)
	mux.HandleFunc("GET /api/comments", h.HandleComments)
	mux.HandleFunc("GET /api/wallet-orders", h.HandleWalletOrders)
	mux.HandleFunc("GET /api/wallet-metrics", h.HandleWalletMetrics)
	mux.HandleFunc("GET /ws", h.HandleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start starts the hub, the event consumer and the HTTP server. Blocks until
// the server stops.
func (s *Server) Start() error {
	go s.hub.Run(s.ctx)
	go s.consumeEvents(s.ctx)

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.cancel()
	return err
}

// consumeEvents reads events from the engine and broadcasts them
func (s *Server) consumeEvents(ctx context.Context) {
	eventsCh := s.provider.DashboardEvents()
	if eventsCh == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventsCh:
			s.hub.BroadcastEvent(evt)
		}
	}
}
