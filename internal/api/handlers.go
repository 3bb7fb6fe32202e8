package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"arcade-book/internal/config"
	"arcade-book/internal/ledger"
	"arcade-book/pkg/types"
)

// MarketDataSource is the market API surface proxied by the handlers.
type MarketDataSource interface {
	GetMarkets(ctx context.Context) ([]types.Market, error)
	GetMarket(ctx context.Context, marketID string) (*types.MarketDetail, error)
	GetComments(ctx context.Context, marketID string) ([]types.Comment, error)
	GetWalletOrders(ctx context.Context, wallet string) ([]types.WalletOrder, error)
	GetWalletMetrics(ctx context.Context, wallet string) (*types.WalletMetrics, error)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	provider BookProvider
	markets  MarketDataSource // nil when no market API is configured
	cfg      config.Config
	hub      *Hub
	upgrader websocket.Upgrader
	timeout  time.Duration // upstream deadline per request
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(provider BookProvider, markets MarketDataSource, cfg config.Config, hub *Hub, logger *slog.Logger) *Handlers {
	h := &Handlers{
		provider: provider,
		markets:  markets,
		cfg:      cfg,
		hub:      hub,
		timeout:  cfg.Engine.FetchTimeout,
		logger:   logger.With("component", "api-handlers"),
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r.Header.Get("Origin"), cfg.Dashboard, r.Host)
		},
	}
	return h
}

// HandleHealth returns a simple health check response
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"markets": len(h.provider.GetMarketsSnapshot()),
	})
}

// HandleSnapshot returns the current dashboard state
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildSnapshot(h.provider, h.cfg))
}

// HandleOrderBook returns the composed book of one market:
// GET /api/orderbook?market={appId}
func (h *Handlers) HandleOrderBook(w http.ResponseWriter, r *http.Request) {
	appID, err := parseAppID(r.URL.Query().Get("market"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "market must be a non-zero application id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	book, err := h.provider.GetOrderBook(ctx, appID)
	if err != nil {
		h.upstreamError(w, "order book", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// HandleAddress returns the application address of an app:
// GET /api/address?app_id={appId}
func (h *Handlers) HandleAddress(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("app_id")
	appID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "app_id must be an unsigned integer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app_id":  appID,
		"address": ledger.ApplicationAddress(appID),
	})
}

// HandleMarkets proxies the platform market list
func (h *Handlers) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarkets(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	markets, err := h.markets.GetMarkets(ctx)
	if err != nil {
		h.upstreamError(w, "markets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}

// HandleMarket proxies one market with its trades: GET /api/market?id=
func (h *Handlers) HandleMarket(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarkets(w) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	detail, err := h.markets.GetMarket(ctx, id)
	if err != nil {
		h.upstreamError(w, "market", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleComments proxies market comments: GET /api/comments?id=
func (h *Handlers) HandleComments(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarkets(w) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	comments, err := h.markets.GetComments(ctx, id)
	if err != nil {
		h.upstreamError(w, "comments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// HandleWalletOrders proxies the open orders of a wallet:
// GET /api/wallet-orders?wallet={address}
func (h *Handlers) HandleWalletOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarkets(w) {
		return
	}
	wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))
	if _, err := ledger.DecodeAddress(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "wallet: "+err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.markets.GetWalletOrders(ctx, wallet)
	if err != nil {
		h.upstreamError(w, "wallet orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallet": wallet, "orders": orders})
}

// HandleWalletMetrics proxies the trading performance of a wallet:
// GET /api/wallet-metrics?wallet={address}
func (h *Handlers) HandleWalletMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarkets(w) {
		return
	}
	wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))
	if _, err := ledger.DecodeAddress(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "wallet: "+err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	metrics, err := h.markets.GetWalletMetrics(ctx, wallet)
	if err != nil {
		h.upstreamError(w, "wallet metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallet": wallet, "metrics": metrics})
}

// HandleWebSocket upgrades the connection and creates a new WebSocket client
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Initial snapshot goes out before any broadcast event
	evt := DashboardEvent{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Data:      BuildSnapshot(h.provider, h.cfg),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		data = nil
	}

	NewClient(h.hub, conn, data)
}

func (h *Handlers) requireMarkets(w http.ResponseWriter) bool {
	if h.markets == nil {
		writeError(w, http.StatusServiceUnavailable, "market API is not configured")
		return false
	}
	return true
}

func (h *Handlers) upstreamError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, ErrMarketNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Warn("upstream request failed", "what", what, "error", err)
	writeError(w, http.StatusBadGateway, what+": upstream request failed")
}

func parseAppID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("zero app id")
	}
	return id, nil
}

// isOriginAllowed decides whether a WebSocket handshake may proceed.
// Requests without an Origin header (non-browser clients) are allowed. With
// an allowlist configured only listed origins pass; otherwise local origins
// and the server's own host do.
func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			if strings.EqualFold(strings.TrimRight(strings.TrimSpace(allowed), "/"), strings.TrimRight(origin, "/")) {
				return true
			}
		}
		return false
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.EqualFold(u.Host, reqHost) || sameHostname(u.Hostname(), reqHost)
}

func sameHostname(host, reqHost string) bool {
	h, _, err := net.SplitHostPort(reqHost)
	if err != nil {
		h = reqHost
	}
	return h != "" && strings.EqualFold(host, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
