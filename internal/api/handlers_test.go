package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"arcade-book/internal/config"
	"arcade-book/pkg/types"
)

const testWallet = "AAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYP7MUPJQE"

func TestIsOriginAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origin  string
		cfg     config.DashboardConfig
		reqHost string
		want    bool
	}{
		{
			name:    "empty origin is allowed",
			origin:  "",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    true,
		},
		{
			name:    "localhost origin allowed by default",
			origin:  "http://localhost:8080",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    true,
		},
		{
			name:    "non-local origin denied by default",
			origin:  "https://evil.example",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    false,
		},
		{
			name:    "allowlist permits exact origin",
			origin:  "https://dash.example.com",
			cfg:     config.DashboardConfig{AllowedOrigins: []string{"https://dash.example.com/"}},
			reqHost: "0.0.0.0:8080",
			want:    true,
		},
		{
			name:    "allowlist denies everything else",
			origin:  "http://localhost:3000",
			cfg:     config.DashboardConfig{AllowedOrigins: []string{"https://dash.example.com"}},
			reqHost: "0.0.0.0:8080",
			want:    false,
		},
		{
			name:    "same host allowed when no allowlist",
			origin:  "https://book.internal:8080",
			cfg:     config.DashboardConfig{},
			reqHost: "book.internal:8080",
			want:    true,
		},
		{
			name:    "malformed origin denied",
			origin:  "::not a url",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isOriginAllowed(tt.origin, tt.cfg, tt.reqHost); got != tt.want {
				t.Fatalf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

type fakeProvider struct {
	markets []MarketStatus
	books   map[uint64]types.OrderBook
	err     error
}

func (p *fakeProvider) GetMarketsSnapshot() []MarketStatus { return p.markets }
func (p *fakeProvider) GetScannerInfo() ScannerInfo        { return ScannerInfo{MarketsSelected: len(p.markets)} }
func (p *fakeProvider) DashboardEvents() <-chan DashboardEvent {
	return nil
}

func (p *fakeProvider) GetOrderBook(_ context.Context, appID uint64) (types.OrderBook, error) {
	if p.err != nil {
		return nil, p.err
	}
	book, ok := p.books[appID]
	if !ok {
		return nil, fmt.Errorf("%w: app %d", ErrMarketNotFound, appID)
	}
	return book, nil
}

type fakeMarkets struct {
	wallet string // last wallet requested
}

func (f *fakeMarkets) GetMarkets(context.Context) ([]types.Market, error) {
	return []types.Market{{ID: "m1", Title: "Will ALGO hit $1?", MarketAppID: 42}}, nil
}

func (f *fakeMarkets) GetMarket(_ context.Context, id string) (*types.MarketDetail, error) {
	if id != "m1" {
		return nil, errors.New("get market: status 404: not found")
	}
	return &types.MarketDetail{Market: types.Market{ID: "m1"}, Matches: []types.Match{}}, nil
}

func (f *fakeMarkets) GetComments(context.Context, string) ([]types.Comment, error) {
	return []types.Comment{{Text: "gm"}}, nil
}

func (f *fakeMarkets) GetWalletOrders(_ context.Context, wallet string) ([]types.WalletOrder, error) {
	f.wallet = wallet
	return []types.WalletOrder{{MarketID: "m1", OrderSide: "buy"}}, nil
}

func (f *fakeMarkets) GetWalletMetrics(_ context.Context, wallet string) (*types.WalletMetrics, error) {
	f.wallet = wallet
	return &types.WalletMetrics{
		NetProfit:       42.5,
		WinningTrades:   3,
		TotalTrades:     4,
		DailyMetrics:    []types.DailyMetric{{Date: "2025-04-01", Trades: 4}},
		CategoryMetrics: map[string]types.CategoryMetric{"sports": {Trades: 4, NetProfit: 42.5}},
	}, nil
}

func newTestMux(p BookProvider, m MarketDataSource) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlers(p, m, config.Config{}, NewHub(logger), logger)
	return newMux(h)
}

func doGet(t *testing.T, mux http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: invalid JSON %q: %v", target, rec.Body.String(), err)
	}
	return rec, body
}

func testProvider() *fakeProvider {
	side := types.EmptyMarketSide()
	side.Yes.Bids = []types.PriceLevel{{Price: 700000, Quantity: 10, Total: 7}}
	return &fakeProvider{
		markets: []MarketStatus{{AppID: 42, MarketID: "42"}, {AppID: 7, MarketID: "7"}},
		books:   map[uint64]types.OrderBook{42: {"42": side}},
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	rec, body := doGet(t, newTestMux(testProvider(), nil), "/health")

	if rec.Code != http.StatusOK || body["status"] != "ok" || body["markets"] != float64(2) {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestHandleSnapshotSortsMarkets(t *testing.T) {
	t.Parallel()
	rec, body := doGet(t, newTestMux(testProvider(), nil), "/api/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	markets := body["markets"].([]any)
	if len(markets) != 2 || markets[0].(map[string]any)["app_id"] != float64(7) {
		t.Errorf("markets = %v, want app 7 first", markets)
	}
	scanner := body["scanner"].(map[string]any)
	if scanner["markets_tracked"] != float64(2) {
		t.Errorf("scanner = %v", scanner)
	}
}

func TestHandleOrderBook(t *testing.T) {
	t.Parallel()
	mux := newTestMux(testProvider(), nil)

	rec, body := doGet(t, mux, "/api/orderbook?market=42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%v", rec.Code, body)
	}
	yes := body["42"].(map[string]any)["yes"].(map[string]any)
	bids := yes["bids"].([]any)
	if len(bids) != 1 || bids[0].(map[string]any)["price"] != float64(700000) {
		t.Errorf("bids = %v", bids)
	}
	if asks, ok := yes["asks"].([]any); !ok || len(asks) != 0 {
		t.Errorf("asks = %#v, want []", yes["asks"])
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/orderbook", http.StatusBadRequest},
		{"/api/orderbook?market=abc", http.StatusBadRequest},
		{"/api/orderbook?market=0", http.StatusBadRequest},
		{"/api/orderbook?market=99", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec, body := doGet(t, mux, tt.target)
		if rec.Code != tt.want || body["error"] == nil {
			t.Errorf("GET %s = %d %v, want %d with error", tt.target, rec.Code, body, tt.want)
		}
	}
}

func TestHandleOrderBookUpstreamFailure(t *testing.T) {
	t.Parallel()
	p := testProvider()
	p.err = errors.New("indexer down")

	rec, _ := doGet(t, newTestMux(p, nil), "/api/orderbook?market=42")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleAddress(t *testing.T) {
	t.Parallel()
	mux := newTestMux(testProvider(), nil)

	rec, body := doGet(t, mux, "/api/address?app_id=3004419219")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["address"] != "DAMCNXMEQYNZLI42A4ZFVCY2DQH4HYY4WKJLU5OLXS6RCQKAHNVDIQGFAU" {
		t.Errorf("address = %v", body["address"])
	}

	rec, _ = doGet(t, mux, "/api/address?app_id=-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative app id status = %d, want 400", rec.Code)
	}
}

func TestProxiedRoutes(t *testing.T) {
	t.Parallel()
	markets := &fakeMarkets{}
	mux := newTestMux(testProvider(), markets)

	rec, body := doGet(t, mux, "/api/markets")
	if rec.Code != http.StatusOK || len(body["markets"].([]any)) != 1 {
		t.Errorf("markets = %d %v", rec.Code, body)
	}

	rec, body = doGet(t, mux, "/api/market?id=m1")
	if rec.Code != http.StatusOK || body["market"] == nil {
		t.Errorf("market = %d %v", rec.Code, body)
	}

	rec, _ = doGet(t, mux, "/api/market?id=zzz")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("missing market status = %d, want 502", rec.Code)
	}

	rec, _ = doGet(t, mux, "/api/market")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("market without id status = %d, want 400", rec.Code)
	}

	rec, body = doGet(t, mux, "/api/comments?id=m1")
	if rec.Code != http.StatusOK || len(body["comments"].([]any)) != 1 {
		t.Errorf("comments = %d %v", rec.Code, body)
	}

	rec, body = doGet(t, mux, "/api/wallet-orders?wallet="+testWallet)
	if rec.Code != http.StatusOK || len(body["orders"].([]any)) != 1 {
		t.Errorf("wallet orders = %d %v", rec.Code, body)
	}
	if markets.wallet != testWallet {
		t.Errorf("upstream wallet = %q", markets.wallet)
	}
}

func TestWalletOrdersRejectsBadAddress(t *testing.T) {
	t.Parallel()
	markets := &fakeMarkets{}
	mux := newTestMux(testProvider(), markets)

	bad := testWallet[:57] + "A" // checksum mismatch
	for _, wallet := range []string{"", "short", bad} {
		rec, body := doGet(t, mux, "/api/wallet-orders?wallet="+wallet)
		if rec.Code != http.StatusBadRequest || body["error"] == nil {
			t.Errorf("wallet %q = %d %v, want 400", wallet, rec.Code, body)
		}
	}
	if markets.wallet != "" {
		t.Error("invalid wallet reached the upstream")
	}
}

func TestHandleWalletMetrics(t *testing.T) {
	t.Parallel()
	markets := &fakeMarkets{}
	mux := newTestMux(testProvider(), markets)

	rec, body := doGet(t, mux, "/api/wallet-metrics?wallet="+testWallet)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	metrics, ok := body["metrics"].(map[string]any)
	if !ok || metrics["netProfit"] != 42.5 || metrics["winningTrades"] != float64(3) {
		t.Errorf("metrics = %v", body["metrics"])
	}
	if cats, ok := metrics["categoryMetrics"].(map[string]any); !ok || cats["sports"] == nil {
		t.Errorf("category metrics = %v", metrics["categoryMetrics"])
	}
	if markets.wallet != testWallet {
		t.Errorf("upstream wallet = %q", markets.wallet)
	}

	markets.wallet = ""
	rec, _ = doGet(t, mux, "/api/wallet-metrics?wallet=short")
	if rec.Code != http.StatusBadRequest || markets.wallet != "" {
		t.Errorf("bad wallet status = %d upstream = %q, want 400 and no call", rec.Code, markets.wallet)
	}
}

func TestProxiedRoutesWithoutMarketAPI(t *testing.T) {
	t.Parallel()
	mux := newTestMux(testProvider(), nil)

	for _, target := range []string{"/api/markets", "/api/market?id=m1", "/api/comments?id=m1", "/api/wallet-metrics?wallet=" + testWallet} {
		rec, _ := doGet(t, mux, target)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", target, rec.Code)
		}
	}
}

func TestNewOutcomeStatus(t *testing.T) {
	t.Parallel()

	st := NewOutcomeStatus(types.BookSide{
		Bids: []types.PriceLevel{{Price: 540000, Quantity: 200}, {Price: 550000, Quantity: 100}},
		Asks: []types.PriceLevel{{Price: 570000, Quantity: 150}},
	})
	if st.BestBid.String() != "0.55" || st.BestAsk.String() != "0.57" {
		t.Errorf("top of book = %s/%s", st.BestBid, st.BestAsk)
	}
	if st.MidPrice.String() != "0.56" || st.Spread.String() != "0.02" || st.Crossed {
		t.Errorf("mid=%s spread=%s crossed=%v", st.MidPrice, st.Spread, st.Crossed)
	}
	if st.BidDepth != 300 || st.AskDepth != 150 || st.BidLevels != 2 || st.AskLevels != 1 {
		t.Errorf("depth = %+v", st)
	}

	oneSided := NewOutcomeStatus(types.BookSide{Bids: []types.PriceLevel{{Price: 500000, Quantity: 1}}})
	if !oneSided.MidPrice.IsZero() || !oneSided.Spread.IsZero() {
		t.Errorf("one-sided book should have no mid/spread: %+v", oneSided)
	}
}
