// Package marketapi implements the client for the prediction market
// platform's REST API.
//
//   - GetMarkets:       GET /api/get-markets                    : market list
//   - GetMarket:        GET /api/get-market?marketId=           : market + trade matches
//   - GetComments:      GET /api/get-comments?marketId=         : market comments
//   - GetWalletOrders:  GET /api/get-wallet-orders?wallet=      : open orders of a wallet
//   - GetWalletMetrics: GET /api/get-wallet-participant-data?wallet= : PnL and trade stats
//   - GetFullOrderbook: GET /api/get-full-orderbook?marketAppId= : server-composed book
//
// Responses are retried on 5xx. All but the full orderbook are cached for a
// short TTL in an expiring LRU, so dashboards polling the same market do not
// multiply upstream traffic. The orderbook feeds book refreshes and is always
// fetched live.
package marketapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"arcade-book/internal/config"
	"arcade-book/internal/telemetry"
	"arcade-book/pkg/types"
)

// Client is the market REST API client.
type Client struct {
	http   *resty.Client
	cache  *expirable.LRU[string, []byte] // nil when caching is disabled
	logger *slog.Logger
}

// NewClient creates a REST client with retry and an optional response cache.
func NewClient(cfg config.MarketAPIConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:   httpClient,
		logger: logger.With("component", "marketapi"),
	}
	if cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c
}

// GetMarkets fetches all markets. Null entries in the list are dropped.
func (c *Client) GetMarkets(ctx context.Context) ([]types.Market, error) {
	var result types.MarketsResponse
	if err := c.get(ctx, "get markets", "/api/get-markets", nil, &result); err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(result.Markets))
	for _, m := range result.Markets {
		if m != nil {
			markets = append(markets, *m)
		}
	}
	return markets, nil
}

// GetMarket fetches one market with its executed trades.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*types.MarketDetail, error) {
	var result types.MarketDetail
	params := url.Values{"marketId": {marketID}}
	if err := c.get(ctx, "get market", "/api/get-market", params, &result); err != nil {
		return nil, err
	}
	if result.Matches == nil {
		result.Matches = []types.Match{}
	}
	return &result, nil
}

// GetComments fetches the comments posted on a market.
func (c *Client) GetComments(ctx context.Context, marketID string) ([]types.Comment, error) {
	var result types.CommentsResponse
	params := url.Values{"marketId": {marketID}}
	if err := c.get(ctx, "get comments", "/api/get-comments", params, &result); err != nil {
		return nil, err
	}
	if result.Comments == nil {
		return []types.Comment{}, nil
	}
	return result.Comments, nil
}

// GetWalletOrders fetches the open orders of a wallet across all markets.
func (c *Client) GetWalletOrders(ctx context.Context, wallet string) ([]types.WalletOrder, error) {
	var result []types.WalletOrder
	params := url.Values{"wallet": {wallet}}
	if err := c.get(ctx, "get wallet orders", "/api/get-wallet-orders", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return []types.WalletOrder{}, nil
	}
	return result, nil
}

// GetWalletMetrics fetches the trading performance of a wallet.
func (c *Client) GetWalletMetrics(ctx context.Context, wallet string) (*types.WalletMetrics, error) {
	var result types.WalletMetrics
	params := url.Values{"wallet": {wallet}}
	if err := c.get(ctx, "get wallet metrics", "/api/get-wallet-participant-data", params, &result); err != nil {
		return nil, err
	}
	if result.DailyMetrics == nil {
		result.DailyMetrics = []types.DailyMetric{}
	}
	if result.CategoryMetrics == nil {
		result.CategoryMetrics = map[string]types.CategoryMetric{}
	}
	return &result, nil
}

// GetFullOrderbook fetches the platform's own composed book for a market.
// The result is returned as served; callers normalize it. It bypasses the
// response cache.
func (c *Client) GetFullOrderbook(ctx context.Context, marketAppID uint64) (types.OrderBook, error) {
	const op = "get full orderbook"

	var result types.OrderBook
	params := url.Values{"marketAppId": {strconv.FormatUint(marketAppID, 10)}}
	body, err := c.fetch(ctx, op, "/api/get-full-orderbook", params)
	if err != nil {
		return nil, err
	}
	if err := decode(op, body, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = types.OrderBook{}
	}
	return result, nil
}

// get performs a cached GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	key := path
	if len(params) > 0 {
		key += "?" + params.Encode()
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			telemetry.MarketAPICacheHitCounter.Inc()
			return decode(op, body, out)
		}
	}

	body, err := c.fetch(ctx, op, path, params)
	if err != nil {
		return err
	}
	if err := decode(op, body, out); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Add(key, body)
	}
	return nil
}

// fetch performs an uncached GET and returns the body of a 200 response.
func (c *Client) fetch(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
