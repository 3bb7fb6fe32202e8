// Package indexer implements the Algorand indexer REST client used to read
// order state off chain.
//
// Endpoints:
//   - GetApplication: GET /v2/applications/{id} : app params + global state
//   - GetAccount:     GET /v2/accounts/{addr}   : account with created apps
//
// FetchOrders combines them into a Snapshot of one market's resting orders.
// Every request is rate-limited via a shared TokenBucket and retried on 5xx.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"arcade-book/internal/config"
	"arcade-book/internal/ledger"
	"arcade-book/internal/telemetry"
	"arcade-book/pkg/types"
)

// ErrNotFound is returned when the indexer has no record of an app or account.
var ErrNotFound = errors.New("indexer: not found")

// Client is the indexer REST client.
type Client struct {
	http   *resty.Client // HTTP client with retry + base URL
	rl     *TokenBucket
	logger *slog.Logger
}

// NewClient creates an indexer client with rate limiting and retry.
func NewClient(cfg config.IndexerConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
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
	if cfg.APIToken != "" {
		httpClient.SetHeader("X-Indexer-API-Token", cfg.APIToken)
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = 10
	}

	return &Client{
		http:   httpClient,
		rl:     NewTokenBucket(burst, rate),
		logger: logger.With("component", "indexer"),
	}
}

// GetApplication fetches one application with its global state.
func (c *Client) GetApplication(ctx context.Context, appID uint64) (*types.Application, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.ApplicationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatUint(appID, 10)).
		Get("/v2/applications/{id}")
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("get application %d: %w", appID, ErrNotFound)
	default:
		return nil, fmt.Errorf("get application: status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := decode("get application", resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result.Application, nil
}

// GetAccount fetches an account with the applications it created.
func (c *Client) GetAccount(ctx context.Context, address string) (*types.Account, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.AccountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", address).
		Get("/v2/accounts/{address}")
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("get account %s: %w", address, ErrNotFound)
	default:
		return nil, fmt.Errorf("get account: status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := decode("get account", resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result.Account, nil
}

// Snapshot is the decoded order state of one market.
type Snapshot struct {
	MarketAppID uint64
	Escrow      string           // derived address of the market app
	Market      ledger.State     // decoded global state of the market app
	Orders      []types.RawOrder // every order app linked to the market
	Dropped     int              // global-state entries skipped while decoding
}

// FetchOrders collects the order applications of a market.
//
// Orders are applications created by the market's escrow account. Markets
// whose orders were deployed by the market creator have an escrow with no
// created apps; in that case the creator account is scanned instead. Either
// way an app is kept only when its market_app_id (if present) matches.
func (c *Client) FetchOrders(ctx context.Context, marketAppID uint64) (*Snapshot, error) {
	app, err := c.GetApplication(ctx, marketAppID)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	market, stats := ledger.DecodeGlobalStateWithStats(app.Params.GlobalState)
	snap := &Snapshot{
		MarketAppID: marketAppID,
		Escrow:      ledger.ApplicationAddress(marketAppID),
		Market:      market,
		Orders:      []types.RawOrder{},
		Dropped:     stats.Dropped,
	}

	apps, err := c.createdApps(ctx, snap.Escrow)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if len(apps) == 0 && app.Params.Creator != "" {
		c.logger.Debug("escrow has no order apps, scanning creator",
			"market", marketAppID, "creator", app.Params.Creator)
		if apps, err = c.createdApps(ctx, app.Params.Creator); err != nil {
			return nil, fmt.Errorf("fetch orders: %w", err)
		}
	}

	for _, a := range apps {
		if a.Deleted || a.ID == marketAppID {
			continue
		}
		st, s := ledger.DecodeGlobalStateWithStats(a.Params.GlobalState)
		snap.Dropped += s.Dropped
		if !ledger.BelongsToMarket(st, marketAppID) {
			continue
		}
		if order, ok := ledger.OrderFromState(a.ID, st); ok {
			snap.Orders = append(snap.Orders, order)
		}
	}

	label := strconv.FormatUint(marketAppID, 10)
	telemetry.GlobalStateDroppedCounter.Add(float64(snap.Dropped))
	telemetry.OrdersDecodedGauge.WithLabelValues(label).Set(float64(len(snap.Orders)))

	if snap.Dropped > 0 {
		c.logger.Warn("dropped undecodable global state entries",
			"market", marketAppID, "dropped", snap.Dropped)
	}
	return snap, nil
}

// createdApps returns the apps an account created. Unknown accounts have none.
func (c *Client) createdApps(ctx context.Context, address string) ([]types.Application, error) {
	acct, err := c.GetAccount(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acct.CreatedApps, nil
}

// decode unmarshals a response body regardless of the Content-Type the
// indexer (or a proxy in front of it) reports.
func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
