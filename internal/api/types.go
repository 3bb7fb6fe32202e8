package api

import (
	"time"

	"github.com/shopspring/decimal"

	"arcade-book/internal/config"
)

// DashboardSnapshot represents the complete dashboard state
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Tracked markets
	Markets []MarketStatus `json:"markets"`

	// Configuration
	Config ConfigSummary `json:"config"`

	// Scanner info
	Scanner ScannerInfo `json:"scanner"`
}

// MarketStatus represents per-market book state
type MarketStatus struct {
	AppID      uint64 `json:"app_id"`
	MarketID   string `json:"market_id"`   // book key
	PlatformID string `json:"platform_id"` // market API id, empty for static markets
	Title      string `json:"title"`
	Escrow     string `json:"escrow"` // application address of the market

	Yes OutcomeStatus `json:"yes"`
	No  OutcomeStatus `json:"no"`

	Source      string    `json:"source"` // "indexer", "api" or "store"
	LastUpdated time.Time `json:"last_updated"`
	IsStale     bool      `json:"is_stale"`
}

// OutcomeStatus summarizes the book of one outcome. Prices are in units
// (0.65), quantities in micro-units.
type OutcomeStatus struct {
	BestBid   decimal.Decimal `json:"best_bid"`
	BestAsk   decimal.Decimal `json:"best_ask"`
	MidPrice  decimal.Decimal `json:"mid_price"`
	Spread    decimal.Decimal `json:"spread"`
	Crossed   bool            `json:"crossed"` // best bid >= best ask
	BidLevels int             `json:"bid_levels"`
	AskLevels int             `json:"ask_levels"`
	BidDepth  int64           `json:"bid_depth"`
	AskDepth  int64           `json:"ask_depth"`
}

// ConfigSummary represents the service configuration shown on the dashboard
type ConfigSummary struct {
	Source           string `json:"source"`
	RefreshInterval  string `json:"refresh_interval"`
	StaleBookTimeout string `json:"stale_book_timeout"`
	IndexerURL       string `json:"indexer_url"`
	MarketAPIURL     string `json:"market_api_url"`

	// Scanner parameters
	ScannerPollInterval string  `json:"scanner_poll_interval"`
	StaticMarkets       int     `json:"static_markets"`
	MaxMarkets          int     `json:"max_markets"`
	MinVolume           float64 `json:"min_volume"`
}

// ScannerInfo represents scanner state
type ScannerInfo struct {
	LastScanTime    time.Time `json:"last_scan_time"`
	MarketsSelected int       `json:"markets_selected"`
	MarketsTracked  int       `json:"markets_tracked"`
}

// NewConfigSummary creates config summary from config
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		Source:           cfg.Engine.Source,
		RefreshInterval:  cfg.Engine.RefreshInterval.String(),
		StaleBookTimeout: cfg.Engine.StaleBookTimeout.String(),
		IndexerURL:       cfg.Indexer.BaseURL,
		MarketAPIURL:     cfg.MarketAPI.BaseURL,

		ScannerPollInterval: cfg.Scanner.PollInterval.String(),
		StaticMarkets:       len(cfg.Scanner.MarketAppIDs),
		MaxMarkets:          cfg.Scanner.MaxMarkets,
		MinVolume:           cfg.Scanner.MinVolume,
	}
}
