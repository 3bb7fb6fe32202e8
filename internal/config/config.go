// Package config defines all configuration for the order-book service.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via BOOK_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Book sources for EngineConfig.Source.
const (
	SourceIndexer = "indexer" // decode orders from the ledger indexer
	SourceAPI     = "api"     // use the market API's full orderbook
	SourceAuto    = "auto"    // indexer, falling back to the API on error
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	MarketAPI MarketAPIConfig `mapstructure:"market_api"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// IndexerConfig points at an Algorand indexer (v2 REST API).
//
//   - RateLimit / Burst: token bucket for indexer requests (requests per second / burst size).
//   - APIToken: optional X-Indexer-API-Token header for private nodes.
type IndexerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIToken  string        `mapstructure:"api_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     float64       `mapstructure:"burst"`
}

// MarketAPIConfig points at the platform REST API. GET responses are cached
// for CacheTTL in an LRU of CacheSize entries; CacheTTL 0 disables caching.
type MarketAPIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// ScannerConfig controls which markets get a live book.
// When MarketAppIDs is set the scanner tracks exactly those and never polls
// the market API. Otherwise it polls the market list, keeps active markets,
// applies the include/exclude lists (market ids), ranks by volume and keeps
// the top MaxMarkets.
type ScannerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MarketAppIDs []uint64      `mapstructure:"market_app_ids"`
	IncludeIDs   []string      `mapstructure:"include_ids"`
	ExcludeIDs   []string      `mapstructure:"exclude_ids"`
	MinVolume    float64       `mapstructure:"min_volume"`
	MaxMarkets   int           `mapstructure:"max_markets"`
}

// EngineConfig tunes the per-market refresh loop.
//
//   - Source: "indexer", "api" or "auto".
//   - RefreshInterval: how often each tracked book is rebuilt.
//   - FetchTimeout: deadline for one refresh (all indexer calls included).
//   - StaleBookTimeout: a book older than this is reported as stale.
type EngineConfig struct {
	Source           string        `mapstructure:"source"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	StaleBookTimeout time.Duration `mapstructure:"stale_book_timeout"`
}

// StoreConfig sets where composed books are persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the HTTP/WebSocket API server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Every key can be overridden as BOOK_<SECTION>_<KEY>, e.g. BOOK_INDEXER_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("BOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Tokens are usually injected by the environment, never committed
	if token := os.Getenv("BOOK_INDEXER_API_TOKEN"); token != "" {
		cfg.Indexer.APIToken = token
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("indexer.base_url", "https://mainnet-idx.algonode.cloud")
	v.SetDefault("indexer.timeout", 10*time.Second)
	v.SetDefault("indexer.rate_limit", 20)
	v.SetDefault("indexer.burst", 40)
	v.SetDefault("market_api.timeout", 15*time.Second)
	v.SetDefault("market_api.cache_size", 256)
	v.SetDefault("market_api.cache_ttl", 5*time.Second)
	v.SetDefault("scanner.poll_interval", time.Minute)
	v.SetDefault("scanner.max_markets", 20)
	v.SetDefault("engine.source", SourceAuto)
	v.SetDefault("engine.refresh_interval", 10*time.Second)
	v.SetDefault("engine.fetch_timeout", 30*time.Second)
	v.SetDefault("engine.stale_book_timeout", 2*time.Minute)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("dashboard.port", 8080)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Engine.Source {
	case SourceIndexer, SourceAPI, SourceAuto:
	default:
		return fmt.Errorf("engine.source must be one of: indexer, api, auto")
	}
	if c.Engine.Source != SourceAPI && c.Indexer.BaseURL == "" {
		return fmt.Errorf("indexer.base_url is required when engine.source is %q", c.Engine.Source)
	}
	if c.Engine.Source != SourceIndexer && c.MarketAPI.BaseURL == "" {
		return fmt.Errorf("market_api.base_url is required when engine.source is %q", c.Engine.Source)
	}
	if len(c.Scanner.MarketAppIDs) == 0 && c.MarketAPI.BaseURL == "" {
		return fmt.Errorf("scanner.market_app_ids or market_api.base_url is required")
	}
	if c.Engine.RefreshInterval <= 0 {
		return fmt.Errorf("engine.refresh_interval must be > 0")
	}
	if c.Engine.FetchTimeout <= 0 {
		return fmt.Errorf("engine.fetch_timeout must be > 0")
	}
	if c.Indexer.RateLimit <= 0 || c.Indexer.Burst < 1 {
		return fmt.Errorf("indexer.rate_limit must be > 0 and indexer.burst >= 1")
	}
	if len(c.Scanner.MarketAppIDs) == 0 {
		if c.Scanner.PollInterval <= 0 {
			return fmt.Errorf("scanner.poll_interval must be > 0")
		}
		if c.Scanner.MaxMarkets <= 0 {
			return fmt.Errorf("scanner.max_markets must be > 0")
		}
	}
	if c.MarketAPI.CacheTTL > 0 && c.MarketAPI.CacheSize <= 0 {
		return fmt.Errorf("market_api.cache_size must be > 0 when caching is enabled")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be in 1..65535")
	}
	return nil
}
