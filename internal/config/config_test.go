package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Indexer:   IndexerConfig{BaseURL: "http://indexer", RateLimit: 10, Burst: 10},
		MarketAPI: MarketAPIConfig{BaseURL: "http://api", CacheSize: 16, CacheTTL: time.Second},
		Scanner:   ScannerConfig{PollInterval: time.Minute, MaxMarkets: 5},
		Engine: EngineConfig{
			Source:           SourceAuto,
			RefreshInterval:  time.Second,
			FetchTimeout:     time.Second,
			StaleBookTimeout: time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad source", func(c *Config) { c.Engine.Source = "chain" }, "engine.source"},
		{"indexer url required", func(c *Config) { c.Indexer.BaseURL = "" }, "indexer.base_url"},
		{"api source needs no indexer", func(c *Config) { c.Engine.Source = SourceAPI; c.Indexer.BaseURL = "" }, ""},
		{"api url required for auto", func(c *Config) { c.MarketAPI.BaseURL = "" }, "market_api.base_url"},
		{"static ids without api", func(c *Config) {
			c.Engine.Source = SourceIndexer
			c.MarketAPI.BaseURL = ""
			c.Scanner.MarketAppIDs = []uint64{1}
		}, ""},
		{"nothing to track", func(c *Config) {
			c.Engine.Source = SourceIndexer
			c.MarketAPI.BaseURL = ""
		}, "scanner.market_app_ids"},
		{"refresh interval", func(c *Config) { c.Engine.RefreshInterval = 0 }, "engine.refresh_interval"},
		{"rate limit", func(c *Config) { c.Indexer.RateLimit = 0 }, "indexer.rate_limit"},
		{"max markets", func(c *Config) { c.Scanner.MaxMarkets = 0 }, "scanner.max_markets"},
		{"cache size", func(c *Config) { c.MarketAPI.CacheSize = 0 }, "market_api.cache_size"},
		{"dashboard port", func(c *Config) { c.Dashboard.Enabled = true; c.Dashboard.Port = 0 }, "dashboard.port"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
market_api:
  base_url: http://api.example
scanner:
  market_app_ids: [3004419219]
engine:
  refresh_interval: 3s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MarketAPI.BaseURL != "http://api.example" {
		t.Errorf("market_api.base_url = %q", cfg.MarketAPI.BaseURL)
	}
	if len(cfg.Scanner.MarketAppIDs) != 1 || cfg.Scanner.MarketAppIDs[0] != 3004419219 {
		t.Errorf("scanner.market_app_ids = %v", cfg.Scanner.MarketAppIDs)
	}
	if cfg.Engine.RefreshInterval != 3*time.Second {
		t.Errorf("engine.refresh_interval = %v, want 3s", cfg.Engine.RefreshInterval)
	}
	if cfg.Engine.Source != SourceAuto {
		t.Errorf("engine.source default = %q, want auto", cfg.Engine.Source)
	}
	if cfg.Indexer.BaseURL == "" {
		t.Error("indexer.base_url default not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadEnvTokenOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("indexer:\n  api_token: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOOK_INDEXER_API_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexer.APIToken != "from-env" {
		t.Errorf("api_token = %q, want from-env", cfg.Indexer.APIToken)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
