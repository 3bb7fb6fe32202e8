// bookd serves live order books for binary prediction markets on Algorand.
//
// Architecture:
//
//	main.go             : entry point: loads config, starts engine + API, waits for SIGINT/SIGTERM
//	engine/engine.go    : orchestrator: scanner → per-market refresh loops → store + dashboard
//	market/scanner.go   : picks markets to track (market API ranked by volume, or static app ids)
//	market/compose.go   : filter, aggregate and complement synthesis of raw orders into a book
//	market/book.go      : latest composed book per market with top-of-book helpers
//	ledger/             : application address derivation + global state decoding
//	indexer/client.go   : indexer REST client (applications, accounts, order discovery)
//	marketapi/client.go : platform REST client (markets, trades, comments, wallet orders)
//	store/store.go      : JSON file persistence of the last book (survives restarts)
//	api/                : HTTP + WebSocket server, prometheus /metrics
//
// How a book is built:
//
//	Every resting order is its own application created by the market's
//	escrow account. Its global state carries side, position, price and
//	quantity. Open, zero-slippage orders are grouped per outcome and price,
//	and each YES level implies the mirrored NO level at 1 − price (and back),
//	so both outcome books show the full depth available to a taker.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arcade-book/internal/api"
	"arcade-book/internal/config"
	"arcade-book/internal/engine"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BOOK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	// Create and start engine
	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	// Start API server if enabled
	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(*cfg, eng, eng.MarketData(), logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("order book service started",
		"source", cfg.Engine.Source,
		"refresh_interval", cfg.Engine.RefreshInterval,
		"static_markets", len(cfg.Scanner.MarketAppIDs),
		"max_markets", cfg.Scanner.MaxMarkets,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	// Stop API first
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop api server", "error", err)
		}
	}

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
