// Package engine is the central orchestrator of the order-book service.
//
// It wires together all subsystems:
//
//  1. Scanner decides which markets to track (market API or static app ids).
//  2. Engine starts/stops one refresh goroutine per market (reconcileMarkets).
//  3. Each market gets a Book, rebuilt every engine.refresh_interval from the
//     configured source: decoded indexer orders run through ComposeBook, or the
//     market API's full orderbook run through NormalizeBook.
//  4. Every rebuilt book is persisted to the store and pushed to the dashboard.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arcade-book/internal/api"
	"arcade-book/internal/config"
	"arcade-book/internal/indexer"
	"arcade-book/internal/market"
	"arcade-book/internal/marketapi"
	"arcade-book/internal/store"
	"arcade-book/internal/telemetry"
	"arcade-book/pkg/types"
)

// initialRefreshLimit bounds concurrent first refreshes when many markets
// start at once; the indexer bucket still applies underneath.
const initialRefreshLimit = 8

// OrderSource reads decoded on-chain orders of a market.
type OrderSource interface {
	FetchOrders(ctx context.Context, marketAppID uint64) (*indexer.Snapshot, error)
}

// BookSource reads a server-composed book of a market.
type BookSource interface {
	GetFullOrderbook(ctx context.Context, marketAppID uint64) (types.OrderBook, error)
}

// marketSlot represents one tracked market.
// Each slot runs a dedicated refresh goroutine with its own book. appID is
// fixed at creation; info is rewritten by every scan and guarded by slotsMu.
type marketSlot struct {
	appID  uint64
	info   types.TrackedMarket
	book   *market.Book
	ctx    context.Context
	cancel context.CancelFunc
}

// Engine orchestrates all components of the service.
// It owns the lifecycle of all goroutines and manages market start/stop transitions.
type Engine struct {
	cfg     config.Config
	chain   OrderSource           // nil when engine.source is "api"
	rest    BookSource            // nil without a market API
	markets *marketapi.Client     // nil without a market API
	scanner *market.Scanner
	store   *store.Store
	logger  *slog.Logger

	// slots maps book key → tracked market. Protected by slotsMu.
	slots   map[string]*marketSlot
	slotsMu sync.RWMutex

	lastScan   api.ScannerInfo
	lastScanMu sync.RWMutex

	// dashboardEvents is an optional channel for sending events to the dashboard.
	// Nil if dashboard is disabled.
	dashboardEvents chan api.DashboardEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	var (
		chain   OrderSource
		rest    BookSource
		lister  market.MarketLister
		markets *marketapi.Client
	)

	if cfg.MarketAPI.BaseURL != "" {
		markets = marketapi.NewClient(cfg.MarketAPI, logger)
		rest = markets
		lister = markets
	}
	if cfg.Engine.Source != config.SourceAPI {
		chain = indexer.NewClient(cfg.Indexer, logger)
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	e := newEngine(cfg, chain, rest, market.NewScanner(cfg.Scanner, lister, logger), st, logger)
	e.markets = markets
	return e, nil
}

func newEngine(cfg config.Config, chain OrderSource, rest BookSource, scanner *market.Scanner, st *store.Store, logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	var dashEvents chan api.DashboardEvent
	if cfg.Dashboard.Enabled {
		dashEvents = make(chan api.DashboardEvent, 100)
	}

	return &Engine{
		cfg:             cfg,
		chain:           chain,
		rest:            rest,
		scanner:         scanner,
		store:           st,
		logger:          logger.With("component", "engine"),
		slots:           make(map[string]*marketSlot),
		dashboardEvents: dashEvents,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start launches the scanner and the main market management loop.
func (e *Engine) Start() error {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.scanner.Run(e.ctx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.manageMarkets()
	}()

	e.logger.Info("engine started", "source", e.cfg.Engine.Source)
	return nil
}

// Stop cancels all goroutines, waits for them and closes resources.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	e.cancel()
	e.wg.Wait()
	e.store.Close()

	e.logger.Info("shutdown complete")
}

// manageMarkets is the main engine loop: every scanner result is reconciled
// against the running slots.
func (e *Engine) manageMarkets() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case result := <-e.scanner.Results():
			e.reconcileMarkets(result)
		}
	}
}

// reconcileMarkets diffs the desired market set (from scanner) against currently
// running markets. Stops markets no longer desired, starts newly discovered ones.
// New markets get their first refresh concurrently before their loops start.
func (e *Engine) reconcileMarkets(result market.ScanResult) {
	desired := make(map[string]types.TrackedMarket, len(result.Markets))
	for _, m := range result.Markets {
		desired[market.MarketKey(m.AppID)] = m
	}

	var started []*marketSlot
	var startedIDs, stoppedIDs []uint64

	e.slotsMu.Lock()
	for id, slot := range e.slots {
		if _, ok := desired[id]; !ok {
			stoppedIDs = append(stoppedIDs, slot.info.AppID)
			e.stopMarketLocked(id)
		}
	}
	for id, info := range desired {
		if slot, ok := e.slots[id]; ok {
			slot.info = info // title/volume may have changed
			continue
		}
		slot := e.newSlotLocked(info)
		started = append(started, slot)
		startedIDs = append(startedIDs, info.AppID)
	}
	tracked := len(e.slots)
	e.slotsMu.Unlock()

	var g errgroup.Group
	g.SetLimit(initialRefreshLimit)
	for _, slot := range started {
		slot := slot
		g.Go(func() error {
			if err := e.refresh(slot); err != nil && slot.ctx.Err() == nil {
				e.logger.Warn("initial refresh failed", "market", slot.appID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, slot := range started {
		slot := slot
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runSlot(slot)
		}()
	}

	e.lastScanMu.Lock()
	e.lastScan = api.ScannerInfo{LastScanTime: result.ScannedAt, MarketsSelected: len(result.Markets)}
	e.lastScanMu.Unlock()

	if len(startedIDs) > 0 || len(stoppedIDs) > 0 {
		e.logger.Info("tracked markets changed",
			"started", len(startedIDs), "stopped", len(stoppedIDs), "tracked", tracked)
		e.emitDashboardEvent(api.NewScanEvent(startedIDs, stoppedIDs, tracked))
	}
}

// newSlotLocked registers a market and restores its last saved book.
func (e *Engine) newSlotLocked(info types.TrackedMarket) *marketSlot {
	book := market.NewBook(info.AppID)

	if side, err := e.store.LoadBook(book.MarketID()); err != nil {
		e.logger.Warn("failed to restore book", "market", info.AppID, "error", err)
	} else if side != nil {
		book.Restore(*side)
	}

	ctx, cancel := context.WithCancel(e.ctx)
	slot := &marketSlot{appID: info.AppID, info: info, book: book, ctx: ctx, cancel: cancel}
	e.slots[book.MarketID()] = slot

	e.logger.Info("market started", "market", info.AppID, "title", info.Title, "volume", info.Volume)
	return slot
}

func (e *Engine) stopMarketLocked(id string) {
	slot, ok := e.slots[id]
	if !ok {
		return
	}
	slot.cancel()
	delete(e.slots, id)

	e.logger.Info("market stopped", "market", slot.info.AppID, "title", slot.info.Title)
}

// runSlot refreshes one market every engine.refresh_interval until cancelled.
func (e *Engine) runSlot(slot *marketSlot) {
	ticker := time.NewTicker(e.cfg.Engine.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-slot.ctx.Done():
			return
		case <-ticker.C:
			if err := e.refresh(slot); err != nil && slot.ctx.Err() == nil {
				e.logger.Warn("refresh failed", "market", slot.appID, "error", err)
			}
		}
	}
}

// refresh rebuilds one book. On failure the previous book stays served.
func (e *Engine) refresh(slot *marketSlot) error {
	ctx, cancel := context.WithTimeout(slot.ctx, e.cfg.Engine.FetchTimeout)
	defer cancel()

	start := time.Now()
	side, source, err := e.buildBook(ctx, slot.appID)
	telemetry.BookRefreshDuration.Observe(time.Since(start).Seconds())

	id := slot.book.MarketID()
	if err != nil {
		telemetry.BookRefreshErrorCounter.WithLabelValues(id, source).Inc()
		e.emitDashboardEvent(api.NewRefreshErrorEvent(id, slot.appID, source, err))
		return err
	}

	slot.book.Apply(side, source)
	telemetry.BookRefreshCounter.WithLabelValues(id, source).Inc()

	if err := e.store.SaveBook(id, side); err != nil {
		e.logger.Error("failed to save book", "market", slot.appID, "error", err)
	}
	e.emitDashboardEvent(api.NewBookUpdateEvent(id, slot.appID, source, side))
	return nil
}

// buildBook produces the composed book of a market from the configured source.
// In auto mode an indexer failure falls back to the market API, except when
// the market does not exist on chain.
func (e *Engine) buildBook(ctx context.Context, appID uint64) (types.MarketSide, string, error) {
	switch e.cfg.Engine.Source {
	case config.SourceIndexer:
		side, err := e.fromIndexer(ctx, appID)
		return side, config.SourceIndexer, err
	case config.SourceAPI:
		side, err := e.fromAPI(ctx, appID)
		return side, config.SourceAPI, err
	}

	side, err := e.fromIndexer(ctx, appID)
	if err == nil {
		return side, config.SourceIndexer, nil
	}
	if e.rest == nil || errors.Is(err, api.ErrMarketNotFound) || ctx.Err() != nil {
		return side, config.SourceIndexer, err
	}

	e.logger.Debug("indexer refresh failed, using market api", "market", appID, "error", err)
	side, apiErr := e.fromAPI(ctx, appID)
	if apiErr != nil {
		return side, config.SourceAPI, errors.Join(err, apiErr)
	}
	return side, config.SourceAPI, nil
}

func (e *Engine) fromIndexer(ctx context.Context, appID uint64) (types.MarketSide, error) {
	if e.chain == nil {
		return types.EmptyMarketSide(), fmt.Errorf("indexer source is not configured")
	}

	snap, err := e.chain.FetchOrders(ctx, appID)
	if errors.Is(err, indexer.ErrNotFound) {
		return types.EmptyMarketSide(), fmt.Errorf("%w: app %d", api.ErrMarketNotFound, appID)
	}
	if err != nil {
		return types.EmptyMarketSide(), err
	}

	key := market.MarketKey(appID)
	return market.ComposeBook(key, snap.Orders)[key], nil
}

func (e *Engine) fromAPI(ctx context.Context, appID uint64) (types.MarketSide, error) {
	if e.rest == nil {
		return types.EmptyMarketSide(), fmt.Errorf("market api source is not configured")
	}

	served, err := e.rest.GetFullOrderbook(ctx, appID)
	if err != nil {
		return types.EmptyMarketSide(), err
	}

	key := market.MarketKey(appID)
	return market.NormalizeBook(types.OrderBook{key: pickSide(served, key)})[key], nil
}

// pickSide finds a market's entry in a served book. Some responses key the
// book by platform id instead of app id; a single entry is taken as is.
func pickSide(book types.OrderBook, key string) types.MarketSide {
	if side, ok := book[key]; ok {
		return side
	}
	if len(book) == 1 {
		for _, side := range book {
			return side
		}
	}
	return types.EmptyMarketSide()
}

// DashboardEvents returns the dashboard event channel (may be nil).
func (e *Engine) DashboardEvents() <-chan api.DashboardEvent {
	return e.dashboardEvents
}

// MarketData returns the market API client for the API server, or nil.
func (e *Engine) MarketData() api.MarketDataSource {
	if e.markets == nil {
		return nil
	}
	return e.markets
}

// GetMarketsSnapshot returns current state of all tracked markets for dashboard.
func (e *Engine) GetMarketsSnapshot() []api.MarketStatus {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()

	result := make([]api.MarketStatus, 0, len(e.slots))
	for _, slot := range e.slots {
		result = append(result, api.NewMarketStatus(slot.info, slot.book, e.cfg.Engine.StaleBookTimeout))
	}
	return result
}

// GetOrderBook returns the book of a tracked market, or builds one on demand
// for markets the engine does not track.
func (e *Engine) GetOrderBook(ctx context.Context, appID uint64) (types.OrderBook, error) {
	key := market.MarketKey(appID)

	e.slotsMu.RLock()
	slot, ok := e.slots[key]
	e.slotsMu.RUnlock()
	if ok && slot.book.Source() != "" {
		return types.OrderBook{key: slot.book.Snapshot()}, nil
	}

	side, _, err := e.buildBook(ctx, appID)
	if err != nil {
		return nil, err
	}
	return types.OrderBook{key: side}, nil
}

// GetScannerInfo returns the outcome of the last scan.
func (e *Engine) GetScannerInfo() api.ScannerInfo {
	e.lastScanMu.RLock()
	defer e.lastScanMu.RUnlock()
	return e.lastScan
}

// emitDashboardEvent sends an event to the dashboard (non-blocking).
func (e *Engine) emitDashboardEvent(evt api.DashboardEvent) {
	if e.dashboardEvents == nil {
		return
	}

	select {
	case e.dashboardEvents <- evt:
	default:
		// Dashboard can't keep up, drop event
	}
}
