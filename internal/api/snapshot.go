package api

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"arcade-book/internal/config"
	"arcade-book/internal/ledger"
	"arcade-book/internal/market"
	"arcade-book/pkg/types"
)

// ErrMarketNotFound is returned by providers for markets that do not exist.
var ErrMarketNotFound = errors.New("market not found")

// BookProvider provides access to the tracked books
type BookProvider interface {
	GetMarketsSnapshot() []MarketStatus
	// GetOrderBook returns the composed book of a market, building it on
	// demand when the market is not tracked.
	GetOrderBook(ctx context.Context, appID uint64) (types.OrderBook, error)
	GetScannerInfo() ScannerInfo
	DashboardEvents() <-chan DashboardEvent
}

// BuildSnapshot aggregates state from all components into a dashboard snapshot
func BuildSnapshot(provider BookProvider, cfg config.Config) DashboardSnapshot {
	markets := provider.GetMarketsSnapshot()
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].AppID < markets[j].AppID
	})

	scanner := provider.GetScannerInfo()
	scanner.MarketsTracked = len(markets)

	return DashboardSnapshot{
		Timestamp: time.Now(),
		Markets:   markets,
		Config:    NewConfigSummary(cfg),
		Scanner:   scanner,
	}
}

// NewMarketStatus summarizes a tracked book for the dashboard
func NewMarketStatus(info types.TrackedMarket, book *market.Book, staleAfter time.Duration) MarketStatus {
	side := book.Snapshot()
	return MarketStatus{
		AppID:       info.AppID,
		MarketID:    book.MarketID(),
		PlatformID:  info.MarketID,
		Title:       info.Title,
		Escrow:      ledger.ApplicationAddress(info.AppID),
		Yes:         NewOutcomeStatus(side.Yes),
		No:          NewOutcomeStatus(side.No),
		Source:      book.Source(),
		LastUpdated: book.LastUpdated(),
		IsStale:     book.IsStale(staleAfter),
	}
}

// NewOutcomeStatus computes top-of-book and depth for one outcome.
// Mid and spread stay zero unless both sides have levels.
func NewOutcomeStatus(side types.BookSide) OutcomeStatus {
	st := OutcomeStatus{
		BidLevels: len(side.Bids),
		AskLevels: len(side.Asks),
	}

	var bestBid, bestAsk int64
	for i, l := range side.Bids {
		st.BidDepth += l.Quantity
		if i == 0 || l.Price > bestBid {
			bestBid = l.Price
		}
	}
	for i, l := range side.Asks {
		st.AskDepth += l.Quantity
		if i == 0 || l.Price < bestAsk {
			bestAsk = l.Price
		}
	}

	if len(side.Bids) > 0 {
		st.BestBid = types.FromMicro(bestBid)
	}
	if len(side.Asks) > 0 {
		st.BestAsk = types.FromMicro(bestAsk)
	}
	if len(side.Bids) > 0 && len(side.Asks) > 0 {
		st.MidPrice = st.BestBid.Add(st.BestAsk).Div(decimal.NewFromInt(2))
		st.Spread = st.BestAsk.Sub(st.BestBid)
		st.Crossed = bestBid >= bestAsk
	}
	return st
}
