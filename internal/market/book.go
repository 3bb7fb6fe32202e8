// Package market builds and holds order books for binary markets.
//
// The book pipeline turns decoded on-chain orders into display depth:
//   - SelectOpenOrders keeps firm, unfilled orders for one side/outcome
//   - Aggregate collapses them into one level per price
//   - BuildMarketData runs both for all four sides of a market
//   - SynthesizeComplement adds the depth implied across YES and NO
//
// Book holds the latest composed result for one market. It is
// concurrency-safe (RWMutex protected) and provides derived values like
// MidPrice and BestBidAsk for the API layer. Scanner discovers which markets
// to track.
package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"arcade-book/pkg/types"
)

// Book maintains the latest composed order book for one market.
type Book struct {
	mu       sync.RWMutex
	marketID string           // book key (decimal market app id)
	appID    uint64           // market application id
	side     types.MarketSide // YES + NO books, bids desc / asks asc
	source   string           // "indexer" or "api"
	updated  time.Time        // last time a book was applied
}

// NewBook creates an empty book for a market application.
func NewBook(appID uint64) *Book {
	return &Book{
		marketID: MarketKey(appID),
		appID:    appID,
		side:     types.EmptyMarketSide(),
	}
}

// MarketID returns the book key.
func (b *Book) MarketID() string { return b.marketID }

// AppID returns the market application id.
func (b *Book) AppID() uint64 { return b.appID }

// Apply replaces the book with a freshly composed one.
func (b *Book) Apply(side types.MarketSide, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.side = fillEmpty(side)
	b.source = source
	b.updated = time.Now()
}

// Restore loads a persisted book without marking it fresh, so it is served
// as stale until the first successful refresh.
func (b *Book) Restore(side types.MarketSide) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.side = fillEmpty(side)
	b.source = "store"
}

// Snapshot returns a copy of the current book.
func (b *Book) Snapshot() types.MarketSide {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneMarketSide(b.side)
}

// Source returns where the current book came from.
func (b *Book) Source() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source
}

// BestBidAsk returns the best bid and ask of one outcome, in units.
// ok is false if either side is empty.
func (b *Book) BestBidAsk(pos types.Position) (bid, ask decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	side := b.side.Outcome(pos)
	if len(side.Bids) == 0 || len(side.Asks) == 0 {
		return decimal.Zero, decimal.Zero, false
	}

	best := side.Bids[0].Price
	for _, l := range side.Bids[1:] {
		if l.Price > best {
			best = l.Price
		}
	}
	lowest := side.Asks[0].Price
	for _, l := range side.Asks[1:] {
		if l.Price < lowest {
			lowest = l.Price
		}
	}
	return types.FromMicro(best), types.FromMicro(lowest), true
}

// MidPrice returns (bestBid + bestAsk) / 2 for one outcome.
func (b *Book) MidPrice(pos types.Position) (decimal.Decimal, bool) {
	bid, ask, ok := b.BestBidAsk(pos)
	if !ok {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// Spread returns bestAsk − bestBid for one outcome.
func (b *Book) Spread(pos types.Position) (decimal.Decimal, bool) {
	bid, ask, ok := b.BestBidAsk(pos)
	if !ok {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

// IsStale returns true if the book hasn't been refreshed within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}

// LastUpdated returns the timestamp of the last refresh.
func (b *Book) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}
