package market

import (
	"strconv"

	"arcade-book/pkg/types"
)

// DefaultDenominator is the price of a resolved outcome share. YES and NO
// prices of a binary market sum to it.
const DefaultDenominator int64 = types.MicroUnit

// BuildMarketData splits an order pool into the four sides of a binary
// market and aggregates each into price levels. All four lists are present
// (possibly empty) even when the pool is empty.
func BuildMarketData(orders []types.RawOrder) types.MarketSide {
	return types.MarketSide{
		Yes: types.BookSide{
			Bids: Aggregate(SelectOpenOrders(orders, types.Buy, types.Yes)),
			Asks: Aggregate(SelectOpenOrders(orders, types.Sell, types.Yes)),
		},
		No: types.BookSide{
			Bids: Aggregate(SelectOpenOrders(orders, types.Buy, types.No)),
			Asks: Aggregate(SelectOpenOrders(orders, types.Sell, types.No)),
		},
	}
}

// SynthesizeComplement adds the liquidity implied across outcomes: a YES bid
// at P is a standing offer to sell NO at denominator−P, and so on for the
// other three directions. Passes run in a fixed order and each sees the
// levels appended by the ones before it:
//
//	yes bids → no asks
//	yes asks → no bids
//	no bids  → yes asks
//	no asks  → yes bids
//
// A level is only appended when the target list has no level at that price,
// which makes the transform idempotent. Existing levels are never changed or
// removed. The input book is not modified.
func SynthesizeComplement(book types.OrderBook, denominator int64) types.OrderBook {
	out := make(types.OrderBook, len(book))
	for id, m := range book {
		m = cloneMarketSide(m)
		m.No.Asks = implyLevels(m.Yes.Bids, m.No.Asks, denominator)
		m.No.Bids = implyLevels(m.Yes.Asks, m.No.Bids, denominator)
		m.Yes.Asks = implyLevels(m.No.Bids, m.Yes.Asks, denominator)
		m.Yes.Bids = implyLevels(m.No.Asks, m.Yes.Bids, denominator)
		out[id] = m
	}
	return out
}

// implyLevels appends to target the complement of every source level whose
// complement price is not yet in target.
func implyLevels(source, target []types.PriceLevel, denominator int64) []types.PriceLevel {
	seen := make(map[int64]struct{}, len(target)+len(source))
	for _, l := range target {
		seen[l.Price] = struct{}{}
	}

	for _, l := range source {
		price := denominator - l.Price
		if price <= 0 {
			continue
		}
		if _, ok := seen[price]; ok {
			continue
		}
		target = append(target, types.PriceLevel{Price: price, Quantity: l.Quantity, Total: l.Total})
		seen[price] = struct{}{}
	}
	return target
}

// ComposeBook builds, synthesizes and sorts the book of one market from its
// order pool. The result has a single entry keyed by marketID.
func ComposeBook(marketID string, orders []types.RawOrder) types.OrderBook {
	return NormalizeBook(types.OrderBook{marketID: BuildMarketData(orders)})
}

// NormalizeBook prepares a book for display: nil level lists become empty,
// complementary levels are synthesized, bids are sorted descending and asks
// ascending. It accepts books composed locally and books fetched from the
// market API alike.
func NormalizeBook(book types.OrderBook) types.OrderBook {
	filled := make(types.OrderBook, len(book))
	for id, m := range book {
		filled[id] = fillEmpty(m)
	}

	out := SynthesizeComplement(filled, DefaultDenominator)
	for _, m := range out {
		SortBids(m.Yes.Bids)
		SortAsks(m.Yes.Asks)
		SortBids(m.No.Bids)
		SortAsks(m.No.Asks)
	}
	return out
}

// MarketKey is the book key used for a market application id.
func MarketKey(appID uint64) string {
	return strconv.FormatUint(appID, 10)
}

func cloneMarketSide(m types.MarketSide) types.MarketSide {
	return types.MarketSide{
		Yes: types.BookSide{Bids: cloneLevels(m.Yes.Bids), Asks: cloneLevels(m.Yes.Asks)},
		No:  types.BookSide{Bids: cloneLevels(m.No.Bids), Asks: cloneLevels(m.No.Asks)},
	}
}

func cloneLevels(levels []types.PriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, len(levels))
	copy(out, levels)
	return out
}

func fillEmpty(m types.MarketSide) types.MarketSide {
	for _, l := range []*[]types.PriceLevel{&m.Yes.Bids, &m.Yes.Asks, &m.No.Bids, &m.No.Asks} {
		if *l == nil {
			*l = []types.PriceLevel{}
		}
	}
	return m
}
