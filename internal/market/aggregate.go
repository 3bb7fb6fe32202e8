package market

import (
	"math"
	"math/big"
	"sort"

	"arcade-book/pkg/types"
)

// Aggregate collapses orders into one price level per distinct price,
// summing remaining size. Orders with a zero price or nothing left to fill
// are skipped, so every emitted level has positive price and quantity.
// The output is unordered; use SortBids / SortAsks for presentation.
func Aggregate(orders []types.RawOrder) []types.PriceLevel {
	depth := make(map[uint64]uint64)
	for _, o := range orders {
		if o.Price == 0 {
			continue
		}
		remaining := o.Remaining()
		if remaining == 0 {
			continue
		}
		depth[o.Price] = addSaturating(depth[o.Price], remaining)
	}

	levels := make([]types.PriceLevel, 0, len(depth))
	for price, qty := range depth {
		levels = append(levels, types.PriceLevel{
			Price:    clampInt64(price),
			Quantity: clampInt64(qty),
			Total:    Notional(price, qty),
		})
	}
	return levels
}

// Notional returns (price × quantity) / MicroUnit, truncated. The product is
// computed without overflow and the result saturates at MaxInt64.
func Notional(price, quantity uint64) int64 {
	p := new(big.Int).SetUint64(price)
	p.Mul(p, new(big.Int).SetUint64(quantity))
	p.Quo(p, big.NewInt(types.MicroUnit))
	if !p.IsInt64() {
		return math.MaxInt64
	}
	return p.Int64()
}

// SortBids orders levels best-first for bids: descending by price.
func SortBids(levels []types.PriceLevel) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
}

// SortAsks orders levels best-first for asks: ascending by price.
func SortAsks(levels []types.PriceLevel) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
