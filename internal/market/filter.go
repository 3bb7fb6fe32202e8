package market

import "arcade-book/pkg/types"

// SelectOpenOrders returns the orders on one side of one outcome that still
// have unfilled size and carry no slippage tolerance. Slippage-tolerant
// orders execute at a conditional price and are not shown as depth.
// The input order is preserved and the pool is not modified.
func SelectOpenOrders(pool []types.RawOrder, side types.Side, pos types.Position) []types.RawOrder {
	out := make([]types.RawOrder, 0)
	for _, o := range pool {
		if o.Side != side || o.Position != pos {
			continue
		}
		if o.Quantity <= o.QuantityFilled || o.Slippage != 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}
