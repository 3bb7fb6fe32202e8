package ledger

import (
	"arcade-book/pkg/types"
)

// Global-state field names of an order application.
const (
	FieldSide           = "side"
	FieldPosition       = "position"
	FieldPrice          = "price"
	FieldQuantity       = "quantity"
	FieldQuantityFilled = "quantity_filled"
	FieldSlippage       = "slippage"
	FieldOwner          = ownerKey
	FieldMarketAppID    = "market_app_id"
)

// OrderFromState projects a decoded order application state into a RawOrder.
// Missing integer fields read as zero. It returns false when the state has
// neither a price nor a quantity, i.e. it is not an order.
func OrderFromState(appID uint64, st State) (types.RawOrder, bool) {
	if !st.Has(FieldPrice) && !st.Has(FieldQuantity) {
		return types.RawOrder{}, false
	}

	return types.RawOrder{
		AppID:          appID,
		Side:           types.Side(st.Uint(FieldSide)),
		Position:       types.Position(st.Uint(FieldPosition)),
		Price:          st.Uint(FieldPrice),
		Quantity:       st.Uint(FieldQuantity),
		QuantityFilled: st.Uint(FieldQuantityFilled),
		Slippage:       st.Uint(FieldSlippage),
		Owner:          st[FieldOwner].String(),
	}, true
}

// BelongsToMarket reports whether an order state references marketAppID.
// States without a market_app_id field are assumed to belong to it.
func BelongsToMarket(st State, marketAppID uint64) bool {
	v, ok := st[FieldMarketAppID]
	if !ok {
		return true
	}
	id, ok := v.Uint()
	return ok && id == marketAppID
}
