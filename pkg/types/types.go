// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the service: order sides and
// outcome positions, resting orders decoded from the ledger, aggregated
// price levels, composed order books, and the JSON shapes returned by the
// ledger indexer and the market REST API. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// MicroUnit is the fixed-point denominator for prices and quantities.
// 1_000_000 micro-units = 1 unit (one dollar of price, one share of size).
const MicroUnit int64 = 1_000_000

// MicroDecimals is the exponent of MicroUnit.
const MicroDecimals int32 = 6

// FromMicro converts a micro-unit integer into a decimal value (e.g. 650000 → 0.65).
func FromMicro(v int64) decimal.Decimal {
	return decimal.New(v, -MicroDecimals)
}

// ToMicro converts a decimal value into micro-units, truncating extra precision.
func ToMicro(d decimal.Decimal) int64 {
	return d.Shift(MicroDecimals).IntPart()
}

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side is the direction of an on-chain order, as stored in its global state.
type Side uint64

const (
	Sell Side = 0
	Buy  Side = 1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "SIDE(" + strconv.FormatUint(uint64(s), 10) + ")"
	}
}

// Position is the outcome an order trades. The two outcomes of a binary
// market are complements: their prices sum to MicroUnit.
type Position uint64

const (
	No  Position = 0
	Yes Position = 1
)

func (p Position) String() string {
	switch p {
	case Yes:
		return "YES"
	case No:
		return "NO"
	default:
		return "POSITION(" + strconv.FormatUint(uint64(p), 10) + ")"
	}
}

// ————————————————————————————————————————————————————————————————————————
// Orders and books
// ————————————————————————————————————————————————————————————————————————

// RawOrder is one resting order decoded from an order application's global
// state. Price and quantities are micro-units. Immutable once decoded.
type RawOrder struct {
	AppID          uint64   `json:"app_id"`   // order application id
	Side           Side     `json:"side"`     // Buy or Sell
	Position       Position `json:"position"` // Yes or No
	Price          uint64   `json:"price"`    // e.g. 650000 = $0.65
	Quantity       uint64   `json:"quantity"` // total order size
	QuantityFilled uint64   `json:"quantity_filled"`
	Slippage       uint64   `json:"slippage"` // only zero-slippage orders are book-eligible
	Owner          string   `json:"owner"`    // address, or base64 of raw bytes
}

// Remaining returns the unfilled size, or 0 if the order is fully (or over) filled.
func (o RawOrder) Remaining() uint64 {
	if o.QuantityFilled >= o.Quantity {
		return 0
	}
	return o.Quantity - o.QuantityFilled
}

// PriceLevel is one aggregated depth entry: all remaining size at a price.
// Total is the notional value, (Price × Quantity) / MicroUnit.
type PriceLevel struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Total    int64 `json:"total"`
}

// PriceDecimal returns the level price in units (e.g. 0.65).
func (l PriceLevel) PriceDecimal() decimal.Decimal {
	return FromMicro(l.Price)
}

// BookSide is the bid and ask level lists for one outcome.
// Both lists are always non-nil so they serialize as [] rather than null.
type BookSide struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// MarketSide pairs the YES and NO books of one binary market.
type MarketSide struct {
	Yes BookSide `json:"yes"`
	No  BookSide `json:"no"`
}

// Outcome returns the book for one position.
func (m MarketSide) Outcome(p Position) BookSide {
	if p == No {
		return m.No
	}
	return m.Yes
}

// OrderBook maps a market identifier to its composed two-outcome book.
type OrderBook map[string]MarketSide

// EmptyBookSide returns a BookSide with empty, non-nil level lists.
func EmptyBookSide() BookSide {
	return BookSide{Bids: []PriceLevel{}, Asks: []PriceLevel{}}
}

// EmptyMarketSide returns a MarketSide with all four level lists present and empty.
func EmptyMarketSide() MarketSide {
	return MarketSide{Yes: EmptyBookSide(), No: EmptyBookSide()}
}

// ————————————————————————————————————————————————————————————————————————
// Ledger indexer
// ————————————————————————————————————————————————————————————————————————
// These structs map 1:1 to the Algorand indexer v2 JSON responses.

// TealValue is a typed global-state value. Type 1 = bytes (base64 in Bytes),
// type 2 = uint (in Uint).
type TealValue struct {
	Type  uint64 `json:"type"`
	Bytes string `json:"bytes"`
	Uint  uint64 `json:"uint"`
}

// TealKeyValue is one global-state entry. Key is base64 of the field name.
type TealKeyValue struct {
	Key   string    `json:"key"`
	Value TealValue `json:"value"`
}

// ApplicationParams holds the parameters of an application, including its
// global state.
type ApplicationParams struct {
	Creator     string         `json:"creator"`
	GlobalState []TealKeyValue `json:"global-state"`
}

// Application is an on-ledger program instance (one market or one order).
type Application struct {
	ID      uint64            `json:"id"`
	Deleted bool              `json:"deleted"`
	Params  ApplicationParams `json:"params"`
}

// ApplicationResponse is the response of GET /v2/applications/{id}.
type ApplicationResponse struct {
	Application  Application `json:"application"`
	CurrentRound uint64      `json:"current-round"`
}

// Account is the subset of an indexer account used here.
type Account struct {
	Address     string        `json:"address"`
	CreatedApps []Application `json:"created-apps"`
}

// AccountResponse is the response of GET /v2/accounts/{address}.
type AccountResponse struct {
	Account      Account `json:"account"`
	CurrentRound uint64  `json:"current-round"`
}

// ————————————————————————————————————————————————————————————————————————
// Market REST API
// ————————————————————————————————————————————————————————————————————————

// Market is the platform's market metadata. A market is active while it has
// a title and no resolution.
type Market struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Resolution   *int    `json:"resolution"`
	Image        string  `json:"image"`
	Volume       float64 `json:"volume"`
	MarketVolume float64 `json:"marketVolume"`
	Fees         float64 `json:"fees"`
	CreatedAt    float64 `json:"createdAt"`
	Rules        string  `json:"rules"`
	MarketAppID  uint64  `json:"marketAppId"`
}

// Active reports whether the market is open for trading.
func (m Market) Active() bool {
	return m.Resolution == nil && m.Title != ""
}

// MarketsResponse is the response of GET /api/get-markets. Null entries
// are possible and dropped by the client.
type MarketsResponse struct {
	Markets []*Market `json:"markets"`
}

// Match is an executed trade between two orders.
type Match struct {
	Quantity  int64   `json:"quantity"`
	CreatedAt float64 `json:"createdAt"`
	DataType  string  `json:"dataType"`
	Price     int64   `json:"price"`
	MarketID  string  `json:"marketId"`
}

// MarketDetail is the response of GET /api/get-market.
type MarketDetail struct {
	Market  Market  `json:"market"`
	Matches []Match `json:"matches"`
}

// Comment is a user comment on a market.
type Comment struct {
	Text         string `json:"text"`
	SenderWallet string `json:"senderWallet"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// CommentsResponse is the response of GET /api/get-comments.
type CommentsResponse struct {
	Comments []Comment `json:"comments"`
}

// WalletOrder is an open order of one wallet as reported by the REST API.
// Price and quantities are micro-units.
type WalletOrder struct {
	MarketID            string  `json:"marketId"`
	Title               string  `json:"title"`
	Image               string  `json:"image"`
	OrderSide           string  `json:"orderSide"`     // "buy" or "sell"
	OrderPosition       int     `json:"orderPosition"` // 1 = yes, 0 = no
	OrderPrice          float64 `json:"orderPrice"`
	OrderQuantity       float64 `json:"orderQuantity"`
	OrderQuantityFilled float64 `json:"orderQuantityFilled"`
}

// WalletMetrics is the trading performance of one wallet as reported by the
// REST API. Amounts are in USDC.
type WalletMetrics struct {
	GrossProfit           float64                   `json:"grossProfit"`
	GrossLoss             float64                   `json:"grossLoss"`
	NetProfit             float64                   `json:"netProfit"`
	TradingPL             float64                   `json:"tradingPL"`
	ClaimPnL              float64                   `json:"claimPnL"`
	ClaimLosses           float64                   `json:"claimLosses"`
	TotalClaimed          float64                   `json:"totalClaimed"`
	WinningTrades         int                       `json:"winningTrades"`
	LosingTrades          int                       `json:"losingTrades"`
	TotalTrades           int                       `json:"totalTrades"`
	AverageReturnPerTrade float64                   `json:"averageReturnPerTrade"`
	GrossAmountBought     float64                   `json:"grossAmountBought"`
	GrossAmountSold       float64                   `json:"grossAmountSold"`
	CurrentPortfolioValue float64                   `json:"currentPortfolioValue"`
	DailyMetrics          []DailyMetric             `json:"dailyMetrics"`
	CategoryMetrics       map[string]CategoryMetric `json:"categoryMetrics"`
}

// DailyMetric is one day of a wallet's activity.
type DailyMetric struct {
	Date       string  `json:"date"`
	Trades     int     `json:"trades"`
	Profit     float64 `json:"profit"`
	Loss       float64 `json:"loss"`
	BuyVolume  float64 `json:"buyVolume"`
	SellVolume float64 `json:"sellVolume"`
}

// CategoryMetric aggregates a wallet's trades in one market category.
type CategoryMetric struct {
	Trades      int     `json:"trades"`
	GrossProfit float64 `json:"grossProfit"`
	GrossLoss   float64 `json:"grossLoss"`
	NetProfit   float64 `json:"netProfit"`
}

// ————————————————————————————————————————————————————————————————————————
// Tracking
// ————————————————————————————————————————————————————————————————————————

// TrackedMarket is a market selected by the scanner for a live book.
type TrackedMarket struct {
	AppID    uint64  `json:"app_id"`    // market application id
	MarketID string  `json:"market_id"` // platform id, empty for static markets
	Title    string  `json:"title"`
	Volume   float64 `json:"volume"`
}
