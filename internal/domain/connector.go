package domain

import "context"

// OrderStatus is the venue-reported state of a placed order.
type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Fee is the venue-reported fee on an order or withdrawal.
type Fee struct {
	Cost     float64
	Currency string
}

// Order is the venue-reported result of a market order.
type Order struct {
	ID      string
	Symbol  string
	Status  OrderStatus
	Filled  float64 // base quantity filled
	Cost    float64 // quote notional spent/received
	Average float64 // volume-weighted fill price
	Fee     Fee
}

// Terminal reports whether the order reached a filled/closed end state.
func (o Order) Terminal() bool {
	return o.Status == OrderStatusClosed || o.Status == OrderStatusFilled
}

// NetworkInfo describes one blockchain network a venue supports for an
// asset.
type NetworkInfo struct {
	Fee float64 // published withdrawal fee, asset units
}

// CurrencyInfo is per-asset metadata from a venue's currency listing.
type CurrencyInfo struct {
	Networks map[string]NetworkInfo
}

// DepositAddress is a venue deposit destination for a specific network.
type DepositAddress struct {
	Address string
	Tag     string // memo/tag, empty when the network does not use one
}

// Withdrawal is the venue-reported result of a withdrawal request.
type Withdrawal struct {
	ID  string
	Fee Fee
}

// ExchangeConnector is the per-venue trading capability consumed by the
// engine. Implementations live outside this module and are resolved via the
// connector registry at startup. All blocking calls take a context;
// WatchOrderBook blocks until the next stream update.
type ExchangeConnector interface {
	// Name returns the venue identifier the connector was registered under.
	Name() string

	// LoadMarkets returns the venue's market listing keyed by symbol.
	LoadMarkets(ctx context.Context) (map[string]Market, error)

	// WatchOrderBook blocks until the next order-book update for symbol.
	WatchOrderBook(ctx context.Context, symbol string) (OrderBook, error)

	// FetchOrderBook returns a point-in-time depth snapshot for symbol.
	FetchOrderBook(ctx context.Context, symbol string) (OrderBook, error)

	// CreateMarketBuyOrder buys baseQty of the base asset at market.
	CreateMarketBuyOrder(ctx context.Context, symbol string, baseQty float64) (Order, error)

	// CreateMarketSellOrder sells baseQty of the base asset at market.
	CreateMarketSellOrder(ctx context.Context, symbol string, baseQty float64) (Order, error)

	// FetchBalance returns total balances per asset.
	FetchBalance(ctx context.Context) (map[string]float64, error)

	// FetchCurrencies returns per-asset network metadata.
	FetchCurrencies(ctx context.Context) (map[string]CurrencyInfo, error)

	// FetchDepositAddress returns a deposit destination for asset on the
	// given network.
	FetchDepositAddress(ctx context.Context, asset, network string) (DepositAddress, error)

	// Withdraw sends amount of asset to the given destination over network.
	Withdraw(ctx context.Context, asset string, amount float64, dest DepositAddress, network string) (Withdrawal, error)

	// Close releases connection resources. Safe to call more than once.
	Close() error
}

// CostBuyer is implemented by connectors that support quote-cost-denominated
// market buys. Execution paths prefer it when available and fall back to a
// quantity-denominated order otherwise.
type CostBuyer interface {
	CreateMarketBuyOrderWithCost(ctx context.Context, symbol string, quoteCost float64) (Order, error)
}
