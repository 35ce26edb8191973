package domain

import "time"

// PriceLevel is a single price+quantity entry in an order-book ladder.
type PriceLevel struct {
	Price  float64
	Amount float64
}

// OrderBook is a point-in-time depth snapshot for one symbol on one venue.
type OrderBook struct {
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// HasDepth reports whether both sides of the book carry at least one level.
func (b OrderBook) HasDepth() bool {
	return len(b.Bids) > 0 && len(b.Asks) > 0
}

// BestBid returns the highest bid, or zero when the bid ladder is empty.
func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask, or zero when the ask ladder is empty.
func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// PriceQuote is the latest top-of-book for one (exchange, symbol) pair. A
// quote is only ever stored with both sides populated; half-populated
// updates are dropped at the stream boundary.
type PriceQuote struct {
	Exchange  string
	Symbol    string
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// Valid reports whether both sides of the quote are populated.
func (q PriceQuote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0
}

// Market is venue market metadata used for triangular path generation.
type Market struct {
	Symbol string // "BASE/QUOTE"
	Base   string
	Quote  string
	Spot   bool
	Active bool
}
