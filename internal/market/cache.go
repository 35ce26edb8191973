// Package market holds the in-process market-data tables: the latest
// top-of-book per (exchange, symbol) and full depth snapshots per venue.
// Each table has exactly one writer role (its stream task) and many readers.
package market

import (
	"sync"

	"github.com/arbiterx/arbiter/internal/domain"
)

type quoteKey struct {
	exchange string
	symbol   string
}

// Cache is the in-memory price table. Writes are last-write-wins per
// (exchange, symbol); a quote is stored with both sides populated or not at
// all.
type Cache struct {
	mu     sync.RWMutex
	quotes map[quoteKey]domain.PriceQuote
}

// NewCache creates an empty price cache.
func NewCache() *Cache {
	return &Cache{quotes: make(map[quoteKey]domain.PriceQuote)}
}

// Set overwrites the quote for (exchange, symbol). Half-populated quotes
// are rejected with ErrInvalidQuote so the table never holds one.
func (c *Cache) Set(q domain.PriceQuote) error {
	if !q.Valid() {
		return domain.ErrInvalidQuote
	}
	c.mu.Lock()
	c.quotes[quoteKey{q.Exchange, q.Symbol}] = q
	c.mu.Unlock()
	return nil
}

// Quote returns the latest quote for (exchange, symbol).
func (c *Cache) Quote(exchange, symbol string) (domain.PriceQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[quoteKey{exchange, symbol}]
	return q, ok
}

// QuotesForSymbol returns every venue's quote for symbol.
func (c *Cache) QuotesForSymbol(symbol string) []domain.PriceQuote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.PriceQuote
	for k, q := range c.quotes {
		if k.symbol == symbol {
			out = append(out, q)
		}
	}
	return out
}

// Len returns the number of stored quotes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
