package market

import (
	"sync"

	"github.com/arbiterx/arbiter/internal/domain"
)

// BookCache stores the latest full depth snapshot per symbol for a single
// venue. The triangular scanner keeps one per exchange so a path can read
// all three of its legs at once.
type BookCache struct {
	mu    sync.RWMutex
	books map[string]domain.OrderBook
}

// NewBookCache creates an empty per-venue book cache.
func NewBookCache() *BookCache {
	return &BookCache{books: make(map[string]domain.OrderBook)}
}

// Set overwrites the snapshot for the book's symbol.
func (c *BookCache) Set(book domain.OrderBook) {
	c.mu.Lock()
	c.books[book.Symbol] = book
	c.mu.Unlock()
}

// Get returns the latest snapshot for symbol.
func (c *BookCache) Get(symbol string) (domain.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[symbol]
	return b, ok
}

// GetAll returns the latest snapshots for the given symbols and reports
// whether every one was present.
func (c *BookCache) GetAll(symbols ...string) ([]domain.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.OrderBook, 0, len(symbols))
	for _, s := range symbols {
		b, ok := c.books[s]
		if !ok {
			return nil, false
		}
		out = append(out, b)
	}
	return out, true
}
