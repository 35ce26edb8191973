package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

func quote(exchange, symbol string, bid, ask float64) domain.PriceQuote {
	return domain.PriceQuote{
		Exchange:  exchange,
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}
}

func TestCache_RejectsHalfPopulatedQuotes(t *testing.T) {
	c := NewCache()

	assert.ErrorIs(t, c.Set(quote("binance", "BTC/USDT", 0, 100)), domain.ErrInvalidQuote)
	assert.ErrorIs(t, c.Set(quote("binance", "BTC/USDT", 100, 0)), domain.ErrInvalidQuote)
	assert.Equal(t, 0, c.Len())

	_, ok := c.Quote("binance", "BTC/USDT")
	assert.False(t, ok)
}

func TestCache_LastWriteWins(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set(quote("binance", "BTC/USDT", 100, 101)))
	require.NoError(t, c.Set(quote("binance", "BTC/USDT", 102, 103)))

	q, ok := c.Quote("binance", "BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 102.0, q.Bid)
	assert.Equal(t, 103.0, q.Ask)
	assert.Equal(t, 1, c.Len())
}

func TestCache_QuotesForSymbol(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set(quote("binance", "BTC/USDT", 100, 101)))
	require.NoError(t, c.Set(quote("kraken", "BTC/USDT", 99, 100)))
	require.NoError(t, c.Set(quote("binance", "ETH/USDT", 10, 11)))

	quotes := c.QuotesForSymbol("BTC/USDT")
	assert.Len(t, quotes, 2)
	for _, q := range quotes {
		assert.Equal(t, "BTC/USDT", q.Symbol)
	}

	assert.Empty(t, c.QuotesForSymbol("XRP/USDT"))
}

func TestBookCache_GetAll(t *testing.T) {
	c := NewBookCache()

	c.Set(domain.OrderBook{
		Symbol: "BTC/USDT",
		Bids:   []domain.PriceLevel{{Price: 100, Amount: 1}},
		Asks:   []domain.PriceLevel{{Price: 101, Amount: 1}},
	})
	c.Set(domain.OrderBook{
		Symbol: "ETH/BTC",
		Bids:   []domain.PriceLevel{{Price: 0.05, Amount: 10}},
		Asks:   []domain.PriceLevel{{Price: 0.051, Amount: 10}},
	})

	_, ok := c.GetAll("BTC/USDT", "ETH/BTC", "ETH/USDT")
	assert.False(t, ok, "missing symbol must fail the batch")

	books, ok := c.GetAll("BTC/USDT", "ETH/BTC")
	require.True(t, ok)
	require.Len(t, books, 2)
	assert.Equal(t, "BTC/USDT", books[0].Symbol)
	assert.Equal(t, "ETH/BTC", books[1].Symbol)
}
