package stream

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
)

// scriptedConn plays back a fixed sequence of WatchOrderBook results, then
// cancels the watch.
type scriptedConn struct {
	name   string
	script []func() (domain.OrderBook, error)
	call   int
	cancel context.CancelFunc
	closes int
}

func (c *scriptedConn) Name() string { return c.name }
func (c *scriptedConn) LoadMarkets(context.Context) (map[string]domain.Market, error) {
	return nil, nil
}
func (c *scriptedConn) WatchOrderBook(ctx context.Context, _ string) (domain.OrderBook, error) {
	if c.call >= len(c.script) {
		c.cancel()
		return domain.OrderBook{}, ctx.Err()
	}
	step := c.script[c.call]
	c.call++
	return step()
}
func (c *scriptedConn) FetchOrderBook(context.Context, string) (domain.OrderBook, error) {
	return domain.OrderBook{}, errors.New("no snapshot")
}
func (c *scriptedConn) CreateMarketBuyOrder(context.Context, string, float64) (domain.Order, error) {
	return domain.Order{}, errors.New("not trading")
}
func (c *scriptedConn) CreateMarketSellOrder(context.Context, string, float64) (domain.Order, error) {
	return domain.Order{}, errors.New("not trading")
}
func (c *scriptedConn) FetchBalance(context.Context) (map[string]float64, error) {
	return nil, nil
}
func (c *scriptedConn) FetchCurrencies(context.Context) (map[string]domain.CurrencyInfo, error) {
	return nil, nil
}
func (c *scriptedConn) FetchDepositAddress(context.Context, string, string) (domain.DepositAddress, error) {
	return domain.DepositAddress{}, errors.New("no address")
}
func (c *scriptedConn) Withdraw(context.Context, string, float64, domain.DepositAddress, string) (domain.Withdrawal, error) {
	return domain.Withdrawal{}, errors.New("no withdrawals")
}
func (c *scriptedConn) Close() error {
	c.closes++
	return nil
}

func validBook(bid, ask float64) domain.OrderBook {
	return domain.OrderBook{
		Symbol: "BTC/USDT",
		Bids:   []domain.PriceLevel{{Price: bid, Amount: 1}},
		Asks:   []domain.PriceLevel{{Price: ask, Amount: 1}},
	}
}

func TestWatch_CachesValidUpdatesAndDropsPartials(t *testing.T) {
	cache := market.NewCache()
	s := New(Config{
		Cache:          cache,
		ReconnectDelay: time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Logger:         slog.Default(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := &scriptedConn{name: "binance", cancel: cancel}
	conn.script = []func() (domain.OrderBook, error){
		func() (domain.OrderBook, error) { return validBook(100, 101), nil },
		// One-sided book must be dropped, not cached.
		func() (domain.OrderBook, error) {
			return domain.OrderBook{
				Symbol: "BTC/USDT",
				Bids:   []domain.PriceLevel{{Price: 99, Amount: 1}},
			}, nil
		},
		// Two-sided book with a zero best price is an invalid quote; it
		// must not overwrite the cache or reach the handler.
		func() (domain.OrderBook, error) { return validBook(0, 101), nil },
		func() (domain.OrderBook, error) { return validBook(100.5, 101.5), nil },
	}

	var handled []domain.OrderBook
	s.Watch(ctx, conn, "BTC/USDT", func(_ string, book domain.OrderBook) {
		handled = append(handled, book)
	})

	quote, ok := cache.Quote("binance", "BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 100.5, quote.Bid)
	assert.Equal(t, 101.5, quote.Ask)

	// The handler sees full snapshots only.
	require.Len(t, handled, 2)
	assert.Equal(t, 101.0, handled[0].BestAsk())
}

func TestWatch_ReconnectsAfterStreamError(t *testing.T) {
	cache := market.NewCache()
	s := New(Config{
		Cache:          cache,
		ReconnectDelay: time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Logger:         slog.Default(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := &scriptedConn{name: "kraken", cancel: cancel}
	conn.script = []func() (domain.OrderBook, error){
		func() (domain.OrderBook, error) { return domain.OrderBook{}, errors.New("connection reset") },
		func() (domain.OrderBook, error) { return validBook(200, 201), nil },
	}

	s.Watch(ctx, conn, "BTC/USDT", nil)

	// The connection is torn down before the retry.
	assert.GreaterOrEqual(t, conn.closes, 1)
	quote, ok := cache.Quote("kraken", "BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 200.0, quote.Bid)
}

func TestBackoff(t *testing.T) {
	s := New(Config{
		Cache:          market.NewCache(),
		ReconnectDelay: time.Second,
		MaxDelay:       10 * time.Second,
		Logger:         slog.Default(),
	})

	assert.Equal(t, time.Second, s.backoff(0))
	assert.Equal(t, 2*time.Second, s.backoff(1))
	assert.Equal(t, 4*time.Second, s.backoff(2))
	assert.Equal(t, 8*time.Second, s.backoff(3))
	assert.Equal(t, 10*time.Second, s.backoff(4))
	assert.Equal(t, 10*time.Second, s.backoff(20))
}
