package detector

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
)

type captureSink struct {
	opps []domain.Opportunity
}

func (s *captureSink) Publish(_ context.Context, opp domain.Opportunity) {
	s.opps = append(s.opps, opp)
}

func newCrossForTest(cache *market.Cache, sink Sink) *Cross {
	return NewCross(CrossConfig{
		Cache:     cache,
		Sink:      sink,
		Symbols:   []string{"BTC/USDT"},
		Notional:  1000,
		FeeRate:   0.002,
		MinProfit: 0.3,
		Interval:  time.Second,
		Logger:    slog.Default(),
	})
}

func setQuote(t *testing.T, cache *market.Cache, exchange string, bid, ask float64) {
	t.Helper()
	require.NoError(t, cache.Set(domain.PriceQuote{
		Exchange:  exchange,
		Symbol:    "BTC/USDT",
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}))
}

func TestCross_DetectsSpread(t *testing.T) {
	cache := market.NewCache()
	sink := &captureSink{}
	d := newCrossForTest(cache, sink)

	setQuote(t, cache, "binance", 100, 101)
	setQuote(t, cache, "kraken", 103, 104)

	d.scan(context.Background())

	require.Len(t, sink.opps, 1)
	opp, ok := sink.opps[0].(domain.CrossOpportunity)
	require.True(t, ok)

	// Buy at the cheapest ask (binance 101), sell at the richest bid
	// (kraken 103). qty = 1000/101, gross = qty*2 = 19.80198...,
	// fees = 1000*0.002*2 = 4, net = 15.80198..., pct = 1.580198...
	assert.Equal(t, "binance", opp.BuyExchange)
	assert.Equal(t, "kraken", opp.SellExchange)
	assert.Equal(t, 101.0, opp.BuyPrice)
	assert.Equal(t, 103.0, opp.SellPrice)
	assert.InDelta(t, 1.5802, opp.ProfitPct, 0.0001)
	assert.InDelta(t, 15.802, opp.ProfitUSD, 0.001)
	assert.False(t, opp.DetectedAt.IsZero())
}

func TestCross_SkipsSingleVenue(t *testing.T) {
	cache := market.NewCache()
	sink := &captureSink{}
	d := newCrossForTest(cache, sink)

	setQuote(t, cache, "binance", 100, 101)

	d.scan(context.Background())
	assert.Empty(t, sink.opps)
}

func TestCross_SkipsSameVenueBestBidAndAsk(t *testing.T) {
	cache := market.NewCache()
	sink := &captureSink{}
	d := newCrossForTest(cache, sink)

	// kraken has both the cheapest ask and the richest bid.
	setQuote(t, cache, "binance", 95, 105)
	setQuote(t, cache, "kraken", 103, 104)

	d.scan(context.Background())
	assert.Empty(t, sink.opps)
}

func TestCross_SkipsCrossedOrUnprofitableSpread(t *testing.T) {
	cache := market.NewCache()
	sink := &captureSink{}
	d := newCrossForTest(cache, sink)

	// Best bid below best ask: no spread to capture.
	setQuote(t, cache, "binance", 100, 101)
	setQuote(t, cache, "kraken", 100.5, 102)

	d.scan(context.Background())
	assert.Empty(t, sink.opps)
}

func TestCross_SkipsBelowThreshold(t *testing.T) {
	cache := market.NewCache()
	sink := &captureSink{}
	d := newCrossForTest(cache, sink)

	// Spread covers fees but nets under 0.3%:
	// qty = 1000/101, gross = qty*0.44 = 4.356..., net = 0.356..., pct = 0.0356.
	setQuote(t, cache, "binance", 100, 101)
	setQuote(t, cache, "kraken", 101.44, 102)

	d.scan(context.Background())
	assert.Empty(t, sink.opps)
}
