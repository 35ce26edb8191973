package slippage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

func book(bids, asks []domain.PriceLevel) domain.OrderBook {
	return domain.OrderBook{Symbol: "BTC/USDT", Bids: bids, Asks: asks}
}

func TestEstimate_BuyWalksAsks(t *testing.T) {
	b := book(
		[]domain.PriceLevel{{Price: 99, Amount: 10}},
		[]domain.PriceLevel{
			{Price: 100, Amount: 1}, // 100 quote available
			{Price: 110, Amount: 1}, // 110 quote available
		},
	)

	// Budget 155: fills 1 @ 100, then 0.5 @ 110.
	// VWAP = 155 / 1.5 = 103.333..., slippage = 3.333.../100.
	slip, err := Estimate(b, Buy, decimal.NewFromInt(155))
	require.NoError(t, err)

	want := decimal.RequireFromString("0.0333333333333333")
	assert.True(t, slip.Sub(want).Abs().LessThan(decimal.RequireFromString("0.000001")),
		"slippage=%s want~%s", slip, want)
}

func TestEstimate_SellWalksBids(t *testing.T) {
	b := book(
		[]domain.PriceLevel{
			{Price: 100, Amount: 1},
			{Price: 90, Amount: 2},
		},
		[]domain.PriceLevel{{Price: 101, Amount: 10}},
	)

	// Sell 2 base: 1 @ 100 + 1 @ 90, VWAP = 95, slippage = 5/100.
	slip, err := Estimate(b, Sell, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, slip.Equal(decimal.RequireFromString("0.05")), "slippage=%s", slip)
}

func TestEstimate_SingleLevelHasNoSlippage(t *testing.T) {
	b := book(
		[]domain.PriceLevel{{Price: 100, Amount: 5}},
		[]domain.PriceLevel{{Price: 101, Amount: 5}},
	)

	slip, err := Estimate(b, Buy, decimal.NewFromInt(101))
	require.NoError(t, err)
	assert.True(t, slip.IsZero(), "slippage=%s", slip)

	slip, err = Estimate(b, Sell, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, slip.IsZero(), "slippage=%s", slip)
}

func TestEstimate_DepthExhausted(t *testing.T) {
	b := book(
		[]domain.PriceLevel{{Price: 100, Amount: 1}},
		[]domain.PriceLevel{{Price: 101, Amount: 1}},
	)

	_, err := Estimate(b, Buy, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, domain.ErrNotEnoughLiquidity)

	_, err = Estimate(b, Sell, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, domain.ErrNotEnoughLiquidity)
}

func TestEstimate_EmptyLadder(t *testing.T) {
	_, err := Estimate(book(nil, nil), Buy, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrNotEnoughLiquidity)
}

func TestEstimate_ZeroPriceLevel(t *testing.T) {
	b := book(
		[]domain.PriceLevel{{Price: 0, Amount: 1}},
		[]domain.PriceLevel{{Price: 0, Amount: 1}},
	)

	_, err := Estimate(b, Buy, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrZeroPrice)
}

func TestEstimator_Check(t *testing.T) {
	b := book(
		[]domain.PriceLevel{{Price: 100, Amount: 10}},
		[]domain.PriceLevel{
			{Price: 100, Amount: 1},
			{Price: 200, Amount: 10}, // second level doubles the price
		},
	)
	e := NewEstimator(0.005)

	// Within the first level: passes.
	_, err := e.Check(b, Buy, decimal.NewFromInt(100))
	assert.NoError(t, err)

	// Spilling into the 200 level blows past 0.5%.
	_, err = e.Check(b, Buy, decimal.NewFromInt(300))
	assert.ErrorIs(t, err, domain.ErrSlippageTooHigh)
}
