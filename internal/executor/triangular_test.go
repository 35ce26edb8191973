package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

func triOpp(detected time.Time) domain.TriangularOpportunity {
	return domain.TriangularOpportunity{
		ID:            "tri-1",
		Exchange:      "binance",
		TradingPath:   []string{"BTC/USDT", "ETH/BTC", "ETH/USDT"},
		Assets:        []string{"USDT", "BTC", "ETH"},
		InitialAmount: 1000,
		DetectedAt:    detected,
	}
}

func triBooks() map[string]domain.OrderBook {
	return map[string]domain.OrderBook{
		"BTC/USDT": liquidBook("BTC/USDT", 49990, 50000),
		"ETH/BTC":  liquidBook("ETH/BTC", 0.0499, 0.05),
		"ETH/USDT": liquidBook("ETH/USDT", 2600, 2601),
	}
}

func TestExecute_TriangularCycle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	conn := &fakeConn{
		name:  "binance",
		books: triBooks(),
		buy: func(symbol string, qty float64) (domain.Order, error) {
			switch symbol {
			case "BTC/USDT":
				// Fee charged in the received asset gets netted off.
				return domain.Order{
					Status: domain.OrderStatusFilled, Filled: qty,
					Fee: domain.Fee{Cost: 0.00002, Currency: "BTC"},
				}, nil
			case "ETH/BTC":
				// Fee in a third currency leaves the received amount whole.
				return domain.Order{
					Status: domain.OrderStatusFilled, Filled: qty,
					Fee: domain.Fee{Cost: 0.01, Currency: "BNB"},
				}, nil
			}
			return domain.Order{}, errors.New("unexpected buy")
		},
		sell: func(symbol string, qty float64) (domain.Order, error) {
			require.Equal(t, "ETH/USDT", symbol)
			return domain.Order{
				Status: domain.OrderStatusFilled, Filled: qty, Cost: qty * 2600,
				Fee: domain.Fee{Cost: 1, Currency: "USDT"},
			}, nil
		},
	}
	store := &fakeStore{triangular: map[string]domain.TriangularOpportunity{"tri-1": triOpp(now)}}
	balances := fakeBalances{"binance": {"USDT": 5000}}
	o := newOrchestrator(store, venueMap{"binance": conn}, balances, testConfig())
	o.now = func() time.Time { return now }

	res := o.Execute(context.Background(), domain.TradeRequest{
		Type:          domain.TradeTypeTriangular,
		OpportunityID: "tri-1",
	}, "secret")

	require.Equal(t, domain.TradeSuccess, res.Status, res.Message)

	// Leg 1 buys 1000/50000 = 0.02 BTC, nets 0.01998 after the BTC fee.
	// Leg 2 buys 0.01998/0.05 = 0.3996 ETH, fee in BNB so nothing netted.
	// Leg 3 sells 0.3996 ETH at 2600 = 1038.96 USDT, minus 1 USDT fee.
	assert.InDelta(t, 37.96, res.ProfitUSD, 1e-6)

	require.Len(t, conn.buyCalls, 2)
	assert.InDelta(t, 0.02, conn.buyCalls[0], 1e-9)
	assert.InDelta(t, 0.3996, conn.buyCalls[1], 1e-9)
	require.Len(t, conn.sellCalls, 1)
	assert.InDelta(t, 0.3996, conn.sellCalls[0], 1e-9)

	require.Len(t, store.trades, 1)
	assert.Equal(t, domain.StrategyTriangular, store.trades[0].Strategy)
	assert.Equal(t, "BTC/USDT->ETH/BTC->ETH/USDT", store.trades[0].TradingPair)
}

func TestExecute_TriangularMidCycleFailureStrandsInventory(t *testing.T) {
	now := time.Unix(1700000000, 0)
	conn := &fakeConn{
		name:  "binance",
		books: triBooks(),
		buy: func(symbol string, qty float64) (domain.Order, error) {
			if symbol == "BTC/USDT" {
				return domain.Order{Status: domain.OrderStatusFilled, Filled: qty}, nil
			}
			return domain.Order{}, errors.New("min notional not met")
		},
	}
	store := &fakeStore{triangular: map[string]domain.TriangularOpportunity{"tri-1": triOpp(now)}}
	balances := fakeBalances{"binance": {"USDT": 5000}}
	o := newOrchestrator(store, venueMap{"binance": conn}, balances, testConfig())
	o.now = func() time.Time { return now }

	res := o.Execute(context.Background(), domain.TradeRequest{
		Type:          domain.TradeTypeTriangular,
		OpportunityID: "tri-1",
	}, "secret")

	require.Equal(t, domain.TradeError, res.Status)
	assert.Contains(t, res.Message, "leg 2")
	assert.Contains(t, res.Message, "BTC stranded on binance")
	assert.Contains(t, res.Message, "manual review")
	assert.Empty(t, store.trades)
}

func TestExecute_TriangularRejectsInsufficientBalance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	conn := &fakeConn{name: "binance", books: triBooks()}
	store := &fakeStore{triangular: map[string]domain.TriangularOpportunity{"tri-1": triOpp(now)}}
	balances := fakeBalances{"binance": {"USDT": 100}} // needs 1000

	o := newOrchestrator(store, venueMap{"binance": conn}, balances, testConfig())
	o.now = func() time.Time { return now }

	res := o.Execute(context.Background(), domain.TradeRequest{
		Type:          domain.TradeTypeTriangular,
		OpportunityID: "tri-1",
	}, "secret")

	assert.Equal(t, domain.TradeError, res.Status)
	assert.Contains(t, res.Message, "insufficient")
	assert.Empty(t, conn.buyCalls)
}
