// Package detector implements the two opportunity scanners: the
// cross-exchange spread detector and the per-venue triangular detector.
// Both hand their findings to an opportunity Sink; calculation errors are
// logged per symbol/path and never stop a scan.
package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
)

// Sink receives detected opportunities. It is implemented by the
// opportunity service, which applies the staleness/threshold/dedup gates
// before persisting.
type Sink interface {
	Publish(ctx context.Context, opp domain.Opportunity)
}

// Cross scans the price cache for two-venue spreads on a fixed interval.
type Cross struct {
	cache     *market.Cache
	sink      Sink
	symbols   []string
	notional  decimal.Decimal
	feeRate   decimal.Decimal
	minProfit decimal.Decimal
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// CrossConfig configures a Cross detector.
type CrossConfig struct {
	Cache *market.Cache
	Sink  Sink
	// Symbols to scan each cycle.
	Symbols []string
	// Notional is the simulated trade size in quote units.
	Notional float64
	// FeeRate is the per-side taker fee estimate.
	FeeRate float64
	// MinProfit is the engine-level minimum net profit percentage.
	MinProfit float64
	// Interval between scan passes.
	Interval time.Duration
	Logger   *slog.Logger
}

// NewCross creates a cross-exchange detector.
func NewCross(cfg CrossConfig) *Cross {
	return &Cross{
		cache:     cfg.Cache,
		sink:      cfg.Sink,
		symbols:   cfg.Symbols,
		notional:  decimal.NewFromFloat(cfg.Notional),
		feeRate:   decimal.NewFromFloat(cfg.FeeRate),
		minProfit: decimal.NewFromFloat(cfg.MinProfit),
		interval:  cfg.Interval,
		logger:    cfg.Logger.With(slog.String("component", "cross_detector")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run scans on the configured interval until ctx is cancelled.
func (d *Cross) Run(ctx context.Context) error {
	d.logger.Info("cross-exchange detector started", slog.Int("symbols", len(d.symbols)))
	defer d.logger.Info("cross-exchange detector stopped")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.scan(ctx)
		}
	}
}

// scan runs one detection pass over every configured symbol.
func (d *Cross) scan(ctx context.Context) {
	for _, symbol := range d.symbols {
		opp, ok := d.analyzeSymbol(symbol)
		if !ok {
			continue
		}
		d.logger.Info("cross-exchange opportunity",
			slog.String("pair", opp.TradingPair),
			slog.String("buy", opp.BuyExchange),
			slog.String("sell", opp.SellExchange),
			slog.Float64("profit_pct", opp.ProfitPct),
		)
		d.sink.Publish(ctx, opp)
	}
}

// analyzeSymbol selects the cheapest ask and richest bid across venues and
// computes the fee-net profit of a notional round trip.
func (d *Cross) analyzeSymbol(symbol string) (domain.CrossOpportunity, bool) {
	quotes := d.cache.QuotesForSymbol(symbol)
	if len(quotes) < 2 {
		return domain.CrossOpportunity{}, false
	}

	bestBuy, bestSell := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.Ask < bestBuy.Ask {
			bestBuy = q
		}
		if q.Bid > bestSell.Bid {
			bestSell = q
		}
	}

	if bestBuy.Exchange == bestSell.Exchange {
		return domain.CrossOpportunity{}, false
	}

	buyPrice := decimal.NewFromFloat(bestBuy.Ask)
	sellPrice := decimal.NewFromFloat(bestSell.Bid)
	if sellPrice.LessThanOrEqual(buyPrice) || buyPrice.Sign() <= 0 {
		return domain.CrossOpportunity{}, false
	}

	quantity := d.notional.Div(buyPrice)
	grossProfit := quantity.Mul(sellPrice.Sub(buyPrice))
	fees := d.notional.Mul(d.feeRate).Mul(decimal.NewFromInt(2)) // buy + sell side
	netProfit := grossProfit.Sub(fees)
	profitPct := netProfit.Div(d.notional).Mul(decimal.NewFromInt(100))

	if profitPct.LessThan(d.minProfit) {
		return domain.CrossOpportunity{}, false
	}

	return domain.CrossOpportunity{
		TradingPair:  symbol,
		BuyExchange:  bestBuy.Exchange,
		SellExchange: bestSell.Exchange,
		BuyPrice:     bestBuy.Ask,
		SellPrice:    bestSell.Bid,
		ProfitPct:    profitPct.InexactFloat64(),
		ProfitUSD:    netProfit.InexactFloat64(),
		Volume:       quantity.InexactFloat64(),
		DetectedAt:   d.now(),
	}, true
}
