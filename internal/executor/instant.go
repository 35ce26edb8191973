package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arbiterx/arbiter/internal/domain"
)

// executeInstant runs the concurrent two-leg cross-exchange strategy: buy on
// the cheap venue and sell on the expensive one at the same time. A partial
// fill is the hazard here; it is hedged best-effort and always reported as
// an error.
func (o *Orchestrator) executeInstant(ctx context.Context, opp domain.CrossOpportunity, amount float64) domain.TradeResult {
	log := o.logger.With(
		slog.String("strategy", "instant"),
		slog.String("pair", opp.TradingPair),
		slog.String("buy_exchange", opp.BuyExchange),
		slog.String("sell_exchange", opp.SellExchange),
	)

	buyConn, err := o.connector(opp.BuyExchange)
	if err != nil {
		return domain.ErrorResult(err.Error())
	}
	sellConn, err := o.connector(opp.SellExchange)
	if err != nil {
		return domain.ErrorResult(err.Error())
	}

	base, quote, err := splitSymbol(opp.TradingPair)
	if err != nil {
		return domain.ErrorResult(err.Error())
	}
	if opp.BuyPrice <= 0 {
		return domain.ErrorResult("opportunity has no buy price")
	}
	quantity := amount / opp.BuyPrice

	// Quote balance on the buy side is a hard requirement.
	if have := o.balances.Balance(opp.BuyExchange, quote); have < amount {
		return domain.ErrorResult(fmt.Sprintf(
			"insufficient %s on %s: have %.4f, need %.4f: %v",
			quote, opp.BuyExchange, have, amount, domain.ErrInsufficientBalance,
		))
	}
	// Base balance on the sell side is advisory only; the buy leg may land
	// before the sell leg needs inventory.
	if have := o.balances.Balance(opp.SellExchange, base); have < quantity {
		log.WarnContext(ctx, "low base balance on sell venue, attempting anyway",
			slog.Float64("have", have),
			slog.Float64("need", quantity),
		)
	}

	var (
		wg        sync.WaitGroup
		buyOrder  domain.Order
		sellOrder domain.Order
		buyErr    error
		sellErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		buyOrder, buyErr = buyConn.CreateMarketBuyOrder(ctx, opp.TradingPair, quantity)
	}()
	go func() {
		defer wg.Done()
		sellOrder, sellErr = sellConn.CreateMarketSellOrder(ctx, opp.TradingPair, quantity)
	}()
	wg.Wait()

	switch {
	case buyErr == nil && sellErr == nil:
		profit := sellOrder.Cost - buyOrder.Cost - buyOrder.Fee.Cost - sellOrder.Fee.Cost
		log.InfoContext(ctx, "instant arbitrage executed",
			slog.Float64("buy_cost", buyOrder.Cost),
			slog.Float64("sell_cost", sellOrder.Cost),
			slog.Float64("profit_usd", profit),
		)
		tradeID := o.logTrade(ctx, domain.TradeLog{
			OpportunityID: opp.ID,
			TradingPair:   opp.TradingPair,
			BuyExchange:   opp.BuyExchange,
			SellExchange:  opp.SellExchange,
			BuyPrice:      buyOrder.Average,
			SellPrice:     sellOrder.Average,
			Quantity:      quantity,
			ProfitUSD:     profit,
			Status:        "completed",
			Strategy:      domain.StrategyInstant,
		})
		return domain.SuccessResult("instant arbitrage executed", tradeID, profit)

	case buyErr == nil:
		log.ErrorContext(ctx, "sell leg failed after buy filled, hedging",
			slog.String("error", sellErr.Error()),
		)
		o.hedgeSell(ctx, buyConn, opp.TradingPair, buyOrder.Filled, log)
		return domain.ErrorResult(fmt.Sprintf(
			"partial execution: buy filled but sell failed (%v), position hedged best-effort, manual review required: %v",
			sellErr, domain.ErrPartialExecution,
		))

	case sellErr == nil:
		log.ErrorContext(ctx, "buy leg failed after sell filled, hedging",
			slog.String("error", buyErr.Error()),
		)
		o.hedgeBuy(ctx, sellConn, opp.TradingPair, sellOrder.Filled, log)
		return domain.ErrorResult(fmt.Sprintf(
			"partial execution: sell filled but buy failed (%v), position hedged best-effort, manual review required: %v",
			buyErr, domain.ErrPartialExecution,
		))

	default:
		return domain.ErrorResult(fmt.Sprintf("both legs failed: buy: %v; sell: %v", buyErr, sellErr))
	}
}

// hedgeSell unwinds an unmatched buy by selling the filled quantity back on
// the same venue. Failures are logged, never raised.
func (o *Orchestrator) hedgeSell(ctx context.Context, conn domain.ExchangeConnector, symbol string, qty float64, log *slog.Logger) {
	if qty <= 0 {
		return
	}
	if _, err := conn.CreateMarketSellOrder(ctx, symbol, qty); err != nil {
		log.ErrorContext(ctx, "hedge sell failed, position remains open",
			slog.Float64("quantity", qty),
			slog.String("error", err.Error()),
		)
		return
	}
	log.InfoContext(ctx, "hedge sell executed", slog.Float64("quantity", qty))
}

// hedgeBuy unwinds an unmatched sell by buying the quantity back on the same
// venue.
func (o *Orchestrator) hedgeBuy(ctx context.Context, conn domain.ExchangeConnector, symbol string, qty float64, log *slog.Logger) {
	if qty <= 0 {
		return
	}
	if _, err := conn.CreateMarketBuyOrder(ctx, symbol, qty); err != nil {
		log.ErrorContext(ctx, "hedge buy failed, position remains open",
			slog.Float64("quantity", qty),
			slog.String("error", err.Error()),
		)
		return
	}
	log.InfoContext(ctx, "hedge buy executed", slog.Float64("quantity", qty))
}
