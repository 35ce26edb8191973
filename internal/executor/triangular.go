package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/slippage"
)

// executeTriangular runs a 3-leg cycle sequentially on one venue. Legs are
// gated individually on slippage; once a leg has filled there is no unwind,
// so a mid-cycle failure leaves inventory in the intermediate asset and is
// reported for manual follow-up.
func (o *Orchestrator) executeTriangular(ctx context.Context, opp domain.TriangularOpportunity) domain.TradeResult {
	log := o.logger.With(
		slog.String("strategy", "triangular"),
		slog.String("exchange", opp.Exchange),
		slog.String("path", strings.Join(opp.TradingPath, " -> ")),
	)

	conn, err := o.connector(opp.Exchange)
	if err != nil {
		return domain.ErrorResult(err.Error())
	}
	if len(opp.TradingPath) != 3 || len(opp.Assets) != 3 {
		return domain.ErrorResult("triangular opportunity must carry 3 legs and 3 assets")
	}

	initial := opp.InitialAmount
	if initial <= 0 {
		initial = o.cfg.DefaultNotional
	}
	if have := o.balances.Balance(opp.Exchange, opp.Assets[0]); have < initial {
		return domain.ErrorResult(fmt.Sprintf(
			"insufficient %s on %s: have %.4f, need %.4f: %v",
			opp.Assets[0], opp.Exchange, have, initial, domain.ErrInsufficientBalance,
		))
	}

	heldAsset := opp.Assets[0]
	heldAmount := initial

	for i, symbol := range opp.TradingPath {
		received, receivedAsset, err := o.executeLeg(ctx, conn, symbol, heldAsset, heldAmount, log)
		if err != nil {
			if i == 0 {
				return domain.ErrorResult(fmt.Sprintf("leg 1 (%s): %v", symbol, err))
			}
			return domain.ErrorResult(fmt.Sprintf(
				"leg %d (%s): %v, %.6f %s stranded on %s, manual review required",
				i+1, symbol, err, heldAmount, heldAsset, opp.Exchange,
			))
		}
		log.InfoContext(ctx, "leg filled",
			slog.Int("leg", i+1),
			slog.String("symbol", symbol),
			slog.Float64("received", received),
			slog.String("asset", receivedAsset),
		)
		heldAsset = receivedAsset
		heldAmount = received
	}

	if heldAsset != opp.Assets[0] {
		return domain.ErrorResult(fmt.Sprintf(
			"cycle did not close: ended holding %s instead of %s, manual review required",
			heldAsset, opp.Assets[0],
		))
	}

	profit := heldAmount - initial
	log.InfoContext(ctx, "triangular arbitrage executed",
		slog.Float64("initial", initial),
		slog.Float64("final", heldAmount),
		slog.Float64("profit_usd", profit),
	)
	tradeID := o.logTrade(ctx, domain.TradeLog{
		OpportunityID: opp.ID,
		TradingPair:   strings.Join(opp.TradingPath, "->"),
		BuyExchange:   opp.Exchange,
		SellExchange:  opp.Exchange,
		Quantity:      initial,
		ProfitUSD:     profit,
		Status:        "completed",
		Strategy:      domain.StrategyTriangular,
	})
	return domain.SuccessResult("triangular arbitrage executed", tradeID, profit)
}

// executeLeg converts heldAmount of heldAsset through one market and
// returns the net amount and name of the asset received. The side follows
// from inventory: holding the pair's quote asset means buying the base,
// holding the base means selling it.
func (o *Orchestrator) executeLeg(
	ctx context.Context,
	conn domain.ExchangeConnector,
	symbol, heldAsset string,
	heldAmount float64,
	log *slog.Logger,
) (float64, string, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return 0, "", err
	}

	var side slippage.Side
	switch heldAsset {
	case quote:
		side = slippage.Buy
	case base:
		side = slippage.Sell
	default:
		return 0, "", fmt.Errorf("held asset %s is not part of %s", heldAsset, symbol)
	}

	book, err := conn.FetchOrderBook(ctx, symbol)
	if err != nil {
		return 0, "", fmt.Errorf("fetch order book: %w", err)
	}
	if _, err := o.slip.Check(book, side, decimal.NewFromFloat(heldAmount)); err != nil {
		return 0, "", err
	}

	if side == slippage.Buy {
		order, err := o.marketBuy(ctx, conn, symbol, heldAmount, heldAmount/book.BestAsk())
		if err != nil {
			return 0, "", err
		}
		return netReceived(order.Filled, order.Fee, base), base, nil
	}

	order, err := conn.CreateMarketSellOrder(ctx, symbol, heldAmount)
	if err != nil {
		return 0, "", err
	}
	return netReceived(order.Cost, order.Fee, quote), quote, nil
}

// netReceived subtracts the order fee from the received amount only when
// the venue charged it in the received asset.
func netReceived(amount float64, fee domain.Fee, receivedAsset string) float64 {
	if fee.Currency == receivedAsset {
		return amount - fee.Cost
	}
	return amount
}
