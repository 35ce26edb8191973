package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/slippage"
)

// executeTransfer runs the buy, withdraw, wait-for-deposit, sell strategy.
// Once the withdrawal is sent the funds are in transit and nothing can be
// unwound; every later failure is terminal and reported for manual
// follow-up.
func (o *Orchestrator) executeTransfer(ctx context.Context, opp domain.CrossOpportunity, amount float64) domain.TradeResult {
	log := o.logger.With(
		slog.String("strategy", "transfer"),
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

	// Step 1: quote funding on the buy venue.
	if have := o.balances.Balance(opp.BuyExchange, quote); have < amount {
		return domain.ErrorResult(fmt.Sprintf(
			"insufficient %s on %s: have %.4f, need %.4f: %v",
			quote, opp.BuyExchange, have, amount, domain.ErrInsufficientBalance,
		))
	}

	// Step 2: buy-side slippage gate on a fresh depth snapshot.
	buyBook, err := buyConn.FetchOrderBook(ctx, opp.TradingPair)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("fetch %s order book on %s: %v", opp.TradingPair, opp.BuyExchange, err))
	}
	if _, err := o.slip.Check(buyBook, slippage.Buy, decimal.NewFromFloat(amount)); err != nil {
		return domain.ErrorResult(fmt.Sprintf("buy leg rejected: %v", err))
	}

	// Step 3: market buy, cost-denominated when the venue supports it.
	buyOrder, err := o.marketBuy(ctx, buyConn, opp.TradingPair, amount, amount/opp.BuyPrice)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("buy on %s: %v", opp.BuyExchange, err))
	}
	if !buyOrder.Terminal() {
		return domain.ErrorResult(fmt.Sprintf(
			"buy order %s on %s did not reach a terminal state (status %s), manual review required",
			buyOrder.ID, opp.BuyExchange, buyOrder.Status,
		))
	}
	log.InfoContext(ctx, "buy leg filled",
		slog.Float64("filled", buyOrder.Filled),
		slog.Float64("cost", buyOrder.Cost),
	)

	// Steps 4-5: pick the cheapest network both venues support for the asset.
	network, err := o.selectNetwork(ctx, buyConn, sellConn, base)
	if err != nil {
		return domain.ErrorResult(err.Error())
	}
	log.InfoContext(ctx, "transfer network selected", slog.String("network", network))

	// Step 6: withdraw to the destination venue. Point of no return.
	depositAddr, err := sellConn.FetchDepositAddress(ctx, base, network)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("fetch %s deposit address on %s: %v", base, opp.SellExchange, err))
	}
	withdrawal, err := buyConn.Withdraw(ctx, base, buyOrder.Filled, depositAddr, network)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("withdraw %s from %s: %v", base, opp.BuyExchange, err))
	}
	log.InfoContext(ctx, "withdrawal sent",
		slog.String("withdrawal_id", withdrawal.ID),
		slog.Float64("amount", buyOrder.Filled),
		slog.Float64("withdraw_fee", withdrawal.Fee.Cost),
	)

	// Step 7: poll the destination balance until the deposit lands.
	expected := (buyOrder.Filled - withdrawal.Fee.Cost) * o.cfg.DepositTolerance
	received, err := o.awaitDeposit(ctx, sellConn, base, expected, log)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf(
			"deposit of %s on %s not confirmed: %v, funds in transit, manual review required",
			base, opp.SellExchange, err,
		))
	}

	// Step 8: sell-side slippage gate.
	sellBook, err := sellConn.FetchOrderBook(ctx, opp.TradingPair)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("fetch %s order book on %s: %v", opp.TradingPair, opp.SellExchange, err))
	}
	if _, err := o.slip.Check(sellBook, slippage.Sell, decimal.NewFromFloat(received)); err != nil {
		return domain.ErrorResult(fmt.Sprintf("sell leg rejected, funds parked on %s: %v", opp.SellExchange, err))
	}

	// Step 9: sell and settle.
	sellOrder, err := sellConn.CreateMarketSellOrder(ctx, opp.TradingPair, received)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("sell on %s: %v, funds parked, manual review required", opp.SellExchange, err))
	}

	profit := sellOrder.Cost - buyOrder.Cost - buyOrder.Fee.Cost - sellOrder.Fee.Cost - withdrawal.Fee.Cost
	log.InfoContext(ctx, "transfer arbitrage executed",
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
		Quantity:      buyOrder.Filled,
		ProfitUSD:     profit,
		Status:        "completed",
		Strategy:      domain.StrategyTransfer,
	})
	return domain.SuccessResult("transfer arbitrage executed", tradeID, profit)
}

// marketBuy prefers a quote-cost-denominated order when the connector
// supports one, falling back to a base-quantity order.
func (o *Orchestrator) marketBuy(ctx context.Context, conn domain.ExchangeConnector, symbol string, quoteCost, baseQty float64) (domain.Order, error) {
	if buyer, ok := conn.(domain.CostBuyer); ok {
		return buyer.CreateMarketBuyOrderWithCost(ctx, symbol, quoteCost)
	}
	return conn.CreateMarketBuyOrder(ctx, symbol, baseQty)
}

// selectNetwork intersects the networks both venues list for asset and
// returns the one with the lowest withdrawal fee on the source venue.
func (o *Orchestrator) selectNetwork(ctx context.Context, src, dst domain.ExchangeConnector, asset string) (string, error) {
	srcCurrencies, err := src.FetchCurrencies(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch currencies on %s: %w", src.Name(), err)
	}
	dstCurrencies, err := dst.FetchCurrencies(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch currencies on %s: %w", dst.Name(), err)
	}

	srcInfo, ok := srcCurrencies[asset]
	if !ok {
		return "", fmt.Errorf("%s does not list %s: %w", src.Name(), asset, domain.ErrNoCommonNetwork)
	}
	dstInfo, ok := dstCurrencies[asset]
	if !ok {
		return "", fmt.Errorf("%s does not list %s: %w", dst.Name(), asset, domain.ErrNoCommonNetwork)
	}

	var common []string
	for network := range srcInfo.Networks {
		if _, ok := dstInfo.Networks[network]; ok {
			common = append(common, network)
		}
	}
	if len(common) == 0 {
		return "", fmt.Errorf("no shared %s network between %s and %s: %w",
			asset, src.Name(), dst.Name(), domain.ErrNoCommonNetwork)
	}

	// Deterministic tie-break on equal fees.
	sort.Strings(common)
	best := common[0]
	for _, network := range common[1:] {
		if srcInfo.Networks[network].Fee < srcInfo.Networks[best].Fee {
			best = network
		}
	}
	return best, nil
}

// awaitDeposit polls the destination balance until it reaches expected or
// the wait ceiling passes. Individual fetch failures are tolerated; the
// deadline is the only terminal condition.
func (o *Orchestrator) awaitDeposit(ctx context.Context, conn domain.ExchangeConnector, asset string, expected float64, log *slog.Logger) (float64, error) {
	deadline := o.now().Add(o.cfg.DepositMaxWait)
	for {
		balances, err := conn.FetchBalance(ctx)
		if err != nil {
			log.WarnContext(ctx, "balance poll failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
		} else if balances[asset] >= expected {
			return balances[asset], nil
		}

		if !o.now().Before(deadline) {
			return 0, fmt.Errorf("deposit wait exceeded %s", o.cfg.DepositMaxWait)
		}
		if err := o.sleep(ctx, o.cfg.DepositPollInterval); err != nil {
			return 0, err
		}
	}
}
