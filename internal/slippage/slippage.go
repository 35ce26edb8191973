// Package slippage estimates the execution quality of a hypothetical market
// order by walking an order-book depth ladder. Insufficient depth and zero
// prices are expected, high-frequency outcomes and are returned as sentinel
// errors, never raised further.
package slippage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arbiterx/arbiter/internal/domain"
)

// Side selects which ladder a hypothetical order consumes.
type Side string

const (
	Buy  Side = "BUY"  // consumes asks; amount is a quote-currency budget
	Sell Side = "SELL" // consumes bids; amount is a base-currency quantity
)

// Estimate walks price levels from best to worst until the requested amount
// is satisfied and returns the resulting slippage fraction
// |VWAP - best| / best, floored at zero. It returns ErrNotEnoughLiquidity
// when depth is exhausted first and ErrZeroPrice when a consumed level or
// the best price is zero.
func Estimate(book domain.OrderBook, side Side, amount decimal.Decimal) (decimal.Decimal, error) {
	if !book.HasDepth() {
		return decimal.Zero, domain.ErrNotEnoughLiquidity
	}

	switch side {
	case Buy:
		return estimateBuy(book.Asks, amount)
	case Sell:
		return estimateSell(book.Bids, amount)
	default:
		return decimal.Zero, fmt.Errorf("slippage: unknown side %q", side)
	}
}

func estimateBuy(asks []domain.PriceLevel, quoteBudget decimal.Decimal) (decimal.Decimal, error) {
	filledBase := decimal.Zero
	spentQuote := decimal.Zero
	remaining := quoteBudget

	for _, level := range asks {
		price := decimal.NewFromFloat(level.Price)
		if price.Sign() <= 0 {
			return decimal.Zero, domain.ErrZeroPrice
		}
		qty := decimal.NewFromFloat(level.Amount)
		levelQuote := price.Mul(qty)

		var takeQuote, takeBase decimal.Decimal
		if remaining.LessThanOrEqual(levelQuote) {
			takeQuote = remaining
			takeBase = takeQuote.Div(price)
		} else {
			takeQuote = levelQuote
			takeBase = qty
		}

		filledBase = filledBase.Add(takeBase)
		spentQuote = spentQuote.Add(takeQuote)
		remaining = remaining.Sub(takeQuote)

		if remaining.Sign() <= 0 {
			break
		}
	}
	if remaining.Sign() > 0 {
		return decimal.Zero, domain.ErrNotEnoughLiquidity
	}

	best := decimal.NewFromFloat(asks[0].Price)
	if best.Sign() <= 0 || filledBase.Sign() == 0 {
		return decimal.Zero, domain.ErrZeroPrice
	}
	vwap := spentQuote.Div(filledBase)
	return floorZero(vwap.Sub(best).Div(best)), nil
}

func estimateSell(bids []domain.PriceLevel, baseQty decimal.Decimal) (decimal.Decimal, error) {
	filledBase := decimal.Zero
	receivedQuote := decimal.Zero
	remaining := baseQty

	for _, level := range bids {
		price := decimal.NewFromFloat(level.Price)
		if price.Sign() <= 0 {
			return decimal.Zero, domain.ErrZeroPrice
		}
		qty := decimal.NewFromFloat(level.Amount)

		take := decimal.Min(qty, remaining)
		filledBase = filledBase.Add(take)
		receivedQuote = receivedQuote.Add(take.Mul(price))
		remaining = remaining.Sub(take)

		if remaining.Sign() <= 0 {
			break
		}
	}
	if remaining.Sign() > 0 {
		return decimal.Zero, domain.ErrNotEnoughLiquidity
	}

	best := decimal.NewFromFloat(bids[0].Price)
	if best.Sign() <= 0 || filledBase.Sign() == 0 {
		return decimal.Zero, domain.ErrZeroPrice
	}
	vwap := receivedQuote.Div(filledBase)
	return floorZero(best.Sub(vwap).Div(best)), nil
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// Estimator bundles Estimate with a configured tolerance. It gates every
// execution path.
type Estimator struct {
	tolerance decimal.Decimal
}

// NewEstimator creates an Estimator with the given tolerance fraction
// (e.g. 0.005 for 0.5%).
func NewEstimator(tolerance float64) *Estimator {
	return &Estimator{tolerance: decimal.NewFromFloat(tolerance)}
}

// Tolerance returns the configured tolerance fraction.
func (e *Estimator) Tolerance() decimal.Decimal { return e.tolerance }

// Check estimates slippage for the hypothetical order and returns
// ErrSlippageTooHigh (wrapped with the measured value) when it exceeds the
// tolerance. Estimation failures pass through unchanged.
func (e *Estimator) Check(book domain.OrderBook, side Side, amount decimal.Decimal) (decimal.Decimal, error) {
	slip, err := Estimate(book, side, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if slip.GreaterThan(e.tolerance) {
		return slip, fmt.Errorf("slippage %s over tolerance %s: %w", slip.StringFixed(6), e.tolerance.StringFixed(6), domain.ErrSlippageTooHigh)
	}
	return slip, nil
}
