// Package notify delivers operator alerts over chat channels. An alert goes
// to every configured sender; one channel failing does not stop delivery to
// the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arbiterx/arbiter/internal/domain"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a message with the given title and body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel (e.g. "telegram").
	Name() string
}

// Notifier formats opportunity alerts and fans them out to all senders. It
// implements domain.Notifier.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. An empty sender
// list yields a no-op notifier.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// SendOpportunityAlert formats the opportunity for operators and dispatches
// it to every channel.
func (n *Notifier) SendOpportunityAlert(ctx context.Context, opp domain.Opportunity, persistedID string) error {
	title, message := formatOpportunity(opp, persistedID)
	return n.dispatch(ctx, title, message)
}

// SendTradeNotice reports an executed or failed trade.
func (n *Notifier) SendTradeNotice(ctx context.Context, result domain.TradeResult) error {
	title := "Trade executed"
	if result.Status == domain.TradeError {
		title = "Trade failed"
	}
	message := result.Message
	if result.Status == domain.TradeSuccess {
		message = fmt.Sprintf("%s\nProfit: $%.2f", result.Message, result.ProfitUSD)
	}
	return n.dispatch(ctx, title, message)
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.WarnContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func formatOpportunity(opp domain.Opportunity, persistedID string) (title, message string) {
	switch o := opp.(type) {
	case domain.CrossOpportunity:
		title = "Arbitrage opportunity"
		message = fmt.Sprintf(
			"Pair: %s\nBuy on %s at %.8g\nSell on %s at %.8g\nNet profit: %.2f%% ($%.2f)\nID: %s",
			o.TradingPair, o.BuyExchange, o.BuyPrice, o.SellExchange, o.SellPrice,
			o.ProfitPct, o.ProfitUSD, persistedID,
		)
	case domain.TriangularOpportunity:
		title = "Triangular opportunity"
		message = fmt.Sprintf(
			"Exchange: %s\nPath: %s\nNet profit: %.2f%%\nID: %s",
			o.Exchange, strings.Join(o.TradingPath, " -> "), o.ProfitPct, persistedID,
		)
	default:
		title = "Opportunity"
		message = fmt.Sprintf(
			"Profit: %.2f%%\nDetected: %s\nID: %s",
			opp.Profit(), opp.Detected().Format(time.RFC3339), persistedID,
		)
	}
	return title, message
}
