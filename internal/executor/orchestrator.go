// Package executor turns persisted opportunities into real orders. One trade
// executes at a time system-wide: a single mutex guards every strategy so
// two requests can never race on the same venue balances.
package executor

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/service"
	"github.com/arbiterx/arbiter/internal/slippage"
)

// VenuePool resolves a venue name to its live connector. Implemented by the
// app layer, which owns connector lifecycle.
type VenuePool interface {
	Connector(name string) (domain.ExchangeConnector, bool)
}

// BalanceReader exposes the balance tracker's snapshot to pre-trade checks.
type BalanceReader interface {
	Balance(exchange, asset string) float64
}

// Config holds the orchestrator's tunable parameters.
type Config struct {
	// AuthToken is the credential a caller must present to execute trades.
	AuthToken string
	// MaxOpportunityAge rejects opportunities detected too long ago.
	MaxOpportunityAge time.Duration
	// DepositPollInterval and DepositMaxWait bound the transfer-arbitrage
	// deposit wait loop.
	DepositPollInterval time.Duration
	DepositMaxWait      time.Duration
	// DepositTolerance scales the expected deposit amount, absorbing network
	// fee variance.
	DepositTolerance float64
	// DefaultNotional is the quote-currency trade size when the request
	// carries no amount.
	DefaultNotional float64
}

// Orchestrator serializes and executes trade requests.
type Orchestrator struct {
	store    opportunityFetcher
	trades   domain.TradeStore
	venues   VenuePool
	balances BalanceReader
	slip     *slippage.Estimator
	stats    *service.Stats
	cfg      Config
	logger   *slog.Logger

	execMu chan struct{} // capacity 1, held for the duration of one trade
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

type opportunityFetcher interface {
	GetCrossOpportunity(ctx context.Context, id string) (domain.CrossOpportunity, error)
	GetTriangularOpportunity(ctx context.Context, id string) (domain.TriangularOpportunity, error)
}

// New creates an Orchestrator. stats may be nil.
func New(
	store opportunityFetcher,
	trades domain.TradeStore,
	venues VenuePool,
	balances BalanceReader,
	slip *slippage.Estimator,
	stats *service.Stats,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if stats == nil {
		stats = service.NewStats()
	}
	return &Orchestrator{
		store:    store,
		trades:   trades,
		venues:   venues,
		balances: balances,
		slip:     slip,
		stats:    stats,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "executor")),
		execMu:   make(chan struct{}, 1),
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
	}
}

// Execute runs one trade request to completion and returns its result. It
// never returns a Go error: every failure mode maps to an error-status
// TradeResult so the caller always gets a reportable outcome. The execution
// lock is acquired for the whole trade and released on every exit path,
// panics included.
func (o *Orchestrator) Execute(ctx context.Context, req domain.TradeRequest, authKey string) (result domain.TradeResult) {
	if subtle.ConstantTimeCompare([]byte(authKey), []byte(o.cfg.AuthToken)) != 1 {
		return domain.ErrorResult("unauthorized")
	}

	select {
	case o.execMu <- struct{}{}:
	case <-ctx.Done():
		return domain.ErrorResult("cancelled while waiting for execution lock")
	}
	defer func() { <-o.execMu }()

	execID := uuid.New().String()
	o.logger.InfoContext(ctx, "trade execution started",
		slog.String("execution_id", execID),
		slog.String("type", req.Type),
		slog.String("opportunity_id", req.OpportunityID),
	)

	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "trade execution panicked",
				slog.String("execution_id", execID),
				slog.String("opportunity_id", req.OpportunityID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = domain.ErrorResult(fmt.Sprintf("internal error: %v", r))
		}
		if result.Status == domain.TradeError {
			o.stats.TradeFailed()
		} else {
			o.stats.TradeDone()
			if result.TradeID == "" {
				// Persist failed but the trade ran; keep the execution ID so
				// the result stays traceable in the logs.
				result.TradeID = execID
			}
		}
	}()

	switch req.Type {
	case domain.TradeTypeCross:
		return o.executeCross(ctx, req)
	case domain.TradeTypeTriangular:
		return o.executeTriangularRequest(ctx, req)
	default:
		return domain.ErrorResult(fmt.Sprintf("unknown trade type %q", req.Type))
	}
}

func (o *Orchestrator) executeCross(ctx context.Context, req domain.TradeRequest) domain.TradeResult {
	opp, err := o.store.GetCrossOpportunity(ctx, req.OpportunityID)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("opportunity %s not found: %v", req.OpportunityID, err))
	}
	if err := o.checkAge(opp.DetectedAt); err != nil {
		return domain.ErrorResult(err.Error())
	}

	amount := req.Amount
	if amount <= 0 {
		amount = o.cfg.DefaultNotional
	}

	switch req.Strategy {
	case domain.StrategyInstant, "":
		return o.executeInstant(ctx, opp, amount)
	case domain.StrategyTransfer:
		return o.executeTransfer(ctx, opp, amount)
	default:
		return domain.ErrorResult(fmt.Sprintf("unknown strategy %q", req.Strategy))
	}
}

func (o *Orchestrator) executeTriangularRequest(ctx context.Context, req domain.TradeRequest) domain.TradeResult {
	opp, err := o.store.GetTriangularOpportunity(ctx, req.OpportunityID)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("opportunity %s not found: %v", req.OpportunityID, err))
	}
	if err := o.checkAge(opp.DetectedAt); err != nil {
		return domain.ErrorResult(err.Error())
	}
	return o.executeTriangular(ctx, opp)
}

func (o *Orchestrator) checkAge(detectedAt time.Time) error {
	if age := o.now().Sub(detectedAt); age > o.cfg.MaxOpportunityAge {
		return fmt.Errorf("opportunity is stale (detected %s ago): %w", age.Round(time.Second), domain.ErrStaleOpportunity)
	}
	return nil
}

// connector resolves a venue by name, tolerating operator-facing aliases.
func (o *Orchestrator) connector(name string) (domain.ExchangeConnector, error) {
	conn, ok := o.venues.Connector(name)
	if !ok {
		return nil, fmt.Errorf("venue %q not connected: %w", name, domain.ErrExchangeNotFound)
	}
	return conn, nil
}

// logTrade persists the trade record to the entity store. Persistence
// failures are logged but never turn an executed trade into an error.
func (o *Orchestrator) logTrade(ctx context.Context, log domain.TradeLog) string {
	id, err := o.trades.LogTrade(ctx, log)
	if err != nil {
		o.logger.WarnContext(ctx, "trade log failed",
			slog.String("opportunity_id", log.OpportunityID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return id
}

// splitSymbol returns the base and quote assets of a "BASE/QUOTE" symbol.
func splitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed symbol %q", symbol)
	}
	return parts[0], parts[1], nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
