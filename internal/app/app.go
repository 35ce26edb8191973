// Package app owns the engine lifecycle: it wires dependencies, initializes
// venue connectors from the external exchange configuration, runs the
// detection and tracking tasks, and rebuilds everything when the exchange
// configuration changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arbiterx/arbiter/internal/config"
	"github.com/arbiterx/arbiter/internal/connector"
	"github.com/arbiterx/arbiter/internal/detector"
	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/executor"
	"github.com/arbiterx/arbiter/internal/market"
	"github.com/arbiterx/arbiter/internal/notify"
	"github.com/arbiterx/arbiter/internal/service"
)

// configRetryDelay paces exchange-config fetch retries at startup.
const configRetryDelay = 30 * time.Second

// App is the root application object.
type App struct {
	cfg      *config.Config
	registry *connector.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	orch     *executor.Orchestrator
	notifier *notify.Notifier
}

// New creates an App. The registry must already hold a factory for every
// venue the exchange configuration may name.
func New(cfg *config.Config, registry *connector.Registry, logger *slog.Logger) *App {
	return &App{
		cfg:      cfg,
		registry: registry,
		logger:   logger.With(slog.String("component", "app")),
	}
}

// ExecuteTrade runs a trade request through the current orchestrator. It
// returns an error result while the engine is still connecting. The outcome
// is also pushed to the alert channels, best effort.
func (a *App) ExecuteTrade(ctx context.Context, req domain.TradeRequest, authKey string) domain.TradeResult {
	a.mu.RLock()
	orch := a.orch
	notifier := a.notifier
	a.mu.RUnlock()
	if orch == nil {
		return domain.ErrorResult("engine not ready")
	}

	result := orch.Execute(ctx, req, authKey)
	if notifier != nil {
		if err := notifier.SendTradeNotice(ctx, result); err != nil {
			a.logger.WarnContext(ctx, "trade notice failed", slog.String("error", err.Error()))
		}
	}
	return result
}

// Run wires dependencies and runs engine cycles until ctx is cancelled. One
// cycle spans the lifetime of one venue connector set; a detected exchange
// configuration change ends the cycle, closes every connector and starts
// the next cycle from the new configuration.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("symbols", len(a.cfg.Trading.Symbols)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	a.mu.Lock()
	a.notifier = deps.Notifier
	a.mu.Unlock()

	for {
		configs, err := a.fetchConfigs(ctx, deps)
		if err != nil {
			return err
		}

		conns := a.buildConnectors(configs)
		err = a.runCycle(ctx, deps, configs, conns)
		a.closeConnectors(conns)

		switch {
		case ctx.Err() != nil:
			a.logger.Info("engine stopped")
			return nil
		case errors.Is(err, errConfigChanged):
			a.logger.Info("exchange configuration changed, reconnecting venues")
		case err != nil:
			return fmt.Errorf("app: engine cycle: %w", err)
		default:
			return nil
		}
	}
}

// fetchConfigs retries the exchange-config fetch until it succeeds or ctx
// is cancelled. The engine cannot run without venue credentials.
func (a *App) fetchConfigs(ctx context.Context, deps *Dependencies) ([]domain.ExchangeConfig, error) {
	for {
		configs, err := deps.Store.FetchExchangeConfigs(ctx)
		if err == nil {
			return configs, nil
		}
		a.logger.WarnContext(ctx, "exchange config fetch failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", configRetryDelay),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(configRetryDelay):
		}
	}
}

// buildConnectors resolves every active exchange config through the
// registry. A venue that fails to initialize is skipped, not fatal.
func (a *App) buildConnectors(configs []domain.ExchangeConfig) map[string]domain.ExchangeConnector {
	conns := make(map[string]domain.ExchangeConnector)
	for _, ec := range configs {
		if !ec.IsActive {
			continue
		}
		name := connector.Normalize(ec.Name)
		conn, err := a.registry.New(ec.Name, ec.APIKey, ec.APISecret)
		if err != nil {
			a.logger.Warn("venue initialization failed, skipping",
				slog.String("exchange", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		conns[name] = conn
	}
	a.logger.Info("venues connected", slog.Int("count", len(conns)))
	return conns
}

func (a *App) closeConnectors(conns map[string]domain.ExchangeConnector) {
	for name, conn := range conns {
		if err := conn.Close(); err != nil {
			a.logger.Warn("venue close failed",
				slog.String("exchange", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// runCycle runs all engine tasks over one connector set and blocks until a
// task fails, the exchange configuration changes, or ctx is cancelled.
func (a *App) runCycle(
	ctx context.Context,
	deps *Dependencies,
	configs []domain.ExchangeConfig,
	conns map[string]domain.ExchangeConnector,
) error {
	tracker := service.NewBalanceTracker(conns, service.BalancesConfig{
		RefreshInterval: a.cfg.Balances.RefreshInterval.Duration,
		InitialDelay:    a.cfg.Balances.InitialDelay.Duration,
		MaxRetries:      a.cfg.Balances.MaxRetries,
	}, a.logger)

	orch := executor.New(
		deps.Store,
		deps.Store,
		venueSet(conns),
		tracker,
		deps.Slippage,
		deps.Stats,
		executor.Config{
			AuthToken:           a.cfg.Store.AppToken,
			MaxOpportunityAge:   a.cfg.Execution.MaxOpportunityAge.Duration,
			DepositPollInterval: a.cfg.Execution.DepositPollInterval.Duration,
			DepositMaxWait:      a.cfg.Execution.DepositMaxWait.Duration,
			DepositTolerance:    a.cfg.Execution.DepositTolerance,
			DefaultNotional:     a.cfg.Trading.MaxTradeAmount,
		},
		a.logger,
	)
	a.mu.Lock()
	a.orch = orch
	a.mu.Unlock()

	cross := detector.NewCross(detector.CrossConfig{
		Cache:     deps.PriceCache,
		Sink:      deps.Pipeline,
		Symbols:   a.cfg.Trading.Symbols,
		Notional:  a.cfg.Trading.TradeNotional,
		FeeRate:   a.cfg.Trading.PerSideFeeRate,
		MinProfit: a.cfg.Trading.MinProfitThreshold,
		Interval:  a.cfg.Trading.ScanInterval.Duration,
		Logger:    a.logger,
	})

	connList := make([]domain.ExchangeConnector, 0, len(conns))
	for _, conn := range conns {
		connList = append(connList, conn)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Supervisor.Run(ctx, connList, a.cfg.Trading.Symbols)
	})
	g.Go(func() error { return cross.Run(ctx) })

	for _, conn := range connList {
		tri := detector.NewTriangular(detector.TriangularConfig{
			Connector:          conn,
			Books:              market.NewBookCache(),
			Supervisor:         deps.Supervisor,
			Sink:               deps.Pipeline,
			FeeMultiplier:      a.cfg.Triangular.FeeMultiplier,
			InitialNotional:    a.cfg.Triangular.InitialNotional,
			MinProfit:          a.cfg.Trading.MinProfitThreshold,
			PriorityAssets:     a.cfg.Triangular.PriorityAssets,
			MaxSymbols:         a.cfg.Triangular.MaxSymbols,
			MaxConcurrentEvals: a.cfg.Triangular.MaxConcurrentEvals,
			Logger:             a.logger,
		})
		g.Go(func() error {
			if err := tri.Prepare(ctx); err != nil {
				a.logger.WarnContext(ctx, "triangular prepare failed, venue skipped",
					slog.String("error", err.Error()),
				)
				return nil
			}
			return tri.Run(ctx)
		})
	}

	g.Go(func() error { return tracker.Run(ctx) })
	g.Go(func() error {
		return deps.Stats.Report(ctx, a.cfg.Stats.Interval.Duration, a.logger)
	})

	watcher := newConfigWatcher(deps.Store, a.cfg.Watcher.PollInterval.Duration, a.logger)
	g.Go(func() error { return watcher.Run(ctx, configs) })

	return g.Wait()
}

// venueSet adapts the connector map to the executor's venue lookup.
type venueSet map[string]domain.ExchangeConnector

func (v venueSet) Connector(name string) (domain.ExchangeConnector, bool) {
	conn, ok := v[connector.Normalize(name)]
	return conn, ok
}
