package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arbiterx/arbiter/internal/domain"
)

// BalancesConfig holds the balance refresh cycle parameters.
type BalancesConfig struct {
	RefreshInterval time.Duration
	// InitialDelay lets the venue connectors authenticate before the first
	// fetch cycle runs.
	InitialDelay time.Duration
	MaxRetries   int
}

// BalanceTracker periodically snapshots spot balances on every venue so the
// executor can pre-check funding without a round trip. Readers always see a
// complete snapshot; a refresh swaps the whole map at once.
type BalanceTracker struct {
	cfg    BalancesConfig
	logger *slog.Logger

	mu       sync.RWMutex
	conns    map[string]domain.ExchangeConnector
	balances map[string]map[string]float64

	sleep func(ctx context.Context, d time.Duration) error
}

// NewBalanceTracker creates a tracker over the given connectors.
func NewBalanceTracker(conns map[string]domain.ExchangeConnector, cfg BalancesConfig, logger *slog.Logger) *BalanceTracker {
	return &BalanceTracker{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "balance_tracker")),
		conns:    conns,
		balances: make(map[string]map[string]float64),
		sleep:    sleepCtx,
	}
}

// SetConnectors replaces the tracked connector set. The exchange watcher
// calls this after a credential refresh; stale snapshots are dropped on the
// next cycle.
func (t *BalanceTracker) SetConnectors(conns map[string]domain.ExchangeConnector) {
	t.mu.Lock()
	t.conns = conns
	t.mu.Unlock()
}

// Balance returns the last snapshotted free balance of asset on exchange,
// or zero when no snapshot exists.
func (t *BalanceTracker) Balance(exchange, asset string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[exchange][asset]
}

// Run refreshes all venue balances on a fixed cycle until ctx is cancelled.
func (t *BalanceTracker) Run(ctx context.Context) error {
	if err := t.sleep(ctx, t.cfg.InitialDelay); err != nil {
		return err
	}

	for {
		t.refresh(ctx)
		if err := t.sleep(ctx, t.cfg.RefreshInterval); err != nil {
			return err
		}
	}
}

// refresh fetches every venue's balance and swaps the snapshot in one step.
// A venue that fails all retries is omitted from the new snapshot: the
// funding pre-checks must see zero rather than a balance up to a refresh
// cycle old.
func (t *BalanceTracker) refresh(ctx context.Context) {
	t.mu.RLock()
	conns := make(map[string]domain.ExchangeConnector, len(t.conns))
	for name, conn := range t.conns {
		conns[name] = conn
	}
	t.mu.RUnlock()

	next := make(map[string]map[string]float64, len(conns))
	for name, conn := range conns {
		bal, err := t.fetchWithRetry(ctx, conn)
		if err != nil {
			t.logger.WarnContext(ctx, "balance fetch failed, omitting venue from snapshot",
				slog.String("exchange", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		next[name] = bal
	}

	t.mu.Lock()
	t.balances = next
	t.mu.Unlock()
	t.logger.DebugContext(ctx, "balances refreshed", slog.Int("exchanges", len(next)))
}

func (t *BalanceTracker) fetchWithRetry(ctx context.Context, conn domain.ExchangeConnector) (map[string]float64, error) {
	var lastErr error
	for attempt := 0; attempt < t.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1+attempt*2) * time.Second
			if err := t.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		bal, err := conn.FetchBalance(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		positive := make(map[string]float64, len(bal))
		for asset, amount := range bal {
			if amount > 0 {
				positive[asset] = amount
			}
		}
		return positive, nil
	}
	return nil, lastErr
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
