package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Stats counts engine events. All counters are monotonic and safe for
// concurrent use.
type Stats struct {
	detected   atomic.Int64
	duplicates atomic.Int64
	stale      atomic.Int64
	persisted  atomic.Int64
	trades     atomic.Int64
	tradeFails atomic.Int64
}

// NewStats creates a zeroed counter set.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) Detected()    { s.detected.Add(1) }
func (s *Stats) Duplicate()   { s.duplicates.Add(1) }
func (s *Stats) Stale()       { s.stale.Add(1) }
func (s *Stats) Persisted()   { s.persisted.Add(1) }
func (s *Stats) TradeDone()   { s.trades.Add(1) }
func (s *Stats) TradeFailed() { s.tradeFails.Add(1) }

// Report logs a periodic summary until ctx is cancelled.
func (s *Stats) Report(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	log := logger.With(slog.String("component", "stats"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			log.Info("engine stats",
				slog.Int64("detected", s.detected.Load()),
				slog.Int64("duplicates", s.duplicates.Load()),
				slog.Int64("stale", s.stale.Load()),
				slog.Int64("persisted", s.persisted.Load()),
				slog.Int64("trades", s.trades.Load()),
				slog.Int64("trade_failures", s.tradeFails.Load()),
			)
		}
	}
}
