// Package service holds the engine's application services: the opportunity
// pipeline between the detectors and the external store, the venue balance
// tracker, and the stats reporter.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arbiterx/arbiter/internal/domain"
)

// OpportunityConfig holds the pipeline's gate parameters.
type OpportunityConfig struct {
	// MinProfit is the strategy-level minimum net profit percentage. An
	// opportunity below it is dropped even when a detector emitted it.
	MinProfit float64
	// MaxAge drops opportunities detected too long ago to act on.
	MaxAge time.Duration
}

// OpportunityService gates detected opportunities and persists the
// survivors. It is the single Sink shared by all detectors: staleness,
// profit threshold and the dedup window are applied here so every detector
// gets the same treatment.
type OpportunityService struct {
	store    domain.OpportunityStore
	seen     domain.SeenSet
	notifier domain.Notifier
	stats    *Stats
	cfg      OpportunityConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewOpportunityService creates the pipeline. notifier may be nil when no
// alert channel is configured.
func NewOpportunityService(
	store domain.OpportunityStore,
	seen domain.SeenSet,
	notifier domain.Notifier,
	stats *Stats,
	cfg OpportunityConfig,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		seen:     seen,
		notifier: notifier,
		stats:    stats,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "opportunity_service")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish runs an opportunity through the gates and persists it. Duplicate
// and stale opportunities are dropped silently; persistence failures are
// logged and counted but never propagate into the detector loops.
func (s *OpportunityService) Publish(ctx context.Context, opp domain.Opportunity) {
	s.stats.Detected()

	if err := s.save(ctx, opp); err != nil {
		s.logger.WarnContext(ctx, "opportunity dropped",
			slog.String("signature", opp.Signature()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *OpportunityService) save(ctx context.Context, opp domain.Opportunity) error {
	if opp.Profit() < s.cfg.MinProfit {
		return nil
	}

	if age := s.now().Sub(opp.Detected()); age > s.cfg.MaxAge {
		s.stats.Stale()
		return nil
	}

	dup, err := s.seen.Seen(ctx, opp.Signature())
	if err != nil {
		// Fail open: a broken dedup backend must not silence the engine.
		s.logger.WarnContext(ctx, "dedup check failed",
			slog.String("signature", opp.Signature()),
			slog.String("error", err.Error()),
		)
	} else if dup {
		s.stats.Duplicate()
		return nil
	}

	id, err := s.store.SaveOpportunity(ctx, opp)
	if err != nil {
		return fmt.Errorf("service: save opportunity: %w", err)
	}
	s.stats.Persisted()
	s.logger.InfoContext(ctx, "opportunity persisted",
		slog.String("id", id),
		slog.String("entity", opp.Entity()),
		slog.Float64("profit_pct", opp.Profit()),
	)

	if s.notifier != nil {
		if err := s.notifier.SendOpportunityAlert(ctx, opp, id); err != nil {
			s.logger.WarnContext(ctx, "alert failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
