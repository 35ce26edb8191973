package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arbiterx/arbiter/internal/config"
	"github.com/arbiterx/arbiter/internal/dedup"
	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
	"github.com/arbiterx/arbiter/internal/notify"
	"github.com/arbiterx/arbiter/internal/service"
	"github.com/arbiterx/arbiter/internal/slippage"
	"github.com/arbiterx/arbiter/internal/store/base44"
	"github.com/arbiterx/arbiter/internal/stream"
)

// Dependencies bundles the long-lived collaborators the engine needs. It is
// constructed once by Wire and survives venue reconnects; per-venue state
// (connectors, balance tracker, orchestrator) is rebuilt each engine cycle.
type Dependencies struct {
	Store      *base44.Store
	SeenSet    domain.SeenSet
	Notifier   *notify.Notifier
	Stats      *service.Stats
	PriceCache *market.Cache
	Supervisor *stream.Supervisor
	Slippage   *slippage.Estimator
	Pipeline   *service.OpportunityService
}

// Wire constructs the concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	client := base44.NewClient(cfg.Store.BaseURL, cfg.Store.AppToken, cfg.Store.Timeout.Duration)
	deps.Store = base44.NewStore(client)

	switch cfg.Dedup.Backend {
	case "redis":
		seen, err := dedup.NewRedis(ctx, dedup.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		}, cfg.Dedup.TTL.Duration)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis dedup: %w", err)
		}
		closers = append(closers, func() { _ = seen.Close() })
		deps.SeenSet = seen
	default:
		deps.SeenSet = dedup.NewMemory(cfg.Dedup.TTL.Duration)
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	deps.Stats = service.NewStats()
	deps.PriceCache = market.NewCache()
	deps.Supervisor = stream.New(stream.Config{
		Cache:          deps.PriceCache,
		ReconnectDelay: cfg.Stream.ReconnectDelay.Duration,
		MaxDelay:       cfg.Stream.MaxReconnectDelay.Duration,
		Logger:         logger,
	})
	deps.Slippage = slippage.NewEstimator(cfg.Execution.SlippageTolerance)

	minProfit := cfg.Trading.StrategyMinProfit
	if cfg.Trading.MinProfitThreshold > minProfit {
		minProfit = cfg.Trading.MinProfitThreshold
	}
	deps.Pipeline = service.NewOpportunityService(
		deps.Store,
		deps.SeenSet,
		deps.Notifier,
		deps.Stats,
		service.OpportunityConfig{
			MinProfit: minProfit,
			MaxAge:    cfg.Execution.MaxOpportunityAge.Duration,
		},
		logger,
	)

	return deps, cleanup, nil
}
