package app

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/arbiterx/arbiter/internal/domain"
)

// errConfigChanged ends an engine cycle so venues reconnect from the new
// exchange configuration.
var errConfigChanged = errors.New("exchange configuration changed")

// configWatcher polls the exchange configuration store and signals when the
// venue set or any credential differs from the set the engine started with.
type configWatcher struct {
	store    domain.ExchangeConfigStore
	interval time.Duration
	logger   *slog.Logger
}

func newConfigWatcher(store domain.ExchangeConfigStore, interval time.Duration, logger *slog.Logger) *configWatcher {
	return &configWatcher{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "config_watcher")),
	}
}

// Run polls until ctx is cancelled, returning errConfigChanged on the first
// detected difference. Fetch failures are logged and skipped; a transient
// store outage must not tear the engine down.
func (w *configWatcher) Run(ctx context.Context, current []domain.ExchangeConfig) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest, err := w.store.FetchExchangeConfigs(ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "exchange config poll failed",
				slog.String("error", err.Error()),
			)
			continue
		}
		if !configsEqual(current, latest) {
			return errConfigChanged
		}
	}
}

// configsEqual compares two exchange configuration sets ignoring order.
func configsEqual(a, b []domain.ExchangeConfig) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]domain.ExchangeConfig(nil), a...)
	bs := append([]domain.ExchangeConfig(nil), b...)
	byName := func(s []domain.ExchangeConfig) {
		sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	}
	byName(as)
	byName(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
