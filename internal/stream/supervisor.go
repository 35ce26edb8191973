// Package stream owns the long-lived order-book subscriptions. One watch
// loop runs per (venue, symbol) pair and retries forever with exponential
// backoff; valid updates land in the shared price cache.
package stream

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
)

// BookHandler receives every validated depth snapshot from a watch loop.
type BookHandler func(exchange string, book domain.OrderBook)

// Supervisor maintains always-retrying order-book subscriptions and writes
// validated top-of-book quotes into the price cache.
type Supervisor struct {
	cache          *market.Cache
	reconnectDelay time.Duration
	maxDelay       time.Duration
	logger         *slog.Logger
}

// Config configures a Supervisor.
type Config struct {
	Cache          *market.Cache
	ReconnectDelay time.Duration
	MaxDelay       time.Duration
	Logger         *slog.Logger
}

// New creates a Supervisor writing into cfg.Cache.
func New(cfg Config) *Supervisor {
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 300 * time.Second
	}
	return &Supervisor{
		cache:          cfg.Cache,
		reconnectDelay: cfg.ReconnectDelay,
		maxDelay:       maxDelay,
		logger:         cfg.Logger.With(slog.String("component", "stream_supervisor")),
	}
}

// Run spawns one watch loop per (connector, symbol) and blocks until ctx is
// cancelled.
func (s *Supervisor) Run(ctx context.Context, conns []domain.ExchangeConnector, symbols []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		for _, symbol := range symbols {
			conn, symbol := conn, symbol
			g.Go(func() error {
				s.Watch(ctx, conn, symbol, nil)
				return nil
			})
		}
	}
	return g.Wait()
}

// Watch runs the subscription loop for one (venue, symbol) until ctx is
// cancelled. On each valid update the top-of-book quote is written to the
// price cache and onBook, when set, receives the full snapshot. Subscribe
// failures close the connection defensively and retry with exponential
// backoff capped at MaxDelay; the attempt counter resets after any
// successful update.
func (s *Supervisor) Watch(ctx context.Context, conn domain.ExchangeConnector, symbol string, onBook BookHandler) {
	log := s.logger.With(
		slog.String("exchange", conn.Name()),
		slog.String("symbol", symbol),
	)
	log.Info("stream watcher started")
	defer log.Info("stream watcher stopped")

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		book, err := conn.WatchOrderBook(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Make sure the connection is down before a fresh attempt.
			if cerr := conn.Close(); cerr != nil {
				log.Debug("close after stream error failed", slog.String("error", cerr.Error()))
			}

			delay := s.backoff(attempts)
			log.Warn("stream error, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", delay),
				slog.Int("attempts", attempts),
			)
			attempts++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		if !book.HasDepth() {
			log.Warn("dropping partial order book update")
			continue
		}

		ts := book.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if err := s.cache.Set(domain.PriceQuote{
			Exchange:  conn.Name(),
			Symbol:    symbol,
			Bid:       book.BestBid(),
			Ask:       book.BestAsk(),
			Timestamp: ts,
		}); err != nil {
			log.Warn("dropping invalid quote", slog.String("error", err.Error()))
			continue
		}
		attempts = 0

		if onBook != nil {
			onBook(conn.Name(), book)
		}
	}
}

// backoff returns min(reconnectDelay * 2^attempts, maxDelay).
func (s *Supervisor) backoff(attempts int) time.Duration {
	delay := s.reconnectDelay
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.maxDelay {
			return s.maxDelay
		}
	}
	if delay > s.maxDelay {
		return s.maxDelay
	}
	return delay
}
