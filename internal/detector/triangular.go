package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/arbiterx/arbiter/internal/domain"
	"github.com/arbiterx/arbiter/internal/market"
	"github.com/arbiterx/arbiter/internal/stream"
)

// Triangular scans one venue for profitable 3-asset cycles. Paths are
// generated once at start; each order-book update re-evaluates only the
// paths touching the updated symbol, through a semaphore-bounded pool so a
// burst of updates cannot spawn unbounded evaluations.
type Triangular struct {
	conn       domain.ExchangeConnector
	books      *market.BookCache
	supervisor *stream.Supervisor
	sink       Sink

	feeMultiplier decimal.Decimal
	initial       decimal.Decimal
	minProfit     decimal.Decimal

	priorityAssets []string
	maxSymbols     int
	sem            *semaphore.Weighted
	logger         *slog.Logger
	now            func() time.Time

	pathsBySymbol map[string][]domain.TriangularPath
	symbols       []string
}

// TriangularConfig configures a per-venue triangular scanner.
type TriangularConfig struct {
	Connector  domain.ExchangeConnector
	Books      *market.BookCache
	Supervisor *stream.Supervisor
	Sink       Sink
	// FeeMultiplier is applied once per leg (e.g. 0.999).
	FeeMultiplier float64
	// InitialNotional is the cycle's starting amount.
	InitialNotional float64
	// MinProfit is the engine-level minimum net profit percentage.
	MinProfit      float64
	PriorityAssets []string
	// MaxSymbols caps the number of watched symbols.
	MaxSymbols int
	// MaxConcurrentEvals bounds the re-evaluation pool.
	MaxConcurrentEvals int64
	Logger             *slog.Logger
}

// NewTriangular creates a triangular scanner for one venue.
func NewTriangular(cfg TriangularConfig) *Triangular {
	evals := cfg.MaxConcurrentEvals
	if evals < 1 {
		evals = 1
	}
	return &Triangular{
		conn:           cfg.Connector,
		books:          cfg.Books,
		supervisor:     cfg.Supervisor,
		sink:           cfg.Sink,
		feeMultiplier:  decimal.NewFromFloat(cfg.FeeMultiplier),
		initial:        decimal.NewFromFloat(cfg.InitialNotional),
		minProfit:      decimal.NewFromFloat(cfg.MinProfit),
		priorityAssets: cfg.PriorityAssets,
		maxSymbols:     cfg.MaxSymbols,
		sem:            semaphore.NewWeighted(evals),
		logger: cfg.Logger.With(
			slog.String("component", "triangular_detector"),
			slog.String("exchange", cfg.Connector.Name()),
		),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Prepare generates the venue's triangular paths and the symbol index. It
// must be called before Run.
func (d *Triangular) Prepare(ctx context.Context) error {
	markets, err := d.conn.LoadMarkets(ctx)
	if err != nil {
		return err
	}
	paths := GeneratePaths(markets, d.priorityAssets)
	d.pathsBySymbol, d.symbols = indexPaths(paths)
	if d.maxSymbols > 0 && len(d.symbols) > d.maxSymbols {
		d.symbols = d.symbols[:d.maxSymbols]
	}
	d.logger.Info("triangular paths generated",
		slog.Int("paths", len(paths)),
		slog.Int("symbols", len(d.symbols)),
	)
	return nil
}

// Run watches every indexed symbol and blocks until ctx is cancelled. When
// no paths were found the scanner exits immediately.
func (d *Triangular) Run(ctx context.Context) error {
	if len(d.symbols) == 0 {
		d.logger.Warn("no triangular paths found, scanner idle")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range d.symbols {
		symbol := symbol
		g.Go(func() error {
			d.supervisor.Watch(ctx, d.conn, symbol, d.onBookUpdate)
			return nil
		})
	}
	return g.Wait()
}

// onBookUpdate stores the snapshot and schedules re-evaluation of the
// affected paths. Acquiring the semaphore blocks the watch loop briefly
// when the pool is saturated, which is the backpressure we want.
func (d *Triangular) onBookUpdate(_ string, book domain.OrderBook) {
	d.books.Set(book)

	ctx := context.Background()
	for _, path := range d.pathsBySymbol[book.Symbol] {
		path := path
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer d.sem.Release(1)
			d.evaluate(ctx, path)
		}()
	}
}

// evaluate computes the cycle's net yield from cached top-of-book rates.
// Unresolvable rates (missing depth, zero price) abort silently at debug
// level; they are expected outcomes, not errors.
func (d *Triangular) evaluate(ctx context.Context, path domain.TriangularPath) {
	books, ok := d.books.GetAll(path.Pair1, path.Pair2, path.Pair3)
	if !ok {
		return
	}
	for _, b := range books {
		if !b.HasDepth() {
			return
		}
	}

	rate1, ok := conversionRate(path.Pair1, path.Asset2, path.Asset1, books[0], true)
	if !ok {
		d.debugAbort(path, path.Pair1)
		return
	}
	amount2 := d.initial.Mul(d.feeMultiplier).Div(rate1)

	rate2, ok := conversionRate(path.Pair2, path.Asset3, path.Asset2, books[1], true)
	if !ok {
		d.debugAbort(path, path.Pair2)
		return
	}
	amount3 := amount2.Mul(d.feeMultiplier).Div(rate2)

	rate3, ok := conversionRate(path.Pair3, path.Asset3, path.Asset1, books[2], false)
	if !ok {
		d.debugAbort(path, path.Pair3)
		return
	}
	finalAmount := amount3.Mul(rate3).Mul(d.feeMultiplier)

	profitPct := finalAmount.Sub(d.initial).Div(d.initial).Mul(decimal.NewFromInt(100))
	if profitPct.LessThanOrEqual(d.minProfit) {
		return
	}

	symbols := path.Symbols()
	cycle := path.AssetCycle()
	opp := domain.TriangularOpportunity{
		Exchange:      d.conn.Name(),
		TradingPath:   symbols[:],
		Assets:        cycle[:],
		ProfitPct:     profitPct.InexactFloat64(),
		InitialAmount: d.initial.InexactFloat64(),
		FinalAmount:   finalAmount.InexactFloat64(),
		DetectedAt:    d.now(),
	}
	d.logger.Info("triangular opportunity",
		slog.String("cycle", path.Asset1+"=>"+path.Asset2+"=>"+path.Asset3),
		slog.Float64("profit_pct", opp.ProfitPct),
	)
	d.sink.Publish(ctx, opp)
}

func (d *Triangular) debugAbort(path domain.TriangularPath, symbol string) {
	d.logger.Debug("rate unresolvable, skipping path",
		slog.String("symbol", symbol),
		slog.String("cycle", path.Asset1+"=>"+path.Asset2+"=>"+path.Asset3),
	)
}

// conversionRate resolves the top-of-book rate for converting quote into
// base (isBuy) or base into quote (!isBuy) through the given market symbol.
// When the symbol is the opposite orientation ("quote/base") the
// opposite-side price is inverted; a zero price resolves to no rate.
func conversionRate(pair, base, quote string, book domain.OrderBook, isBuy bool) (decimal.Decimal, bool) {
	if !book.HasDepth() {
		return decimal.Zero, false
	}
	switch pair {
	case base + "/" + quote:
		price := book.BestBid()
		if isBuy {
			price = book.BestAsk()
		}
		if price <= 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(price), true
	case quote + "/" + base:
		price := book.BestAsk()
		if isBuy {
			price = book.BestBid()
		}
		if price <= 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(1).Div(decimal.NewFromFloat(price)), true
	}
	return decimal.Zero, false
}
