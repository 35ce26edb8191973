package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

type stubStore struct {
	saved   []domain.Opportunity
	saveErr error
}

func (s *stubStore) SaveOpportunity(_ context.Context, opp domain.Opportunity) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, opp)
	return "id-1", nil
}
func (s *stubStore) GetCrossOpportunity(context.Context, string) (domain.CrossOpportunity, error) {
	return domain.CrossOpportunity{}, domain.ErrNotFound
}
func (s *stubStore) GetTriangularOpportunity(context.Context, string) (domain.TriangularOpportunity, error) {
	return domain.TriangularOpportunity{}, domain.ErrNotFound
}

type stubSeen struct {
	dup bool
	err error
}

func (s *stubSeen) Seen(context.Context, string) (bool, error) { return s.dup, s.err }

type stubNotifier struct {
	alerts []string
	err    error
}

func (n *stubNotifier) SendOpportunityAlert(_ context.Context, _ domain.Opportunity, id string) error {
	n.alerts = append(n.alerts, id)
	return n.err
}

func sampleOpp(detected time.Time, profitPct float64) domain.CrossOpportunity {
	return domain.CrossOpportunity{
		TradingPair:  "BTC/USDT",
		BuyExchange:  "binance",
		SellExchange: "kraken",
		BuyPrice:     100,
		SellPrice:    101.6,
		ProfitPct:    profitPct,
		DetectedAt:   detected,
	}
}

func newPipeline(store *stubStore, seen domain.SeenSet, notifier domain.Notifier) *OpportunityService {
	return NewOpportunityService(store, seen, notifier, NewStats(), OpportunityConfig{
		MinProfit: 0.5,
		MaxAge:    10 * time.Second,
	}, slog.Default())
}

func TestPublish_PersistsAndAlerts(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	notifier := &stubNotifier{}
	svc := newPipeline(store, &stubSeen{}, notifier)
	svc.now = func() time.Time { return now }

	svc.Publish(context.Background(), sampleOpp(now.Add(-2*time.Second), 1.6))

	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"id-1"}, notifier.alerts)
}

func TestPublish_DropsBelowMinProfit(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	svc := newPipeline(store, &stubSeen{}, nil)
	svc.now = func() time.Time { return now }

	svc.Publish(context.Background(), sampleOpp(now, 0.4))

	assert.Empty(t, store.saved)
}

func TestPublish_DropsStale(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	svc := newPipeline(store, &stubSeen{}, nil)
	svc.now = func() time.Time { return now }

	svc.Publish(context.Background(), sampleOpp(now.Add(-11*time.Second), 1.6))

	assert.Empty(t, store.saved)
}

func TestPublish_SuppressesDuplicates(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	notifier := &stubNotifier{}
	svc := newPipeline(store, &stubSeen{dup: true}, notifier)
	svc.now = func() time.Time { return now }

	svc.Publish(context.Background(), sampleOpp(now, 1.6))

	assert.Empty(t, store.saved)
	assert.Empty(t, notifier.alerts)
}

func TestPublish_FailsOpenOnBrokenDedup(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	svc := newPipeline(store, &stubSeen{err: errors.New("redis down")}, nil)
	svc.now = func() time.Time { return now }

	svc.Publish(context.Background(), sampleOpp(now, 1.6))

	require.Len(t, store.saved, 1, "a broken dedup backend must not silence the engine")
}

func TestPublish_NotifierFailureDoesNotPropagate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := &stubStore{}
	notifier := &stubNotifier{err: errors.New("webhook 500")}
	svc := newPipeline(store, &stubSeen{}, notifier)
	svc.now = func() time.Time { return now }

	// Publish never returns an error; the opportunity must still persist.
	svc.Publish(context.Background(), sampleOpp(now, 1.6))

	require.Len(t, store.saved, 1)
}
