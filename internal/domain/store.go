package domain

import "context"

// OpportunityStore persists detected opportunities to the external entity
// store and fetches them back by identifier at execution time.
type OpportunityStore interface {
	// SaveOpportunity persists opp and returns the store-assigned identifier.
	SaveOpportunity(ctx context.Context, opp Opportunity) (string, error)
	// GetCrossOpportunity fetches a cross-exchange opportunity by id.
	// Returns ErrNotFound when the record does not exist.
	GetCrossOpportunity(ctx context.Context, id string) (CrossOpportunity, error)
	// GetTriangularOpportunity fetches a triangular opportunity by id.
	GetTriangularOpportunity(ctx context.Context, id string) (TriangularOpportunity, error)
}

// TradeStore persists executed-trade records.
type TradeStore interface {
	// LogTrade persists the record and returns the store-assigned trade id.
	LogTrade(ctx context.Context, log TradeLog) (string, error)
}

// ExchangeConfig is one venue's configuration row from the entity store.
type ExchangeConfig struct {
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	IsActive  bool   `json:"is_active"`
}

// ExchangeConfigStore provides the active venue configuration, consumed at
// startup and by the periodic config-change watcher.
type ExchangeConfigStore interface {
	FetchExchangeConfigs(ctx context.Context) ([]ExchangeConfig, error)
}

// Notifier delivers best-effort opportunity alerts. Failures are logged by
// callers, never propagated.
type Notifier interface {
	SendOpportunityAlert(ctx context.Context, opp Opportunity, persistedID string) error
}

// SeenSet is a time-bounded set of opportunity signatures used to suppress
// duplicate persist/notify calls within the TTL window.
type SeenSet interface {
	// Seen reports whether signature was recorded within the TTL window,
	// recording it if absent.
	Seen(ctx context.Context, signature string) (bool, error)
}
