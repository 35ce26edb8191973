package base44

import (
	"context"
	"fmt"

	"github.com/arbiterx/arbiter/internal/domain"
)

const entityExchange = "Exchange"

// Store adapts the Base44 entity client to the domain store interfaces.
type Store struct {
	client *Client
}

// NewStore wraps a Base44 client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// SaveOpportunity persists either opportunity variant under its own entity
// type and returns the assigned ID.
func (s *Store) SaveOpportunity(ctx context.Context, opp domain.Opportunity) (string, error) {
	return s.client.CreateEntity(ctx, opp.Entity(), opp)
}

// GetCrossOpportunity fetches a persisted cross-exchange opportunity.
func (s *Store) GetCrossOpportunity(ctx context.Context, id string) (domain.CrossOpportunity, error) {
	var opp domain.CrossOpportunity
	if err := s.client.GetEntity(ctx, domain.EntityCrossOpportunity, id, &opp); err != nil {
		return domain.CrossOpportunity{}, err
	}
	opp.ID = id
	return opp, nil
}

// GetTriangularOpportunity fetches a persisted triangular opportunity.
func (s *Store) GetTriangularOpportunity(ctx context.Context, id string) (domain.TriangularOpportunity, error) {
	var opp domain.TriangularOpportunity
	if err := s.client.GetEntity(ctx, domain.EntityTriangularOpportunity, id, &opp); err != nil {
		return domain.TriangularOpportunity{}, err
	}
	opp.ID = id
	return opp, nil
}

// LogTrade persists a trade record and returns its ID.
func (s *Store) LogTrade(ctx context.Context, log domain.TradeLog) (string, error) {
	id, err := s.client.CreateEntity(ctx, "Trade", log)
	if err != nil {
		return "", fmt.Errorf("base44: log trade: %w", err)
	}
	return id, nil
}

// FetchExchangeConfigs lists the venue credential records. Inactive venues
// are included; the caller filters on IsActive.
func (s *Store) FetchExchangeConfigs(ctx context.Context) ([]domain.ExchangeConfig, error) {
	var configs []domain.ExchangeConfig
	if err := s.client.ListEntities(ctx, entityExchange, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}
