package events

import (
	"context"
	"time"

	"event-catalog/core/catalog"

	"go.uber.org/zap"
)

// Page is one page of list results.
type Page struct {
	Items []catalog.Event `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// Service provides the administrative view of the catalog.
type Service struct {
	store  *catalog.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new events service.
func NewService(store *catalog.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// List returns the events matching f.
func (s *Service) List(ctx context.Context, f catalog.Filter) (*Page, error) {
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []catalog.Event{}
	}
	return &Page{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Get returns a single event.
func (s *Service) Get(ctx context.Context, id string) (*catalog.Event, error) {
	return s.store.Get(ctx, id)
}

// Claim imports an event into the curated catalog. Reconciliation keeps its
// status and editorial fields from then on.
func (s *Service) Claim(ctx context.Context, id, actor, notes string) (*catalog.Event, error) {
	ev, err := s.store.Claim(ctx, id, actor, notes, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Event claimed", zap.String("event_id", id), zap.String("actor", actor))
	return ev, nil
}

// Unclaim hands an imported event back to reconciliation.
func (s *Service) Unclaim(ctx context.Context, id string) (*catalog.Event, error) {
	ev, err := s.store.Unclaim(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Event unclaimed", zap.String("event_id", id))
	return ev, nil
}
