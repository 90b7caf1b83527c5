package reconcile

import (
	"context"
	"time"

	"event-catalog/core/catalog"
)

// Store is the persistence the engine needs. *catalog.Store implements it.
type Store interface {
	Ping(ctx context.Context) error
	FindBySourceURL(ctx context.Context, url string) (*catalog.Event, error)
	FindByKey(ctx context.Context, title string, dateTime time.Time, venue string) (*catalog.Event, error)
	Create(ctx context.Context, ev *catalog.Event) error
	CompareAndSwap(ctx context.Context, next *catalog.Event, expectedVersion int64) (bool, error)
	EachSweepCandidate(ctx context.Context, fn func([]catalog.Event) error) error
	Retire(ctx context.Context, id string, expectedVersion int64, at time.Time) (bool, error)
}

var _ Store = (*catalog.Store)(nil)
