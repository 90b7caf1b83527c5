package reconcile

import (
	"context"

	"event-catalog/core/catalog"
)

// Matcher finds the catalog event a canonical record refers to.
type Matcher struct {
	store Store
}

// NewMatcher creates a matcher over store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Match returns the existing event for rec, or nil if rec is new.
// The source URL is tried first, then the exact (title, date, venue) triple.
// Comparison is case-sensitive and never fuzzy.
func (m *Matcher) Match(ctx context.Context, rec Record) (*catalog.Event, error) {
	if rec.SourceURL != "" {
		ev, err := m.store.FindBySourceURL(ctx, rec.SourceURL)
		if err != nil || ev != nil {
			return ev, err
		}
	}
	if !rec.HasFallbackKey() {
		return nil, nil
	}
	return m.store.FindByKey(ctx, rec.Title, rec.DateTime, rec.VenueName)
}
