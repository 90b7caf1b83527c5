package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-catalog/core/catalog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is what the upsert executor did with one record.
type Outcome struct {
	Event    *catalog.Event
	Created  bool
	Changes  []string
	Attempts int
}

// Upserter applies canonical records to the store with optimistic concurrency.
type Upserter struct {
	store          Store
	matcher        *Matcher
	logger         *zap.Logger
	maxAttempts    int
	refreshClaimed bool
	newID          func() string
}

// NewUpserter creates an upsert executor.
func NewUpserter(store Store, logger *zap.Logger, maxAttempts int, refreshClaimed bool) *Upserter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultConfig().MaxAttempts
	}
	return &Upserter{
		store:          store,
		matcher:        NewMatcher(store),
		logger:         logger,
		maxAttempts:    maxAttempts,
		refreshClaimed: refreshClaimed,
		newID:          uuid.NewString,
	}
}

// Upsert matches rec and creates or updates its event. Losing a race, either
// on the unique source URL or on the version check, re-runs the match so the
// write is based on the current row. Re-applying the same record is a no-op
// apart from LastScrapedAt.
func (u *Upserter) Upsert(ctx context.Context, rec Record, runAt time.Time) (*Outcome, error) {
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, err := u.matcher.Match(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", rec.Title, err)
		}
		status := ResolveStatus(existing, rec)

		if existing == nil {
			ev := NewEvent(u.newID(), rec, status, runAt)
			err := u.store.Create(ctx, ev)
			if errors.Is(err, catalog.ErrDuplicate) {
				u.logger.Debug("Event created concurrently, retrying as update",
					zap.String("source_url", rec.SourceURL),
					zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("create %q: %w", rec.Title, err)
			}
			return &Outcome{Event: ev, Created: true, Attempts: attempt}, nil
		}

		next := Apply(existing, rec, status, runAt, u.refreshClaimed)
		ok, err := u.store.CompareAndSwap(ctx, next, existing.Version)
		if errors.Is(err, catalog.ErrDuplicate) {
			u.logger.Debug("Source url taken concurrently, re-matching",
				zap.String("event_id", existing.ID),
				zap.String("source_url", rec.SourceURL),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", existing.ID, err)
		}
		if !ok {
			u.logger.Debug("Version conflict, retrying",
				zap.String("event_id", existing.ID),
				zap.Int64("version", existing.Version),
				zap.Int("attempt", attempt))
			continue
		}
		out := &Outcome{Event: next, Attempts: attempt}
		if !existing.Claimed() || u.refreshClaimed {
			out.Changes = Diff(existing, rec)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q after %d attempts", ErrConflict, rec.Title, u.maxAttempts)
}
