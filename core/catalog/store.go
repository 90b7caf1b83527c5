package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SweepBatchSize is the page size used when scanning sweep candidates.
const SweepBatchSize = 500

// Store persists catalog events with gorm.
// Reconciliation writes are conditional on the row's version so concurrent writers
// never interleave partial updates on the same event.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new catalog store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for schema checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the events table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Event{}); err != nil {
		return classify("migrate events", err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("ping: %w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get loads an event by id.
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	var ev Event
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&ev).Error; err != nil {
		return nil, classify("get event", err)
	}
	return &ev, nil
}

// FindBySourceURL returns the event with the given source URL, or nil if none exists.
func (s *Store) FindBySourceURL(ctx context.Context, url string) (*Event, error) {
	if url == "" {
		return nil, nil
	}
	return s.findFirst(ctx, "find by source url", s.db.Where("source_url = ?", url))
}

// FindByKey returns the oldest event with exactly this title, date and venue, or nil.
// Duplicates under this key are a known data-quality limitation; the oldest wins.
func (s *Store) FindByKey(ctx context.Context, title string, dateTime time.Time, venue string) (*Event, error) {
	q := s.db.Where("title = ? AND date_time = ? AND venue_name = ?", title, dateTime.UTC(), venue)
	return s.findFirst(ctx, "find by key", q)
}

func (s *Store) findFirst(ctx context.Context, op string, q *gorm.DB) (*Event, error) {
	var found []Event
	err := q.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, classify(op, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// Create inserts a new event. A source URL collision returns ErrDuplicate.
func (s *Store) Create(ctx context.Context, ev *Event) error {
	if ev.Version == 0 {
		ev.Version = 1
	}
	if ev.Category == nil {
		ev.Category = Tags{}
	}
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return classify("create event", err)
	}
	return nil
}

// CompareAndSwap writes next over the stored row only if the row still has expectedVersion.
// It returns false when another writer got there first.
func (s *Store) CompareAndSwap(ctx context.Context, next *Event, expectedVersion int64) (bool, error) {
	if next.Category == nil {
		next.Category = Tags{}
	}
	updates := map[string]any{
		"title":           next.Title,
		"description":     next.Description,
		"short_summary":   next.ShortSummary,
		"date_time":       next.DateTime.UTC(),
		"date_estimated":  next.DateEstimated,
		"venue_name":      next.VenueName,
		"venue_address":   next.VenueAddress,
		"city":            next.City,
		"category":        next.Category,
		"image_url":       next.ImageURL,
		"source_name":     next.SourceName,
		"source_url":      next.SourceURL,
		"status":          next.Status,
		"last_scraped_at": next.LastScrapedAt.UTC(),
		"version":         expectedVersion + 1,
		"updated_at":      next.UpdatedAt.UTC(),
	}

	res := s.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND version = ?", next.ID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, classify("update event", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	next.Version = expectedVersion + 1
	return true, nil
}

// EachSweepCandidate calls fn with pages of events that the sweeper may retire:
// everything that is neither claimed nor already inactive.
func (s *Store) EachSweepCandidate(ctx context.Context, fn func([]Event) error) error {
	var batch []Event
	res := s.db.WithContext(ctx).
		Where("status NOT IN ?", []Status{StatusImported, StatusInactive}).
		FindInBatches(&batch, SweepBatchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		})
	if res.Error != nil {
		return classify("scan sweep candidates", res.Error)
	}
	return nil
}

// Retire marks an event inactive if it still has expectedVersion and has not been claimed
// in the meantime. It returns false when the guard rejected the write.
func (s *Store) Retire(ctx context.Context, id string, expectedVersion int64, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND version = ? AND status NOT IN ?", id, expectedVersion, []Status{StatusImported, StatusInactive}).
		Updates(map[string]any{
			"status":     StatusInactive,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at.UTC(),
		})
	if res.Error != nil {
		return false, classify("retire event", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Claim marks an event as imported by actor. Reconciliation never changes its status afterwards.
func (s *Store) Claim(ctx context.Context, id, actor, notes string, at time.Time) (*Event, error) {
	at = at.UTC()
	updates := map[string]any{
		"status":       StatusImported,
		"imported_at":  &at,
		"import_notes": notes,
		"version":      gorm.Expr("version + 1"),
		"updated_at":   at,
	}
	if actor != "" {
		updates["imported_by"] = actor
	}

	res := s.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, classify("claim event", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("claim event %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Unclaim returns an imported event to automated management with status new.
// Events that are not claimed are returned unchanged.
func (s *Store) Unclaim(ctx context.Context, id string, at time.Time) (*Event, error) {
	res := s.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND status = ?", id, StatusImported).
		Updates(map[string]any{
			"status":       StatusNew,
			"imported_at":  nil,
			"imported_by":  nil,
			"import_notes": "",
			"version":      gorm.Expr("version + 1"),
			"updated_at":   at.UTC(),
		})
	if res.Error != nil {
		return nil, classify("unclaim event", res.Error)
	}
	return s.Get(ctx, id)
}

// Filter narrows List results.
type Filter struct {
	City   string
	Status Status
	// IncludeInactive returns retired events when Status is empty.
	IncludeInactive bool
	Search          string
	From            *time.Time
	To              *time.Time
	Page            int
	Limit           int
}

// List returns a page of events ordered by date, plus the total number of matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if f.City != "" {
			q = q.Where("city = ?", f.City)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		} else if !f.IncludeInactive {
			q = q.Where("status <> ?", StatusInactive)
		}
		if f.Search != "" {
			like := "%" + strings.ToLower(f.Search) + "%"
			q = q.Where("(LOWER(title) LIKE ? OR LOWER(venue_name) LIKE ? OR LOWER(description) LIKE ?)", like, like, like)
		}
		if f.From != nil {
			q = q.Where("date_time >= ?", f.From.UTC())
		}
		if f.To != nil {
			q = q.Where("date_time <= ?", f.To.UTC())
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Event{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, classify("count events", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	var events []Event
	err := s.db.WithContext(ctx).
		Scopes(scope).
		Order("date_time ASC").
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, classify("list events", err)
	}
	return events, total, nil
}
