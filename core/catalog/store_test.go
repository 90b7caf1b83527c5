package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	store := catalog.NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newEvent(title, url string, at time.Time) *catalog.Event {
	return &catalog.Event{
		ID:            uuid.NewString(),
		Title:         title,
		DateTime:      at,
		VenueName:     "Town Hall",
		City:          catalog.DefaultCity,
		Category:      catalog.Tags{"Music"},
		SourceName:    "Test",
		SourceURL:     catalog.NullableURL(url),
		Status:        catalog.StatusNew,
		LastScrapedAt: at,
	}
}

func TestStore_CreateAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	ev := newEvent("Jazz Night", "https://example.com/jazz", at)
	require.NoError(t, store.Create(ctx, ev))
	assert.Equal(t, int64(1), ev.Version)

	found, err := store.FindBySourceURL(ctx, "https://example.com/jazz")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ev.ID, found.ID)
	assert.Equal(t, catalog.Tags{"Music"}, found.Category)
	assert.True(t, found.DateTime.Equal(at))

	missing, err := store.FindBySourceURL(ctx, "https://example.com/nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byKey, err := store.FindByKey(ctx, "Jazz Night", at, "Town Hall")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, ev.ID, byKey.ID)

	_, err = store.Get(ctx, "does-not-exist")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStore_SourceURLUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, newEvent("A", "https://example.com/a", at)))
	err := store.Create(ctx, newEvent("B", "https://example.com/a", at))
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	// Empty URLs are stored as NULL and never collide
	require.NoError(t, store.Create(ctx, newEvent("C", "", at)))
	require.NoError(t, store.Create(ctx, newEvent("D", "", at)))
}

func TestStore_FindByKeyOldestWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	newer := newEvent("Twin", "", at)
	newer.CreatedAt = at.Add(time.Hour)
	older := newEvent("Twin", "", at)
	older.CreatedAt = at
	require.NoError(t, store.Create(ctx, newer))
	require.NoError(t, store.Create(ctx, older))

	found, err := store.FindByKey(ctx, "Twin", at, "Town Hall")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, older.ID, found.ID)
}

func TestStore_CompareAndSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	ev := newEvent("Jazz Night", "https://example.com/jazz", at)
	require.NoError(t, store.Create(ctx, ev))

	next := *ev
	next.Description = "Live quartet"
	next.UpdatedAt = at
	ok, err := store.CompareAndSwap(ctx, &next, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), next.Version)

	// A writer holding the stale version loses
	stale := *ev
	stale.Description = "Stale"
	ok, err = store.CompareAndSwap(ctx, &stale, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Live quartet", got.Description)
	assert.Equal(t, int64(2), got.Version)
}

func TestStore_RetireRespectsClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	ev := newEvent("Gallery Opening", "https://example.com/gallery", at)
	require.NoError(t, store.Create(ctx, ev))

	claimed, err := store.Claim(ctx, ev.ID, "admin-1", "featured", at)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusImported, claimed.Status)
	assert.Equal(t, "featured", claimed.ImportNotes)
	require.NotNil(t, claimed.ImportedBy)
	assert.Equal(t, "admin-1", *claimed.ImportedBy)

	// Even with the fresh version, a claimed event cannot be retired
	ok, err := store.Retire(ctx, ev.ID, claimed.Version, at)
	require.NoError(t, err)
	assert.False(t, ok)

	unclaimed, err := store.Unclaim(ctx, ev.ID, at)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusNew, unclaimed.Status)
	assert.Nil(t, unclaimed.ImportedAt)

	// The version seen before unclaim is stale now
	ok, err = store.Retire(ctx, ev.ID, claimed.Version, at)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Retire(ctx, ev.ID, unclaimed.Version, at)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusInactive, got.Status)
}

func TestStore_ClaimMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Claim(context.Background(), "missing", "", "", time.Now())
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestStore_EachSweepCandidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, newEvent(fmt.Sprintf("E%d", i), fmt.Sprintf("https://example.com/%d", i), at)))
	}
	inactive := newEvent("Old", "https://example.com/old", at)
	inactive.Status = catalog.StatusInactive
	require.NoError(t, store.Create(ctx, inactive))
	claimed := newEvent("Claimed", "https://example.com/claimed", at)
	claimed.Status = catalog.StatusImported
	require.NoError(t, store.Create(ctx, claimed))

	var seen []string
	err := store.EachSweepCandidate(ctx, func(batch []catalog.Event) error {
		for _, ev := range batch {
			seen = append(seen, ev.Title)
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"E0", "E1", "E2"}, seen)
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	a := newEvent("Harbour Cruise", "https://example.com/cruise", base)
	b := newEvent("Founders Meetup", "https://example.com/meetup", base.Add(48*time.Hour))
	c := newEvent("Retired Show", "https://example.com/retired", base.Add(24*time.Hour))
	c.Status = catalog.StatusInactive
	d := newEvent("Melbourne Gig", "https://example.com/mel", base)
	d.City = "Melbourne"
	for _, ev := range []*catalog.Event{a, b, c, d} {
		require.NoError(t, store.Create(ctx, ev))
	}

	events, total, err := store.List(ctx, catalog.Filter{City: "Sydney"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, events, 2)
	assert.Equal(t, "Harbour Cruise", events[0].Title)
	assert.Equal(t, "Founders Meetup", events[1].Title)

	events, total, err = store.List(ctx, catalog.Filter{City: "Sydney", Status: catalog.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Retired Show", events[0].Title)

	events, _, err = store.List(ctx, catalog.Filter{Search: "CRUISE"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, a.ID, events[0].ID)

	from := base.Add(time.Hour)
	events, _, err = store.List(ctx, catalog.Filter{City: "Sydney", From: &from})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, b.ID, events[0].ID)

	events, total, err = store.List(ctx, catalog.Filter{City: "Sydney", IncludeInactive: true, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 1)
	assert.Equal(t, c.ID, events[0].ID)
}
