package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/database"
	"event-catalog/core/reconcile"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/mysql"
)

var baseTime = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	store := catalog.NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func staticSource(name string, records ...reconcile.RawRecord) reconcile.Source {
	return reconcile.NewSourceFunc(name, func(context.Context) ([]reconcile.RawRecord, error) {
		return records, nil
	})
}

func failingSource(name string) reconcile.Source {
	return reconcile.NewSourceFunc(name, func(context.Context) ([]reconcile.RawRecord, error) {
		return nil, errors.New("upstream returned 503")
	})
}

func raw(title, url string, at time.Time) reconcile.RawRecord {
	return reconcile.RawRecord{
		Title:       title,
		Description: "An evening of " + title,
		DateTime:    &at,
		VenueName:   "Opera House",
		Category:    []string{"Music"},
		SourceName:  "feed",
		SourceURL:   url,
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newEngine(t *testing.T, store reconcile.Store, c *clock, sources ...reconcile.Source) *reconcile.Engine {
	t.Helper()
	cfg := reconcile.DefaultConfig()
	cfg.Workers = 3
	return reconcile.NewEngine(store, sources, cfg, zaptest.NewLogger(t), reconcile.WithClock(c.Now))
}

func allEvents(t *testing.T, store *catalog.Store) []catalog.Event {
	t.Helper()
	var events []catalog.Event
	require.NoError(t, store.DB().Order("created_at, id").Find(&events).Error)
	return events
}

func seed(t *testing.T, store *catalog.Store, ev *catalog.Event) *catalog.Event {
	t.Helper()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.City == "" {
		ev.City = catalog.DefaultCity
	}
	if ev.SourceName == "" {
		ev.SourceName = "feed"
	}
	if ev.Status == "" {
		ev.Status = catalog.StatusNew
	}
	require.NoError(t, store.Create(context.Background(), ev))
	return ev
}

func TestEngine_RunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(72 * time.Hour)
	src := staticSource("feed",
		raw("Jazz Night", "https://x/1", when),
		raw("Rock Show", "https://x/2", when),
		reconcile.RawRecord{Title: "Market", DateTime: &when, VenueName: "Rocks", SourceName: "feed"},
	)
	engine := newEngine(t, store, c, src)

	first, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalObserved)
	assert.Equal(t, 3, first.ProcessedCount)
	assert.Equal(t, 3, first.Created)
	before := allEvents(t, store)

	c.now = baseTime.Add(6 * time.Hour)
	second, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, second.ProcessedCount)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	after := allEvents(t, store)

	require.Len(t, after, len(before))
	for i := range before {
		b, a := before[i], after[i]
		assert.Equal(t, b.ID, a.ID)
		assert.Equal(t, b.Title, a.Title)
		assert.Equal(t, b.Description, a.Description)
		assert.True(t, b.DateTime.Equal(a.DateTime))
		assert.Equal(t, b.VenueName, a.VenueName)
		assert.Equal(t, b.Category, a.Category)
		assert.Equal(t, b.URL(), a.URL())
		assert.Equal(t, catalog.StatusNew, a.Status)
		assert.True(t, a.LastScrapedAt.Equal(c.now))
	}
}

func TestEngine_SourceURLStaysUnique(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(48 * time.Hour)
	a := raw("Jazz Night", "https://x/1", when)
	b := raw("Jazz Night (late show)", "https://x/1", when)
	engine := newEngine(t, store, c, staticSource("one", a), staticSource("two", b))

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProcessedCount)
	require.Len(t, summary.TouchedEntities, 1)

	events := allEvents(t, store)
	require.Len(t, events, 1)
	// Sources are concatenated in order and a shared key is applied in arrival order.
	assert.Equal(t, "Jazz Night (late show)", events[0].Title)
	assert.Equal(t, catalog.StatusUpdated, events[0].Status)
}

func TestEngine_ClaimedEventStaysImported(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(48 * time.Hour)
	ev := seed(t, store, &catalog.Event{
		Title:         "Jazz Night",
		DateTime:      when,
		VenueName:     "Opera House",
		SourceURL:     catalog.NullableURL("https://x/1"),
		LastScrapedAt: baseTime.Add(-time.Hour),
	})
	_, err := store.Claim(context.Background(), ev.ID, "admin-1", "featured", baseTime)
	require.NoError(t, err)

	changed := raw("Jazz Night: Sold Out", "https://x/1", when.Add(time.Hour))
	_, err = newEngine(t, store, c, staticSource("feed", changed)).Run(context.Background())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusImported, got.Status)
	assert.Equal(t, "Jazz Night", got.Title)
	assert.True(t, got.LastScrapedAt.Equal(baseTime))
	require.NotNil(t, got.ImportedBy)
	assert.Equal(t, "admin-1", *got.ImportedBy)
}

func TestEngine_RefreshClaimedKeepsImportedStatus(t *testing.T) {
	store := newTestStore(t)
	when := baseTime.Add(48 * time.Hour)
	ev := seed(t, store, &catalog.Event{
		Title:         "Jazz Night",
		DateTime:      when,
		VenueName:     "Opera House",
		SourceURL:     catalog.NullableURL("https://x/1"),
		LastScrapedAt: baseTime,
	})
	_, err := store.Claim(context.Background(), ev.ID, "admin-1", "", baseTime)
	require.NoError(t, err)

	cfg := reconcile.DefaultConfig()
	cfg.RefreshClaimed = true
	c := &clock{now: baseTime}
	engine := reconcile.NewEngine(store, []reconcile.Source{
		staticSource("feed", raw("Jazz Night: Sold Out", "https://x/1", when)),
	}, cfg, zap.NewNop(), reconcile.WithClock(c.Now))
	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusImported, got.Status)
	assert.Equal(t, "Jazz Night: Sold Out", got.Title)
}

func TestEngine_StatusFollowsTrackedFields(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)

	unchanged := seed(t, store, &catalog.Event{
		Title: "A", Description: "same", DateTime: when, VenueName: "V",
		Category: catalog.Tags{}, LastScrapedAt: baseTime,
	})
	edited := seed(t, store, &catalog.Event{
		Title: "B", Description: "old", DateTime: when, VenueName: "V",
		Category: catalog.Tags{}, LastScrapedAt: baseTime,
	})

	src := staticSource("feed",
		reconcile.RawRecord{Title: "A", Description: "same", DateTime: &when, VenueName: "V", SourceName: "feed"},
		reconcile.RawRecord{Title: "B", Description: "new", DateTime: &when, VenueName: "V", SourceName: "feed"},
	)
	summary, err := newEngine(t, store, c, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	got, err := store.Get(context.Background(), unchanged.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusNew, got.Status)

	got, err = store.Get(context.Background(), edited.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusUpdated, got.Status)
	assert.Equal(t, "new", got.Description)
}

func TestEngine_FallsBackToTitleDateVenue(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	existing := seed(t, store, &catalog.Event{
		Title: "Jazz Night", DateTime: when, VenueName: "Opera House",
		Description: "An evening of Jazz Night", Category: catalog.Tags{"Music"},
		LastScrapedAt: baseTime.Add(-time.Hour),
	})

	summary, err := newEngine(t, store, c, staticSource("feed", raw("Jazz Night", "https://x/1", when))).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.TouchedEntities, 1)
	assert.Equal(t, existing.ID, summary.TouchedEntities[0].ID)

	events := allEvents(t, store)
	require.Len(t, events, 1)
	assert.Equal(t, "https://x/1", events[0].URL())
}

// slowKeyStore widens the window between a triple lookup and the write that follows it.
type slowKeyStore struct {
	*catalog.Store
	delay time.Duration
}

func (s *slowKeyStore) FindByKey(ctx context.Context, title string, dateTime time.Time, venue string) (*catalog.Event, error) {
	ev, err := s.Store.FindByKey(ctx, title, dateTime, venue)
	time.Sleep(s.delay)
	return ev, err
}

func TestEngine_SharedTripleIsSerializedAcrossLanes(t *testing.T) {
	store := newTestStore(t)
	when := baseTime.Add(48 * time.Hour)

	var raws []reconcile.RawRecord
	for i := 0; i < 16; i++ {
		title := fmt.Sprintf("Gig %d", i)
		first := raw(title, fmt.Sprintf("https://tickets.example.com/%d", i), when)
		second := raw(title, "", when)
		if i%2 == 1 {
			second.SourceURL = fmt.Sprintf("https://mirror.example.com/%d", i)
		}
		raws = append(raws, first, second)
	}

	cfg := reconcile.DefaultConfig()
	cfg.Workers = 8
	engine := reconcile.NewEngine(&slowKeyStore{Store: store, delay: 20 * time.Millisecond}, nil, cfg,
		zaptest.NewLogger(t), reconcile.WithClock(func() time.Time { return baseTime }))

	summary, err := engine.Ingest(context.Background(), raws)
	require.NoError(t, err)
	assert.Equal(t, 32, summary.ProcessedCount)
	assert.Equal(t, 16, summary.Created)
	assert.Zero(t, summary.Failed)

	events := allEvents(t, store)
	require.Len(t, events, 16, "one event per (title, date, venue) regardless of lane count")
	for _, ev := range events {
		assert.NotEmpty(t, ev.URL(), "%s kept a source url", ev.Title)
	}
}

func TestEngine_EmptyVenueFormsAKey(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	talk := reconcile.RawRecord{Title: "Online talk", DateTime: &when, SourceName: "feed"}

	engine := newEngine(t, store, c, staticSource("feed", talk, talk))
	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Dropped)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, allEvents(t, store), 1)
}

func TestEngine_SweepsUnseenEvents(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	day := 24 * time.Hour

	past := seed(t, store, &catalog.Event{
		Title: "Yesterday", DateTime: baseTime.Add(-day), VenueName: "V", LastScrapedAt: baseTime.Add(-day),
	})
	stale := seed(t, store, &catalog.Event{
		Title: "Stale", DateTime: baseTime.Add(7 * day), VenueName: "V", LastScrapedAt: baseTime.Add(-10 * day),
	})
	fresh := seed(t, store, &catalog.Event{
		Title: "Fresh", DateTime: baseTime.Add(7 * day), VenueName: "V", LastScrapedAt: baseTime.Add(-day),
	})
	claimed := seed(t, store, &catalog.Event{
		Title: "Claimed", DateTime: baseTime.Add(-day), VenueName: "V", LastScrapedAt: baseTime.Add(-30 * day),
	})
	_, err := store.Claim(context.Background(), claimed.ID, "admin", "", baseTime)
	require.NoError(t, err)

	summary, err := newEngine(t, store, c).Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{past.ID, stale.ID}, summary.Sweep.Retired)

	status := func(id string) catalog.Status {
		ev, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		return ev.Status
	}
	assert.Equal(t, catalog.StatusInactive, status(past.ID))
	assert.Equal(t, catalog.StatusInactive, status(stale.ID))
	assert.Equal(t, catalog.StatusNew, status(fresh.ID))
	assert.Equal(t, catalog.StatusImported, status(claimed.ID))
}

func TestEngine_SeenEventsAreNotSwept(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	// The listing is still published although it started an hour ago.
	started := baseTime.Add(-time.Hour)
	_, err := newEngine(t, store, c, staticSource("feed", raw("Festival", "https://x/f", started))).Run(context.Background())
	require.NoError(t, err)

	events := allEvents(t, store)
	require.Len(t, events, 1)
	assert.Equal(t, catalog.StatusNew, events[0].Status)
}

func TestEngine_PartialSourceFailure(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	engine := newEngine(t, store, c,
		staticSource("one", raw("A", "https://x/a", when), raw("B", "https://x/b", when)),
		failingSource("two"),
		staticSource("three", raw("C", "https://x/c", when)),
	)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalObserved)
	assert.Equal(t, 3, summary.ProcessedCount)
	require.Len(t, summary.Sources, 3)
	assert.Equal(t, 2, summary.Sources[0].Records)
	assert.NotEmpty(t, summary.Sources[1].Error)
	assert.Zero(t, summary.Sources[1].Records)
	assert.Equal(t, 1, summary.Sources[2].Records)
	assert.Len(t, allEvents(t, store), 3)
}

func TestEngine_PanickingSourceIsIsolated(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	boom := reconcile.NewSourceFunc("boom", func(context.Context) ([]reconcile.RawRecord, error) {
		panic("parser exploded")
	})

	summary, err := newEngine(t, store, c, boom, staticSource("ok", raw("A", "https://x/a", when))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.Contains(t, summary.Sources[0].Error, "parser exploded")
}

func TestEngine_DropsInvalidRecords(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	src := staticSource("feed",
		reconcile.RawRecord{Title: "", SourceName: "feed", SourceURL: "https://x/1", DateTime: &when},
		reconcile.RawRecord{Title: "No source", SourceURL: "https://x/2", DateTime: &when},
		reconcile.RawRecord{Title: "No identity", SourceName: "feed"},
		raw("Valid", "https://x/3", when),
	)

	summary, err := newEngine(t, store, c, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalObserved)
	assert.Equal(t, 3, summary.Dropped)
	assert.Equal(t, 1, summary.ProcessedCount)
}

func TestEngine_EstimatedDateIsFlagged(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	src := staticSource("feed", reconcile.RawRecord{
		Title: "Pop-up", DateText: "coming soon", SourceName: "feed", SourceURL: "https://x/p",
	})

	_, err := newEngine(t, store, c, src).Run(context.Background())
	require.NoError(t, err)

	events := allEvents(t, store)
	require.Len(t, events, 1)
	assert.True(t, events[0].DateEstimated)
	assert.True(t, events[0].DateTime.Equal(baseTime))

	// A later estimate is not a change and does not move the stored date.
	c.now = baseTime.Add(6 * time.Hour)
	summary, err := newEngine(t, store, c, src).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Updated)
	got, err := store.Get(context.Background(), events[0].ID)
	require.NoError(t, err)
	assert.True(t, got.DateTime.Equal(baseTime))
	assert.Equal(t, catalog.StatusNew, got.Status)
}

func TestEngine_PingFailureAborts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})

	db, err := database.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}))
	require.NoError(t, err)

	var fetched atomic.Bool
	src := reconcile.NewSourceFunc("feed", func(context.Context) ([]reconcile.RawRecord, error) {
		fetched.Store(true)
		return nil, nil
	})
	summary, err := newEngine(t, catalog.NewStore(db), &clock{now: baseTime}, src).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrStoreUnavailable)
	assert.Nil(t, summary)
	assert.False(t, fetched.Load())
}

func TestEngine_StoreOutageMidRunAborts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectQuery("SELECT").WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	db, err := database.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}))
	require.NoError(t, err)

	when := baseTime.Add(24 * time.Hour)
	summary, err := newEngine(t, catalog.NewStore(db), &clock{now: baseTime},
		staticSource("feed", raw("A", "https://x/a", when))).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrStoreUnavailable)
	assert.Nil(t, summary)
}

func TestEngine_SweepOnly(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	past := seed(t, store, &catalog.Event{
		Title: "Done", DateTime: baseTime.Add(-time.Hour), VenueName: "V", LastScrapedAt: baseTime,
	})

	res, err := newEngine(t, store, c).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{past.ID}, res.Retired)
}

func TestEngine_Ingest(t *testing.T) {
	store := newTestStore(t)
	c := &clock{now: baseTime}
	when := baseTime.Add(24 * time.Hour)
	seed(t, store, &catalog.Event{
		Title: "Old", DateTime: baseTime.Add(-time.Hour), VenueName: "V", LastScrapedAt: baseTime,
	})

	summary, err := newEngine(t, store, c).Ingest(context.Background(), []reconcile.RawRecord{raw("A", "https://x/a", when)})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Empty(t, summary.Sweep.Retired)
	assert.Len(t, allEvents(t, store), 2)
}
