package reconcile_test

import (
	"context"
	"testing"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// claimingStore claims each event just before the sweeper tries to retire it.
type claimingStore struct {
	*catalog.Store
}

func (s *claimingStore) Retire(ctx context.Context, id string, version int64, at time.Time) (bool, error) {
	if _, err := s.Store.Claim(ctx, id, "admin", "grabbed", at); err != nil {
		return false, err
	}
	return s.Store.Retire(ctx, id, version, at)
}

func TestShouldRetire(t *testing.T) {
	week := 7 * 24 * time.Hour
	day := 24 * time.Hour

	tests := []struct {
		name       string
		dateTime   time.Time
		lastSeen   time.Time
		wantRetire bool
	}{
		{"event already happened", baseTime.Add(-day), baseTime, true},
		{"not seen for ten days", baseTime.Add(week), baseTime.Add(-10 * day), true},
		{"not seen for exactly the threshold", baseTime.Add(week), baseTime.Add(-week), true},
		{"seen yesterday", baseTime.Add(week), baseTime.Add(-day), false},
		{"starts right now", baseTime, baseTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &catalog.Event{DateTime: tt.dateTime, LastScrapedAt: tt.lastSeen}
			assert.Equal(t, tt.wantRetire, reconcile.ShouldRetire(ev, baseTime, week))
		})
	}
}

func TestSweeper_ClaimBetweenSelectAndWriteWins(t *testing.T) {
	base := newTestStore(t)
	ev := seed(t, base, &catalog.Event{
		Title: "Past", DateTime: baseTime.Add(-time.Hour), VenueName: "V", LastScrapedAt: baseTime,
	})

	sweeper := reconcile.NewSweeper(&claimingStore{Store: base}, 7*24*time.Hour, zaptest.NewLogger(t))
	res, err := sweeper.Sweep(context.Background(), nil, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Examined)
	assert.Empty(t, res.Retired)
	assert.Equal(t, 1, res.Contended)

	got, err := base.Get(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusImported, got.Status)
}

func TestSweeper_SkipsSeenAndInactive(t *testing.T) {
	store := newTestStore(t)
	seen := seed(t, store, &catalog.Event{
		Title: "Seen", DateTime: baseTime.Add(-time.Hour), VenueName: "V", LastScrapedAt: baseTime,
	})
	seed(t, store, &catalog.Event{
		Title: "Retired", DateTime: baseTime.Add(-time.Hour), VenueName: "V",
		LastScrapedAt: baseTime, Status: catalog.StatusInactive,
	})

	sweeper := reconcile.NewSweeper(store, 7*24*time.Hour, zaptest.NewLogger(t))
	res, err := sweeper.Sweep(context.Background(), map[string]struct{}{seen.ID: {}}, baseTime)
	require.NoError(t, err)
	assert.Zero(t, res.Examined)
	assert.Empty(t, res.Retired)
}

func TestSweeper_WalksEveryBatch(t *testing.T) {
	store := newTestStore(t)
	n := catalog.SweepBatchSize + 10
	for i := 0; i < n; i++ {
		seed(t, store, &catalog.Event{
			Title: "Past", DateTime: baseTime.Add(-time.Duration(i+1) * time.Minute), VenueName: "V", LastScrapedAt: baseTime,
		})
	}

	res, err := reconcile.NewSweeper(store, time.Hour, zaptest.NewLogger(t)).Sweep(context.Background(), nil, baseTime)
	require.NoError(t, err)
	assert.Len(t, res.Retired, n)
}
