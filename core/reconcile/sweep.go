package reconcile

import (
	"context"
	"time"

	"event-catalog/core/catalog"

	"go.uber.org/zap"
)

// ShouldRetire reports whether an unseen event has expired: its date has passed,
// or it has not been seen for at least staleAfter.
func ShouldRetire(ev *catalog.Event, runAt time.Time, staleAfter time.Duration) bool {
	if ev.DateTime.Before(runAt) {
		return true
	}
	return runAt.Sub(ev.LastScrapedAt) >= staleAfter
}

// Sweeper retires events that stopped appearing.
type Sweeper struct {
	store      Store
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewSweeper creates a sweeper.
func NewSweeper(store Store, staleAfter time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{store: store, staleAfter: staleAfter, logger: logger}
}

// Sweep retires every expired event not in seen. Claimed events are skipped when
// selected and again by the store at write time, so a claim that lands between
// selection and write wins.
func (s *Sweeper) Sweep(ctx context.Context, seen map[string]struct{}, runAt time.Time) (SweepResult, error) {
	res := SweepResult{Retired: []string{}}

	err := s.store.EachSweepCandidate(ctx, func(batch []catalog.Event) error {
		for i := range batch {
			ev := &batch[i]
			if _, ok := seen[ev.ID]; ok || ev.Claimed() {
				continue
			}
			res.Examined++
			if !ShouldRetire(ev, runAt, s.staleAfter) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			retired, err := s.store.Retire(ctx, ev.ID, ev.Version, runAt)
			if err != nil {
				return err
			}
			if !retired {
				res.Contended++
				s.logger.Debug("Event changed since selection, not retiring", zap.String("event_id", ev.ID))
				continue
			}
			res.Retired = append(res.Retired, ev.ID)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.logger.Info("Sweep completed",
		zap.Int("examined", res.Examined),
		zap.Int("retired", len(res.Retired)),
		zap.Int("contended", res.Contended))
	return res, nil
}
