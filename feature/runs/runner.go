package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"event-catalog/core/lock"
	"event-catalog/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrBusy is returned when another replica holds the run lock.
var ErrBusy = errors.New("run in progress elsewhere")

// Reconciler performs one reconciliation run.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Summary, error)
}

// Publisher receives the summary of every successful run.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, s *reconcile.Summary) error
}

// Status describes the latest run as seen by this process.
type Status struct {
	Running    bool               `json:"running"`
	Summary    *reconcile.Summary `json:"summary,omitempty"`
	Error      string             `json:"error,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// Runner serializes reconciliation runs. Concurrent callers in one process share
// the in-flight run; across replicas the optional Redis lock lets only one run.
type Runner struct {
	engine     Reconciler
	logger     *zap.Logger
	locker     *lock.Locker
	lockTTL    time.Duration
	publishers []Publisher

	group   singleflight.Group
	running atomic.Bool

	mu         sync.RWMutex
	last       *reconcile.Summary
	lastErr    error
	finishedAt time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLock guards runs with a distributed lock renewed every ttl/3 while running.
func WithLock(l *lock.Locker, ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		r.locker = l
		r.lockTTL = ttl
	}
}

// WithPublishers sends every successful summary to each publisher.
func WithPublishers(p ...Publisher) RunnerOption {
	return func(r *Runner) { r.publishers = append(r.publishers, p...) }
}

// NewRunner creates a runner around engine.
func NewRunner(engine Reconciler, logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a run is in flight in this process.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Trigger runs reconciliation, or waits for the run already in flight and
// returns its result.
func (r *Runner) Trigger(ctx context.Context) (*reconcile.Summary, error) {
	v, err, _ := r.group.Do("run", func() (any, error) {
		return r.runOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*reconcile.Summary), nil
}

// Status returns the outcome of the most recent run.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Status{Running: r.Running(), Summary: r.last}
	if r.lastErr != nil {
		st.Error = r.lastErr.Error()
	}
	if !r.finishedAt.IsZero() {
		at := r.finishedAt
		st.FinishedAt = &at
	}
	return st
}

func (r *Runner) runOnce(ctx context.Context) (*reconcile.Summary, error) {
	r.running.Store(true)
	defer r.running.Store(false)

	if r.locker != nil {
		lease, err := r.locker.Acquire(ctx)
		if errors.Is(err, lock.ErrHeld) {
			r.logger.Info("Run skipped, lock held by another replica")
			return nil, ErrBusy
		}
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		stop := r.keepAlive(ctx, lease)
		defer func() {
			stop()
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Failed to release run lock", zap.Error(err))
			}
		}()
	}

	summary, err := r.engine.Run(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.finishedAt = time.Now().UTC()
	if err == nil {
		r.last = summary
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	for _, p := range r.publishers {
		if err := p.Publish(ctx, summary); err != nil {
			r.logger.Warn("Failed to publish run summary",
				zap.String("publisher", p.Name()),
				zap.String("run_id", summary.RunID),
				zap.Error(err))
		}
	}
	return summary, nil
}

// keepAlive extends the lease until the returned stop func is called.
func (r *Runner) keepAlive(ctx context.Context, lease *lock.Lease) func() {
	interval := r.lockTTL / 3
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lease.Extend(ctx); err != nil {
					r.logger.Warn("Run lock renewal failed", zap.Error(err))
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
