package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"event-catalog/core/catalog"
	corelog "event-catalog/core/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer receives run telemetry. Implementations must be safe for concurrent use.
type Observer interface {
	RecordDropped(source string)
	RecordFailed(source string)
	RecordUpserted(status catalog.Status, created bool)
	RunFinished(s *Summary, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RecordDropped(string)                       {}
func (nopObserver) RecordFailed(string)                        {}
func (nopObserver) RecordUpserted(catalog.Status, bool)        {}
func (nopObserver) RunFinished(*Summary, error, time.Duration) {}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver attaches telemetry.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// Engine drives reconciliation runs.
type Engine struct {
	store      Store
	sources    []Source
	cfg        Config
	logger     *zap.Logger
	observer   Observer
	now        func() time.Time
	normalizer *Normalizer
	upserter   *Upserter
	sweeper    *Sweeper
}

// NewEngine creates an engine. Zero config values take their defaults.
func NewEngine(store Store, sources []Source, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:      store,
		sources:    sources,
		cfg:        cfg,
		logger:     logger,
		observer:   nopObserver{},
		now:        time.Now,
		normalizer: NewNormalizer(cfg.DefaultCity, cfg.Timezone),
		upserter:   NewUpserter(store, logger, cfg.MaxAttempts, cfg.RefreshClaimed),
		sweeper:    NewSweeper(store, cfg.StaleAfter, logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sources returns the configured sources.
func (e *Engine) Sources() []Source {
	return e.sources
}

// Run fetches every source, reconciles the records and sweeps what was not seen.
// Source and record failures are logged and counted. A store outage aborts the
// run with ErrStoreUnavailable and no summary.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	started := e.now().UTC().Truncate(time.Second)
	runID := uuid.NewString()
	logger := corelog.WithRun(e.logger, runID)

	summary, err := e.run(ctx, runID, started, logger)
	elapsed := e.now().Sub(started)
	e.observer.RunFinished(summary, err, elapsed)
	if err != nil {
		logger.Error("Reconciliation run aborted", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	logger.Info("Reconciliation run completed",
		zap.Int("observed", summary.TotalObserved),
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("dropped", summary.Dropped),
		zap.Int("failed", summary.Failed),
		zap.Int("retired", len(summary.Sweep.Retired)),
		zap.Duration("elapsed", elapsed))
	return summary, nil
}

func (e *Engine) run(ctx context.Context, runID string, runAt time.Time, logger *zap.Logger) (*Summary, error) {
	if err := e.store.Ping(ctx); err != nil {
		return nil, err
	}

	raws, reports := fetchAll(ctx, e.sources, e.cfg.SourceTimeout, logger)
	summary := &Summary{
		RunID:         runID,
		StartedAt:     runAt,
		TotalObserved: len(raws),
		Sources:       reports,
	}

	outcomes, stats, err := e.process(ctx, raws, runAt, logger)
	if err != nil {
		return nil, err
	}

	seen := tally(summary, outcomes, stats)

	sweep, err := e.sweeper.Sweep(ctx, seen, runAt)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	summary.Sweep = sweep
	summary.FinishedAt = e.now().UTC()
	return summary, nil
}

// tally folds outcomes into summary and returns the seen-set. An event touched
// more than once is reported once, in its latest state.
func tally(summary *Summary, outcomes []*Outcome, stats *processStats) map[string]struct{} {
	seen := make(map[string]struct{}, len(outcomes))
	position := make(map[string]int, len(outcomes))
	touched := make([]catalog.Event, 0, len(outcomes))
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		summary.ProcessedCount++
		if o.Created {
			summary.Created++
		} else if len(o.Changes) > 0 {
			summary.Updated++
		}
		id := o.Event.ID
		seen[id] = struct{}{}
		if i, ok := position[id]; ok {
			if o.Event.Version >= touched[i].Version {
				touched[i] = *o.Event
			}
			continue
		}
		position[id] = len(touched)
		touched = append(touched, *o.Event)
	}
	summary.TouchedEntities = touched
	summary.Dropped = int(stats.dropped.Load())
	summary.Failed = int(stats.failed.Load())
	return seen
}

type processStats struct {
	dropped atomic.Int64
	failed  atomic.Int64
}

// process normalizes raws in arrival order and upserts them on the partitioned
// pool. outcomes[i] is nil for records that were dropped or failed.
func (e *Engine) process(ctx context.Context, raws []RawRecord, runAt time.Time, logger *zap.Logger) ([]*Outcome, *processStats, error) {
	stats := &processStats{}
	outcomes := make([]*Outcome, len(raws))

	jobs := make([]job, 0, len(raws))
	for i, raw := range raws {
		rec, err := e.normalizer.Normalize(raw, runAt)
		if err != nil {
			stats.dropped.Add(1)
			e.observer.RecordDropped(raw.SourceName)
			logger.Warn("Dropping record",
				zap.String("source", raw.SourceName),
				zap.String("source_url", raw.SourceURL),
				zap.Error(err))
			continue
		}
		if rec.DateEstimated {
			logger.Warn("No usable date, using run time",
				zap.String("title", rec.Title),
				zap.String("source", rec.SourceName),
				zap.String("date_text", raw.DateText))
		}
		jobs = append(jobs, job{index: i, rec: rec})
	}

	err := runPartitioned(ctx, e.cfg.Workers, jobs, func(ctx context.Context, j job) error {
		out, err := e.upserter.Upsert(ctx, j.rec, runAt)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) || ctx.Err() != nil {
				return err
			}
			stats.failed.Add(1)
			e.observer.RecordFailed(j.rec.SourceName)
			logger.Warn("Skipping record",
				zap.String("title", j.rec.Title),
				zap.String("source", j.rec.SourceName),
				zap.Error(err))
			return nil
		}
		outcomes[j.index] = out
		e.observer.RecordUpserted(out.Event.Status, out.Created)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outcomes, stats, nil
}

// Sweep retires expired events without fetching sources, treating nothing as seen.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	if err := e.store.Ping(ctx); err != nil {
		return SweepResult{}, err
	}
	return e.sweeper.Sweep(ctx, nil, e.now().UTC().Truncate(time.Second))
}

// Ingest reconciles records already in hand, such as a local fixture, and sweeps
// nothing. It returns the summary of what was applied.
func (e *Engine) Ingest(ctx context.Context, raws []RawRecord) (*Summary, error) {
	runAt := e.now().UTC().Truncate(time.Second)
	if err := e.store.Ping(ctx); err != nil {
		return nil, err
	}
	outcomes, stats, err := e.process(ctx, raws, runAt, e.logger)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		RunID:         uuid.NewString(),
		StartedAt:     runAt,
		TotalObserved: len(raws),
		Sweep:         SweepResult{Retired: []string{}},
	}
	tally(summary, outcomes, stats)
	summary.FinishedAt = e.now().UTC()
	return summary, nil
}
