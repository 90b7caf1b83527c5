package runs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Scheduler triggers runs on a fixed interval.
type Scheduler struct {
	runner     *Runner
	interval   time.Duration
	runOnStart bool
	logger     *zap.Logger
}

// NewScheduler creates a scheduler for runner.
func NewScheduler(runner *Runner, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		logger:     logger,
	}
}

// Start blocks, triggering runs until ctx is cancelled. It returns immediately
// when the interval is not positive.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Scheduled runs disabled")
		return
	}
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.runner.Trigger(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
	case ctx.Err() != nil:
	default:
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}
