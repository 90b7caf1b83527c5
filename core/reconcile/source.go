package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source produces raw records from one upstream. Fetch is called once per run.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]RawRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc struct {
	name string
	fn   func(ctx context.Context) ([]RawRecord, error)
}

// NewSourceFunc wraps fn as a named source.
func NewSourceFunc(name string, fn func(ctx context.Context) ([]RawRecord, error)) *SourceFunc {
	return &SourceFunc{name: name, fn: fn}
}

// Name implements Source.
func (s *SourceFunc) Name() string { return s.name }

// Fetch implements Source.
func (s *SourceFunc) Fetch(ctx context.Context) ([]RawRecord, error) { return s.fn(ctx) }

// fetchAll calls every source concurrently. A source that errors, panics or
// times out contributes nothing; the others are kept in source order.
func fetchAll(ctx context.Context, sources []Source, timeout time.Duration, logger *zap.Logger) ([]RawRecord, []SourceReport) {
	results := make([][]RawRecord, len(sources))
	reports := make([]SourceReport, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			start := time.Now()
			records, err := fetchOne(ctx, src, timeout)
			reports[i] = SourceReport{Name: src.Name(), Duration: time.Since(start)}
			if err != nil {
				reports[i].Error = err.Error()
				logger.Warn("Source failed, continuing without it",
					zap.String("source", src.Name()),
					zap.Duration("duration", reports[i].Duration),
					zap.Error(err))
				return
			}
			results[i] = records
			reports[i].Records = len(records)
			logger.Info("Source fetched",
				zap.String("source", src.Name()),
				zap.Int("records", len(records)),
				zap.Duration("duration", reports[i].Duration))
		}(i, src)
	}
	wg.Wait()

	var all []RawRecord
	for _, r := range results {
		all = append(all, r...)
	}
	return all, reports
}

type fetchResult struct {
	records []RawRecord
	err     error
}

// fetchOne runs one fetch under timeout. A source that ignores its context is
// abandoned once the deadline passes.
func fetchOne(ctx context.Context, src Source, timeout time.Duration) ([]RawRecord, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		records, err := src.Fetch(ctx)
		done <- fetchResult{records: records, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceFailure, src.Name(), res.err)
		}
		return res.records, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceFailure, src.Name(), ctx.Err())
	}
}
