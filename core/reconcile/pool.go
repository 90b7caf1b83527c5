package reconcile

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// laneDepth is the buffer of each worker lane.
const laneDepth = 64

type job struct {
	index int
	rec   Record
}

// laneFor maps a match key onto one of n lanes.
func laneFor(key string, n int) int {
	return int(xxhash.Sum64String(key) % uint64(n))
}

// runPartitioned feeds jobs to n workers. Jobs with the same match key always
// land on the same worker and run in submission order. The first error returned
// by handle cancels the rest.
func runPartitioned(ctx context.Context, n int, jobs []job, handle func(context.Context, job) error) error {
	if n <= 0 {
		n = 1
	}
	g, gctx := errgroup.WithContext(ctx)

	lanes := make([]chan job, n)
	for i := range lanes {
		lane := make(chan job, laneDepth)
		lanes[i] = lane
		g.Go(func() error {
			for j := range lane {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := handle(gctx, j); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		for _, j := range jobs {
			select {
			case lanes[laneFor(j.rec.MatchKey(), n)] <- j:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}
