package pulse

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// executeLevelParallel runs one level's working set concurrently: it
// forks onto a worker pool and joins before the next level begins, and
// the first error from any worker cancels the remaining ones and is
// returned to the caller. golang.org/x/sync/errgroup provides exactly
// that shape.
func (e *Engine) executeLevelParallel(ctx context.Context, turn *Turn, working []*Vertex) error {
	g, gctx := errgroup.WithContext(ctx)
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}

	for _, v := range working {
		v := v
		g.Go(func() error {
			return e.executeVertex(gctx, turn, v)
		})
	}

	return g.Wait()
}
