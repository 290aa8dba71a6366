package pathfind

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Request is one independent search. Neighbors must only read state that no
// other goroutine mutates during the batch (typically a Grid.Clone snapshot).
type Request struct {
	Start     grid.Position
	Goal      grid.Position
	Neighbors Neighbors
	Options   Options
}

// Batch runs the requests concurrently with at most workers goroutines and
// returns results in request order. Requests not yet started when ctx is
// cancelled are skipped and the context error is returned.
func Batch(ctx context.Context, reqs []Request, workers int) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	for i, req := range reqs {
		if req.Neighbors == nil {
			return nil, fmt.Errorf("batch request %d: nil neighbors", i)
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, req := range reqs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = FindPath(req.Start, req.Goal, req.Neighbors, req.Options)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
