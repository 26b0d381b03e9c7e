package marker

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// IdentifyAll identifies cands concurrently on at most workers goroutines
// (GOMAXPROCS when workers <= 0). Candidate i draws its selection trials from
// a source seeded with seed+i, so results do not depend on scheduling.
//
// Cancelling ctx stops candidates that have not started; their Result keeps
// the zero Status. The returned error is ctx.Err() in that case.
func (id *Identifier) IdentifyAll(ctx context.Context, frame Frame, cands []*Candidate, workers int, seed int64) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cand := range cands {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(i)))
			results[i] = id.Identify(frame, cand, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
