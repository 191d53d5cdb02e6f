package driver

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"sigil/internal/fatal"
	"sigil/internal/trace"
)

// Fork is the outcome of one speculative overlay.
type Fork struct {
	Overlay Input
	Result  *Result
	// Changed is set when the overlay altered the user-visible hierarchy.
	Changed bool
}

// Speculate resolves every overlay on its own deep copy of base.State. The
// base is never written; forks run in parallel, each with its own bag and
// timer. Forks come back in overlay order.
func Speculate(ctx context.Context, base *Result, overlays []Input, opts Options) ([]Fork, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "driver.speculate", 0).
		WithExtra("overlays", strconv.Itoa(len(overlays)))
	defer span.End("")

	baseHash := base.State.Hash()
	forks := make([]Fork, len(overlays))
	opts.Base = base.State
	opts.Payload = nil

	// a violation in a fork is carried back and re-raised here, where the
	// caller's recover can see it
	crashed := make([]*fatal.Violation, len(overlays))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, overlay := range overlays {
		g.Go(func() error {
			var (
				res *Result
				err error
			)
			if v := fatal.Catch(func() { res, err = Resolve(gctx, []Input{overlay}, opts) }); v != nil {
				crashed[i] = v.(*fatal.Violation)
				return v
			}
			if err != nil {
				return err
			}
			forks[i] = Fork{Overlay: overlay, Result: res, Changed: !res.State.Hash().Equal(baseHash)}
			return nil
		})
	}
	err := g.Wait()
	for _, v := range crashed {
		if v != nil {
			panic(v)
		}
	}
	if err != nil {
		return nil, err
	}
	return forks, nil
}
