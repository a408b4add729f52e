// Package batch runs many queries through one workflow graph concurrently.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/difyflow"
)

// DefaultConcurrency is used when Runner.Concurrency is not positive.
const DefaultConcurrency = 10

// Outcome is the result of one query. Exactly one of Result and Err is set.
type Outcome struct {
	Query  string
	Answer string
	Result *difyflow.Result
	Err    error
}

// Runner executes queries against a graph with bounded concurrency.
type Runner struct {
	Engine      *difyflow.Engine
	Concurrency int
	// FailFast cancels the remaining queries after the first failure.
	// Otherwise a failed query only affects its own Outcome.
	FailFast bool
}

// Run executes every query and returns outcomes in input order. The error
// is the first failure when FailFast is set, or ctx's error if ctx ended
// before every query was started.
func (r *Runner) Run(ctx context.Context, g *difyflow.Graph, queries []string) ([]Outcome, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	outcomes := make([]Outcome, len(queries))
	for i, q := range queries {
		outcomes[i].Query = q
		if err := gctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		group.Go(func() error {
			res, err := r.Engine.Run(gctx, g, q)
			if err != nil {
				outcomes[i].Err = err
				if r.FailFast {
					return err
				}
				return nil
			}
			outcomes[i].Answer = res.Answer
			outcomes[i].Result = res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

// Failed counts the outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
