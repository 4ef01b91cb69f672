package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner runs a single request.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}

// BatchResult pairs a response with its error.
type BatchResult struct {
	Response *Response
	Err      error
}

// Pool runs independent requests concurrently with a bounded number of
// workers.
type Pool struct {
	runner  Runner
	workers int
}

// NewPool creates a Pool. workers < 1 means 1.
func NewPool(runner Runner, workers int) *Pool {
	return &Pool{runner: runner, workers: max(workers, 1)}
}

// RunAll runs every request and returns results in input order. A failed
// request does not stop the others. The error is ctx.Err() when the
// batch was cut short.
func (p *Pool) RunAll(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, req := range reqs {
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			continue
		}
		g.Go(func() error {
			resp, err := p.runner.Run(ctx, req)
			results[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}
