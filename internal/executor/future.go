package executor

import (
	"context"
	"fmt"

	"github.com/asylve/eo-learn/internal/workflow"
)

// Future is a handle to a workflow execution running on an external
// cluster runtime
type Future interface {
	// Name returns the execution name of the submitted bundle
	Name() string

	// Done returns a channel that is closed once the remote execution has
	// resolved, successfully or not
	Done() <-chan struct{}

	// Result blocks until the execution resolves and returns its results.
	// It returns an error only when the runtime could not produce results
	// at all; execution failures are inside the Results error wrapper.
	Result(ctx context.Context) (workflow.Results, error)
}

// Runtime is the contract this package requires from an external cluster
// runtime: submit one args bundle, get back a future. Scheduling, worker
// sizing, fault tolerance, and result transport all belong to the runtime.
type Runtime interface {
	Submit(ctx context.Context, args workflow.Args) (Future, error)
}

// Wait blocks until at least numReturns of the given futures have resolved,
// then returns the resolved futures and the remainder still pending.
// An empty future list returns immediately without blocking. numReturns is
// clamped to [1, len(futures)].
func Wait(ctx context.Context, futures []Future, numReturns int) (done, pending []Future, err error) {
	if len(futures) == 0 {
		return nil, nil, nil
	}

	if numReturns < 1 {
		numReturns = 1
	}
	if numReturns > len(futures) {
		numReturns = len(futures)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolved := make(chan Future)
	for _, f := range futures {
		go func(f Future) {
			select {
			case <-f.Done():
			case <-waitCtx.Done():
				return
			}

			select {
			case resolved <- f:
			case <-waitCtx.Done():
			}
		}(f)
	}

	doneSet := make(map[Future]bool, numReturns)
	for len(doneSet) < numReturns {
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("waiting for executions: %w", ctx.Err())
		case f := <-resolved:
			doneSet[f] = true
		}
	}

	done = make([]Future, 0, len(doneSet))
	pending = make([]Future, 0, len(futures)-len(doneSet))
	for _, f := range futures {
		if doneSet[f] {
			done = append(done, f)
		} else {
			pending = append(pending, f)
		}
	}

	return done, pending, nil
}
