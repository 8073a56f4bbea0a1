package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asylve/eo-learn/internal/workflow"
)

// ClusterBackend dispatches workflow executions onto an external cluster
// runtime. It submits one remote task per args bundle, drains the resulting
// futures for progress reporting, and collects all results once resolved.
//
// The backend adds no scheduling, retry, or fault-tolerance logic of its
// own: all of that is delegated to the runtime. Remote failures surface
// unmodified from the final collection.
type ClusterBackend struct {
	runtime Runtime
	logger  *slog.Logger
}

// NewClusterBackend creates a cluster dispatch backend over the given
// runtime. The runtime must already be connected; constructors of concrete
// runtimes are expected to fail fast when the cluster is unreachable.
func NewClusterBackend(runtime Runtime, logger *slog.Logger) (*ClusterBackend, error) {
	if runtime == nil {
		return nil, fmt.Errorf("cluster runtime cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ClusterBackend{
		runtime: runtime,
		logger:  logger,
	}, nil
}

// ProcessingType returns the fixed cluster tag, regardless of arguments
// or state
func (b *ClusterBackend) ProcessingType() ProcessingType {
	return ProcessingCluster
}

// RunExecution submits one remote task per bundle, reports progress as
// futures resolve, and returns the results in submission order.
//
// Progress is driven by a working set of pending futures: wait for at least
// one to resolve, drop the resolved ones from the set, and emit one tick
// per resolution until the set is empty. Watching the full future
// collection directly would keep every handle alive for the whole batch and
// miscount resolutions, so the working set shrinks instead.
func (b *ClusterBackend) RunExecution(ctx context.Context, argsList []workflow.Args, progress ProgressFunc) ([]workflow.Results, error) {
	total := len(argsList)
	if total == 0 {
		return []workflow.Results{}, nil
	}

	b.logger.Debug("submitting executions to cluster", "executions", total)

	futures := make([]Future, 0, total)
	for _, args := range argsList {
		future, err := b.runtime.Submit(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("failed to submit execution %q: %w", args.Name, err)
		}
		futures = append(futures, future)
	}

	pending := make([]Future, len(futures))
	copy(pending, futures)

	completed := 0
	for len(pending) > 0 {
		done, rest, err := Wait(ctx, pending, 1)
		if err != nil {
			return nil, err
		}
		pending = rest

		for _, f := range done {
			completed++
			b.logger.Debug("execution resolved",
				"execution", f.Name(),
				"completed", completed,
				"total", total)

			if progress != nil {
				progress(completed, total)
			}
		}
	}

	// Collect over the original submission-ordered slice so the i-th result
	// belongs to the i-th bundle
	results := make([]workflow.Results, 0, total)
	for _, f := range futures {
		res, err := f.Result(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to collect results for execution %q: %w", f.Name(), err)
		}
		results = append(results, res)
	}

	return results, nil
}

// ClusterExecutor runs a workflow's executions on an external cluster
// runtime through the generic executor
type ClusterExecutor struct {
	executor *Executor

	// Progress is an optional per-execution completion callback
	Progress ProgressFunc
}

// NewClusterExecutor creates a cluster-backed executor for the workflow and
// args bundles
func NewClusterExecutor(wf *workflow.Workflow, argsList []workflow.Args, runtime Runtime, logger *slog.Logger) (*ClusterExecutor, error) {
	backend, err := NewClusterBackend(runtime, logger)
	if err != nil {
		return nil, err
	}

	executor, err := New(wf, argsList, backend, logger)
	if err != nil {
		return nil, err
	}

	return &ClusterExecutor{executor: executor}, nil
}

// Run executes all bundles on the cluster. Worker sizing is left to the
// cluster runtime's own scheduler.
//
// When returnResults is set, Run returns one Results per bundle in
// submission order; note that retaining results for a large batch may
// exceed available memory. Otherwise it returns nil.
func (c *ClusterExecutor) Run(ctx context.Context, returnResults bool) ([]workflow.Results, error) {
	return c.executor.Run(ctx, RunOptions{
		ReturnResults: returnResults,
		Progress:      c.Progress,
	})
}

// ExecutionCount returns the number of args bundles
func (c *ClusterExecutor) ExecutionCount() int {
	return c.executor.ExecutionCount()
}
