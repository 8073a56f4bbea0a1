package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// PoolBackend runs executions concurrently on a bounded worker pool.
// Results are index-paired so their order matches the submission order of
// the args bundles regardless of completion order.
type PoolBackend struct {
	workflow *workflow.Workflow
	workers  int
	logger   *slog.Logger
}

// NewPoolBackend creates a worker pool backend with the given concurrency.
// workers must be > 0, otherwise it defaults to 1.
func NewPoolBackend(wf *workflow.Workflow, workers int, logger *slog.Logger) *PoolBackend {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PoolBackend{
		workflow: wf,
		workers:  workers,
		logger:   logger,
	}
}

// WorkerCount returns the configured number of workers
func (b *PoolBackend) WorkerCount() int {
	return b.workers
}

// ProcessingType returns the multiprocess tag
func (b *PoolBackend) ProcessingType() ProcessingType {
	return ProcessingMulti
}

// bundleWithIndex pairs an args bundle with its position for result ordering
type bundleWithIndex struct {
	args  workflow.Args
	index int
}

// resultWithIndex pairs a result with its original bundle index
type resultWithIndex struct {
	results workflow.Results
	index   int
}

// RunExecution distributes the bundles over the worker pool
func (b *PoolBackend) RunExecution(ctx context.Context, argsList []workflow.Args, progress ProgressFunc) ([]workflow.Results, error) {
	total := len(argsList)
	if total == 0 {
		b.logger.Debug("no executions to run")
		return []workflow.Results{}, nil
	}

	workerCount := b.workers
	if workerCount > total {
		workerCount = total
	}

	b.logger.Debug("starting workers", "count", workerCount, "executions", total)

	bundleChan := make(chan bundleWithIndex, total)
	resultChan := make(chan resultWithIndex, total)

	var completed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go b.worker(ctx, i, bundleChan, resultChan, &wg, &completed, total, progress)
	}

	for i, args := range argsList {
		bundleChan <- bundleWithIndex{args: args, index: i}
	}
	close(bundleChan)

	wg.Wait()
	close(resultChan)

	results := make([]workflow.Results, total)
	received := make([]bool, total)
	for res := range resultChan {
		if res.index >= 0 && res.index < total {
			results[res.index] = res.results
			received[res.index] = true
		}
	}

	// Bundles workers never picked up (context cancelled) still get a result
	for i := range results {
		if !received[i] {
			now := time.Now()
			message := "execution not started"
			if err := ctx.Err(); err != nil {
				message += ": " + err.Error()
			}
			results[i] = workflow.Results{
				Name:      argsList[i].Name,
				StartTime: now,
				EndTime:   now,
				Error:     &workflow.ExecutionError{Message: message},
			}
		}
	}

	return results, nil
}

// worker drains the bundle channel until it is closed or the context ends
func (b *PoolBackend) worker(
	ctx context.Context,
	workerID int,
	bundleChan <-chan bundleWithIndex,
	resultChan chan<- resultWithIndex,
	wg *sync.WaitGroup,
	completed *atomic.Int32,
	total int,
	progress ProgressFunc,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("worker stopping", "worker_id", workerID, "reason", ctx.Err())
			return

		case bundle, ok := <-bundleChan:
			if !ok {
				return
			}

			results := ExecuteWorkflow(ctx, b.workflow, bundle.args)
			resultChan <- resultWithIndex{results: results, index: bundle.index}

			count := completed.Add(1)
			b.logger.Debug("execution completed",
				"worker_id", workerID,
				"execution", bundle.args.Name,
				"succeeded", results.Succeeded(),
				"progress", int(count),
				"total", total)

			if progress != nil {
				progress(int(count), total)
			}
		}
	}
}

// NewLocalExecutor creates an executor that runs the workflow sequentially
// in-process
func NewLocalExecutor(wf *workflow.Workflow, argsList []workflow.Args, logger *slog.Logger) (*Executor, error) {
	return New(wf, argsList, NewLocalBackend(wf, logger), logger)
}

// NewPoolExecutor creates an executor that runs the workflow on a local
// worker pool with the given concurrency
func NewPoolExecutor(wf *workflow.Workflow, argsList []workflow.Args, workers int, logger *slog.Logger) (*Executor, error) {
	return New(wf, argsList, NewPoolBackend(wf, workers, logger), logger)
}
