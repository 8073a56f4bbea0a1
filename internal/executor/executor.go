package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// ProcessingType identifies an execution backend.
// The executor uses it to branch backend-specific behavior, callers use it
// for logging and reporting.
type ProcessingType string

const (
	// ProcessingSingle runs executions sequentially in-process
	ProcessingSingle ProcessingType = "single"

	// ProcessingMulti runs executions on a local worker pool
	ProcessingMulti ProcessingType = "multiprocess"

	// ProcessingCluster hands executions off to an external cluster runtime
	ProcessingCluster ProcessingType = "cluster"
)

// ProgressFunc is called after each execution completes with the number of
// completed executions and the total count
type ProgressFunc func(completed, total int)

// Backend is the strategy for running a batch of workflow executions.
// Implementations must return exactly one Results per args bundle, in the
// same order as the input, capturing per-execution failures inside the
// Results rather than as an error. The error return is reserved for
// infrastructure failures that prevent the batch from completing.
type Backend interface {
	// ProcessingType returns the fixed tag identifying this backend.
	// It must be pure: same value regardless of state or arguments.
	ProcessingType() ProcessingType

	// RunExecution runs all bundles and returns one Results per bundle.
	// progress may be nil.
	RunExecution(ctx context.Context, argsList []workflow.Args, progress ProgressFunc) ([]workflow.Results, error)
}

// ExecuteWorkflow runs one workflow execution and never returns an error:
// failures, including panics from misbehaving tasks, are captured in the
// Results error wrapper. Every backend funnels bundles through this
// function, locally or on a remote worker.
func ExecuteWorkflow(ctx context.Context, wf *workflow.Workflow, args workflow.Args) (results workflow.Results) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			results = workflow.Results{
				Name:      args.Name,
				StartTime: start,
				EndTime:   time.Now(),
				Error: &workflow.ExecutionError{
					Message: fmt.Sprintf("panic during execution: %v", r),
				},
			}
		}
	}()

	if wf == nil {
		now := time.Now()
		return workflow.Results{
			Name:      args.Name,
			StartTime: now,
			EndTime:   now,
			Error:     &workflow.ExecutionError{Message: "no workflow to execute"},
		}
	}

	return wf.Execute(ctx, args)
}

// RunOptions configures a single Run call
type RunOptions struct {
	// ReturnResults requests that per-execution results are retained and
	// returned. For large batches this may exceed available memory.
	ReturnResults bool

	// Progress is an optional per-execution completion callback
	Progress ProgressFunc
}

// Executor runs a workflow over a list of execution args bundles using a
// pluggable backend
type Executor struct {
	workflow *workflow.Workflow
	argsList []workflow.Args
	backend  Backend
	logger   *slog.Logger
}

// New creates an executor for the given workflow, args bundles, and backend
func New(wf *workflow.Workflow, argsList []workflow.Args, backend Backend, logger *slog.Logger) (*Executor, error) {
	if wf == nil {
		return nil, fmt.Errorf("workflow cannot be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		workflow: wf,
		argsList: argsList,
		backend:  backend,
		logger:   logger,
	}, nil
}

// Workflow returns the workflow this executor runs
func (e *Executor) Workflow() *workflow.Workflow {
	return e.workflow
}

// ExecutionCount returns the number of args bundles
func (e *Executor) ExecutionCount() int {
	return len(e.argsList)
}

// Run executes all bundles on the backend.
// It returns the per-execution results only when opts.ReturnResults is set;
// otherwise it returns nil and the results are discarded after being
// summarized. Per-execution failures live inside the results; a non-nil
// error means the batch itself could not be completed.
func (e *Executor) Run(ctx context.Context, opts RunOptions) ([]workflow.Results, error) {
	total := len(e.argsList)
	processingType := e.backend.ProcessingType()

	e.logger.Info("starting workflow executions",
		"backend", string(processingType),
		"executions", total)

	if total == 0 {
		e.logger.Debug("no executions to run")
		if opts.ReturnResults {
			return []workflow.Results{}, nil
		}
		return nil, nil
	}

	startTime := time.Now()

	results, err := e.backend.RunExecution(ctx, e.argsList, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("%s backend failed: %w", processingType, err)
	}

	if len(results) != total {
		return nil, fmt.Errorf("%s backend returned %d results for %d executions",
			processingType, len(results), total)
	}

	summary := Summarize(results)
	e.logger.Info("workflow executions completed",
		"backend", string(processingType),
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", time.Since(startTime))

	if !opts.ReturnResults {
		return nil, nil
	}
	return results, nil
}
