package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// LocalBackend runs executions sequentially in the calling goroutine.
// It is the simplest backend and the reference for result ordering: the
// i-th result always belongs to the i-th bundle.
type LocalBackend struct {
	workflow *workflow.Workflow
	logger   *slog.Logger
}

// NewLocalBackend creates a sequential in-process backend
func NewLocalBackend(wf *workflow.Workflow, logger *slog.Logger) *LocalBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBackend{
		workflow: wf,
		logger:   logger,
	}
}

// ProcessingType returns the single-process tag
func (b *LocalBackend) ProcessingType() ProcessingType {
	return ProcessingSingle
}

// RunExecution runs all bundles one after another.
// Once the context is cancelled, remaining bundles are not executed and
// receive error-wrapped results so the one-result-per-bundle contract holds.
func (b *LocalBackend) RunExecution(ctx context.Context, argsList []workflow.Args, progress ProgressFunc) ([]workflow.Results, error) {
	results := make([]workflow.Results, 0, len(argsList))

	for i, args := range argsList {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("context cancelled, skipping remaining executions",
				"completed", i,
				"total", len(argsList))

			now := time.Now()
			for _, skipped := range argsList[i:] {
				results = append(results, workflow.Results{
					Name:      skipped.Name,
					StartTime: now,
					EndTime:   now,
					Error:     &workflow.ExecutionError{Message: "execution not started: " + err.Error()},
				})
			}
			break
		}

		b.logger.Debug("running execution", "execution", args.Name, "index", i)
		results = append(results, ExecuteWorkflow(ctx, b.workflow, args))

		if progress != nil {
			progress(i+1, len(argsList))
		}
	}

	return results, nil
}
