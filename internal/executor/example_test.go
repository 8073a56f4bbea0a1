package executor_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/asylve/eo-learn/internal/executor"
	"github.com/asylve/eo-learn/internal/workflow"
)

// Example demonstrates running a workflow batch on the local worker pool
func Example() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	wf, err := workflow.New([]*workflow.Node{
		{
			Name:   "tag",
			Task:   &workflow.SetTask{},
			Params: map[string]any{"values": map[string]any{"processed": true}},
		},
	})
	if err != nil {
		logger.Error("invalid workflow", "error", err)
		return
	}

	argsList := []workflow.Args{
		{Name: "tile-1"},
		{Name: "tile-2"},
		{Name: "tile-3"},
	}

	exec, err := executor.NewPoolExecutor(wf, argsList, 2, logger)
	if err != nil {
		logger.Error("failed to create executor", "error", err)
		return
	}

	results, err := exec.Run(context.Background(), executor.RunOptions{ReturnResults: true})
	if err != nil {
		logger.Error("run failed", "error", err)
		return
	}

	summary := executor.Summarize(results)
	fmt.Printf("executions: %d, succeeded: %d\n", summary.Total, summary.Succeeded)
	// Output: executions: 3, succeeded: 3
}
