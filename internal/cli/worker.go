package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/asylve/eo-learn/internal/cluster"
	"github.com/asylve/eo-learn/internal/executor"
	"github.com/asylve/eo-learn/internal/workflow"
	"github.com/spf13/cobra"
)

const defaultTerminationLog = "/dev/termination-log"

// newWorkerCmd creates the worker command, the in-cluster entrypoint
func newWorkerCmd() *cobra.Command {
	var terminationLog string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a single execution from the environment (in-cluster entrypoint)",
		Long: `Run one workflow execution inside a cluster Job.

The workflow manifest and args bundle are read from the ` + cluster.EnvWorkflow + `
and ` + cluster.EnvArgs + ` environment variables, the execution runs to
completion, and its results are written to the pod termination log where the
dispatching eorun process collects them. Task failures are captured inside
the results; the worker only exits nonzero when it cannot run at all.`,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), terminationLog)
		},
	}

	cmd.Flags().StringVar(&terminationLog, "termination-log", defaultTerminationLog, "path to write results to")

	return cmd
}

func runWorker(ctx context.Context, terminationLog string) error {
	logger := slog.Default()

	manifestData, args, err := cluster.DecodePayloadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	manifest, err := workflow.ParseManifest(manifestData)
	if err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	wf, err := manifest.Build(nil)
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}

	logger.Info("running execution", "workflow", manifest.Name, "execution", args.Name)

	results := executor.ExecuteWorkflow(ctx, wf, args)

	if results.Error != nil {
		logger.Warn("execution failed", "execution", args.Name, "error", results.Error)
	} else {
		logger.Info("execution succeeded", "execution", args.Name, "duration", results.Duration())
	}

	message, err := cluster.EncodeResults(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := os.WriteFile(terminationLog, []byte(message), 0644); err != nil {
		return fmt.Errorf("failed to write termination log: %w", err)
	}

	return nil
}
