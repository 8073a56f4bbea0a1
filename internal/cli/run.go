package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/asylve/eo-learn/internal/cluster"
	"github.com/asylve/eo-learn/internal/config"
	"github.com/asylve/eo-learn/internal/executor"
	"github.com/asylve/eo-learn/internal/output"
	"github.com/asylve/eo-learn/internal/workflow"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	var (
		noResults bool
		wide      bool
		noHeaders bool
	)

	cmd := &cobra.Command{
		Use:   "run MANIFEST",
		Short: "Run the executions of a workflow manifest",
		Long: `Run all parameterized executions declared in a workflow manifest.

The backend decides where executions run: "single" runs them sequentially
in-process, "multiprocess" uses a local worker pool, and "cluster"
dispatches one Kubernetes Job per execution and waits for the results.`,
		Example: `  # Run a manifest sequentially
  eorun run workflow.yaml

  # Run with a local worker pool
  eorun run workflow.yaml --backend multiprocess -w 8

  # Dispatch executions to the configured cluster
  eorun run workflow.yaml --backend cluster -n workflows

  # Run without collecting outputs, JSON logs
  eorun run workflow.yaml --no-results --no-color`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args[0], noResults, wide, noHeaders)
		},
	}

	cmd.Flags().BoolVar(&noResults, "no-results", false, "discard per-execution outputs, report only the summary")
	cmd.Flags().BoolVar(&wide, "wide", false, "show additional result columns")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")

	return cmd
}

func runRun(ctx context.Context, path string, noResults, wide, noHeaders bool) error {
	logger := slog.Default()

	manifest, err := workflow.LoadManifest(path)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	wf, err := manifest.Build(nil)
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}

	argsList := manifest.ArgsList()

	cfg, err := config.NewManager(cfgFile).Load()
	if err != nil {
		return err
	}

	backend := viper.GetString("backend")
	if backend == "" {
		backend = cfg.DefaultBackend
	}

	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("running workflow",
		"manifest", path,
		"workflow", manifest.Name,
		"backend", backend,
		"executions", len(argsList))

	progress := progressReporter()

	var results []workflow.Results

	switch backend {
	case string(executor.ProcessingSingle), "":
		exec, err := executor.NewLocalExecutor(wf, argsList, logger)
		if err != nil {
			return err
		}
		results, err = exec.Run(ctx, executor.RunOptions{
			ReturnResults: !noResults,
			Progress:      progress,
		})
		if err != nil {
			return err
		}

	case string(executor.ProcessingMulti):
		workers := viper.GetInt("workers")
		if workers <= 0 {
			workers = cfg.Defaults.Workers
		}
		exec, err := executor.NewPoolExecutor(wf, argsList, workers, logger)
		if err != nil {
			return err
		}
		results, err = exec.Run(ctx, executor.RunOptions{
			ReturnResults: !noResults,
			Progress:      progress,
		})
		if err != nil {
			return err
		}

	case string(executor.ProcessingCluster):
		runtime, err := buildClusterRuntime(ctx, cfg, manifest, logger)
		if err != nil {
			return err
		}
		exec, err := executor.NewClusterExecutor(wf, argsList, runtime, logger)
		if err != nil {
			return err
		}
		exec.Progress = progress
		results, err = exec.Run(ctx, !noResults)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown backend %q (supported: single, multiprocess, cluster)", backend)
	}

	if noResults {
		return nil
	}

	format := output.Format(viper.GetString("output"))
	if format == "" {
		format = output.Format(cfg.Defaults.OutputFormat)
	}

	formatter := output.NewFormatter(format,
		output.WithNoColor(viper.GetBool("no-color") || cfg.Defaults.NoColor),
		output.WithWide(wide),
		output.WithNoHeaders(noHeaders),
	)

	if err := formatter.FormatResults(os.Stdout, results); err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if failed := executor.CountFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d executions failed", failed, len(results))
	}

	return nil
}

// progressReporter returns a progress callback writing to stderr, or nil
// when stderr is not a terminal
func progressReporter() executor.ProgressFunc {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\rcompleted %d/%d executions", completed, total)
		if completed == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

// buildClusterRuntime connects to the configured Kubernetes cluster and
// prepares the Jobs runtime for the manifest
func buildClusterRuntime(ctx context.Context, cfg *config.Config, manifest *workflow.Manifest, logger *slog.Logger) (*cluster.Runtime, error) {
	contextName := cfg.Cluster.Context

	loader := config.NewKubeconfigLoader(viper.GetString("kubeconfig"))
	if contextName == "" {
		current, err := loader.GetCurrentContext()
		if err != nil {
			return nil, fmt.Errorf("failed to determine kubeconfig context: %w", err)
		}
		contextName = current
	}

	restConfig, err := loader.BuildClientConfig(contextName)
	if err != nil {
		return nil, err
	}

	client, err := cluster.NewClient(ctx, contextName, contextName, restConfig, logger)
	if err != nil {
		return nil, err
	}

	namespace := viper.GetString("namespace")
	if namespace == "" {
		namespace = cfg.Cluster.Namespace
	}

	opts := cluster.Options{
		Namespace:      namespace,
		Image:          cfg.Cluster.Image,
		ServiceAccount: cfg.Cluster.ServiceAccount,
		JobPrefix:      cfg.Cluster.JobPrefix,
		PollInterval:   cfg.Cluster.PollInterval,
		TTLSeconds:     cfg.Cluster.TTLSeconds,
	}

	return cluster.NewRuntime(ctx, client, manifest, opts, logger)
}
