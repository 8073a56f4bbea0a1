package cluster

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	clusterruntime "github.com/asylve/eo-learn/internal/cluster"
	"github.com/asylve/eo-learn/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newPingCmd creates the cluster ping command
func newPingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping [CONTEXT]",
		Short: "Check that the execution cluster is reachable",
		Long: `Check connectivity to a Kubernetes cluster.

Without arguments the configured execution context is checked (falling
back to the current kubeconfig context). The command connects, performs a
health check, and reports the server version.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := ""
			if len(args) > 0 {
				contextName = args[0]
			}
			return runPing(cmd, contextName)
		},
	}

	return cmd
}

func runPing(cmd *cobra.Command, contextName string) error {
	logger := slog.Default()
	ctx := cmd.Context()

	loader := config.NewKubeconfigLoader(viper.GetString("kubeconfig"))

	if contextName == "" {
		if cfg, err := config.NewManager(viper.GetString("config")).Load(); err == nil {
			contextName = cfg.Cluster.Context
		}
	}
	if contextName == "" {
		current, err := loader.GetCurrentContext()
		if err != nil {
			return fmt.Errorf("failed to determine kubeconfig context: %w", err)
		}
		contextName = current
	}

	logger.Debug("pinging cluster", "context", contextName)

	restConfig, err := loader.BuildClientConfig(contextName)
	if err != nil {
		return err
	}

	client, err := clusterruntime.NewClient(ctx, contextName, contextName, restConfig, logger)
	if err != nil {
		return err
	}

	if err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cluster %q is not reachable: %w", contextName, err)
	}

	serverVersion, err := client.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Context\t%s\n", contextName)
	fmt.Fprintf(w, "Server Version\t%s\n", serverVersion)
	fmt.Fprintf(w, "Status\tHealthy\n")
	return w.Flush()
}
