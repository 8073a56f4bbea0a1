package cluster

import (
	"github.com/spf13/cobra"
)

// NewClusterCmd creates the cluster management command
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Inspect and select the execution cluster",
		Long: `Inspect and select the Kubernetes cluster used for remote execution.

This command provides subcommands for listing kubeconfig contexts,
checking that a cluster is reachable, and recording the context that
"eorun run --backend cluster" should dispatch to.`,
	}

	// Add subcommands
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPingCmd())
	cmd.AddCommand(newUseCmd())

	return cmd
}
