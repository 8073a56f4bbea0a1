package cluster

import (
	"fmt"

	"github.com/asylve/eo-learn/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newUseCmd creates the cluster use command
func newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use CONTEXT",
		Short: "Set the kubeconfig context used for cluster runs",
		Long: `Record which kubeconfig context "eorun run --backend cluster"
dispatches executions to. The choice is persisted in the eorun config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUse(args[0])
		},
	}

	return cmd
}

func runUse(contextName string) error {
	loader := config.NewKubeconfigLoader(viper.GetString("kubeconfig"))

	// Refuse to record a context the kubeconfig does not know about
	if _, err := loader.GetContextInfo(contextName); err != nil {
		return err
	}

	manager := config.NewManager(viper.GetString("config"))
	if _, err := manager.Load(); err != nil {
		return err
	}

	manager.SetClusterContext(contextName)

	if err := manager.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Execution cluster set to context %q\n", contextName)
	return nil
}
