package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/asylve/eo-learn/internal/output"
	"github.com/asylve/eo-learn/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newValidateCmd creates the validate command
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate MANIFEST",
		Short: "Validate a workflow manifest",
		Long: `Validate a workflow manifest without running it.

The manifest is parsed, every task kind is resolved against the task
registry, and the node graph is checked for unknown dependencies and
cycles. On success the resolved execution order is printed.`,
		Example: `  # Validate a manifest
  eorun validate workflow.yaml

  # Validate and print details as JSON
  eorun validate workflow.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}

	return cmd
}

func runValidate(path string) error {
	manifest, err := workflow.LoadManifest(path)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	wf, err := manifest.Build(nil)
	if err != nil {
		return fmt.Errorf("manifest is invalid: %w", err)
	}

	info := map[string]interface{}{
		"workflow":   manifest.Name,
		"nodes":      wf.Size(),
		"executions": len(manifest.ArgsList()),
		"order":      strings.Join(wf.Order(), " -> "),
	}

	format := output.Format(viper.GetString("output"))
	formatter := output.NewFormatter(format,
		output.WithNoColor(viper.GetBool("no-color")),
	)

	if err := formatter.Format(os.Stdout, info); err != nil {
		return err
	}

	if format == "" || format == output.FormatTable {
		fmt.Fprintf(os.Stdout, "\nManifest %q is valid\n", path)
	}

	return nil
}
