package cluster

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/asylve/eo-learn/internal/config"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// newListCmd creates the cluster list command
func newListCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available kubeconfig contexts",
		Long: `List all Kubernetes contexts from your kubeconfig file(s).

This command displays all available contexts, marking the current one and
the context configured as the execution cluster. It supports multiple
kubeconfig sources including the KUBECONFIG environment variable.`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json, yaml)")

	return cmd
}

func runList(outputFormat string) error {
	logger := slog.Default()

	kubeconfigPath := viper.GetString("kubeconfig")
	logger.Debug("loading kubeconfig", "path", kubeconfigPath)

	loader := config.NewKubeconfigLoader(kubeconfigPath)
	logger.Debug("using kubeconfig paths", "paths", strings.Join(loader.GetPaths(), ", "))

	contexts, err := loader.GetContextInfos()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}

	if len(contexts) == 0 {
		fmt.Fprintf(os.Stderr, "No contexts found in kubeconfig\n")
		return nil
	}

	// Resolve the configured execution context, if any
	executionContext := ""
	if cfg, err := config.NewManager(viper.GetString("config")).Load(); err == nil {
		executionContext = cfg.Cluster.Context
	}

	// Current context first, then by name
	sort.Slice(contexts, func(i, j int) bool {
		if contexts[i].Current {
			return true
		}
		if contexts[j].Current {
			return false
		}
		return contexts[i].Name < contexts[j].Name
	})

	if outputFormat == "" {
		outputFormat = viper.GetString("output")
	}
	if outputFormat == "" {
		outputFormat = "table"
	}

	switch outputFormat {
	case "json":
		return listJSON(contexts)
	case "yaml":
		return listYAML(contexts)
	case "table":
		return listTable(contexts, executionContext, viper.GetBool("no-color"))
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", outputFormat)
	}
}

func listTable(contexts []config.ContextInfo, executionContext string, noColor bool) error {
	table := tablewriter.NewWriter(os.Stdout)

	table.SetHeader([]string{"Current", "Context", "Cluster", "Server", "Namespace", "User"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	var (
		greenBold = color.New(color.FgGreen, color.Bold)
		cyan      = color.New(color.FgCyan)
	)

	if noColor {
		color.NoColor = true
	}

	for _, info := range contexts {
		current := ""
		if info.Current {
			current = "*"
		}

		contextStr := info.Name
		if info.Current && !noColor {
			contextStr = greenBold.Sprint(contextStr)
		}
		if info.Name == executionContext {
			if !noColor {
				contextStr = fmt.Sprintf("%s (%s)", contextStr, cyan.Sprint("execution"))
			} else {
				contextStr = fmt.Sprintf("%s (execution)", contextStr)
			}
		}

		server := info.Server
		if len(server) > 50 {
			server = server[:47] + "..."
		}

		user := info.User
		if len(user) > 30 {
			user = user[:27] + "..."
		}

		table.Append([]string{current, contextStr, info.Cluster, server, info.Namespace, user})
	}

	table.Render()

	fmt.Fprintf(os.Stdout, "\nTotal contexts: %d\n", len(contexts))

	return nil
}

func listJSON(contexts []config.ContextInfo) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(contexts)
}

func listYAML(contexts []config.ContextInfo) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(contexts)
}
