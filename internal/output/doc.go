// Package output provides formatters for displaying eorun command results.
//
// The package supports multiple output formats (table, JSON, YAML) and
// provides a unified interface for formatting arbitrary data items and
// batches of workflow execution results.
//
// # Basic Usage
//
//	// Create a table formatter
//	formatter := output.NewFormatter(output.FormatTable)
//
//	// Format single data item
//	data := map[string]interface{}{"key": "value"}
//	formatter.Format(os.Stdout, data)
//
//	// Format a batch of execution results
//	results := []workflow.Results{...}
//	formatter.FormatResults(os.Stdout, results)
//
// # Options
//
// Formatters can be configured with functional options:
//
//	formatter := output.NewFormatter(
//	    output.FormatTable,
//	    output.WithNoColor(true),
//	    output.WithWide(true),
//	)
//
// The table formatter renders borderless, tab-separated tables in the style
// of kubectl, with a one-line summary after the rows. JSON and YAML output
// use a stable structure suitable for scripting.
//
// # Color Support
//
// Colors are automatically enabled for TTY outputs and disabled for pipes,
// redirects, or when WithNoColor(true) is set.
package output
