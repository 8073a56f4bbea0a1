package output

import (
	"encoding/json"
	"io"

	"github.com/asylve/eo-learn/internal/workflow"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatResults outputs execution results as JSON
func (f *JSONFormatter) FormatResults(w io.Writer, results []workflow.Results) error {
	output := make([]map[string]interface{}, len(results))

	for i, result := range results {
		output[i] = resultItem(result, f.options.Wide)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// resultItem converts a result to a serialization-friendly structure
func resultItem(result workflow.Results, wide bool) map[string]interface{} {
	item := map[string]interface{}{
		"execution": result.Name,
		"nodes":     len(result.Stats),
		"duration":  result.Duration().String(),
	}

	if result.Error != nil {
		item["status"] = "failed"
		item["error"] = result.Error.Error()
	} else {
		item["status"] = "success"
		if wide {
			item["outputs"] = result.Outputs
		}
	}

	return item
}
