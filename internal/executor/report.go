package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// CountSucceeded returns the number of successful executions
func CountSucceeded(results []workflow.Results) int {
	count := 0
	for _, r := range results {
		if r.Succeeded() {
			count++
		}
	}
	return count
}

// CountFailed returns the number of failed executions
func CountFailed(results []workflow.Results) int {
	return len(results) - CountSucceeded(results)
}

// FilterSucceeded returns only the successful executions
func FilterSucceeded(results []workflow.Results) []workflow.Results {
	filtered := make([]workflow.Results, 0, len(results))
	for _, r := range results {
		if r.Succeeded() {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FilterFailed returns only the failed executions
func FilterFailed(results []workflow.Results) []workflow.Results {
	filtered := make([]workflow.Results, 0, len(results))
	for _, r := range results {
		if !r.Succeeded() {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Errors extracts the execution errors from failed results
func Errors(results []workflow.Results) []error {
	errs := make([]error, 0)
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	return errs
}

// HasFailures returns true if any execution failed
func HasFailures(results []workflow.Results) bool {
	for _, r := range results {
		if !r.Succeeded() {
			return true
		}
	}
	return false
}

// SuccessRate returns the fraction of successful executions as a
// percentage (0.0 to 100.0)
func SuccessRate(results []workflow.Results) float64 {
	if len(results) == 0 {
		return 0.0
	}
	return float64(CountSucceeded(results)) / float64(len(results)) * 100.0
}

// Summary aggregates a batch of execution results
type Summary struct {
	Total       int
	Succeeded   int
	Failed      int
	AvgDuration time.Duration
	MaxDuration time.Duration
	MinDuration time.Duration
}

// Summarize builds a summary of the results
func Summarize(results []workflow.Results) Summary {
	s := Summary{
		Total:     len(results),
		Succeeded: CountSucceeded(results),
	}
	s.Failed = s.Total - s.Succeeded

	if s.Total == 0 {
		return s
	}

	var total time.Duration
	s.MinDuration = results[0].Duration()
	for _, r := range results {
		d := r.Duration()
		total += d
		if d > s.MaxDuration {
			s.MaxDuration = d
		}
		if d < s.MinDuration {
			s.MinDuration = d
		}
	}
	s.AvgDuration = total / time.Duration(s.Total)

	return s
}

// String returns a human-readable summary line
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Succeeded: %d, ", s.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Min: %s", s.MinDuration.Round(time.Millisecond)))
	}

	return sb.String()
}
