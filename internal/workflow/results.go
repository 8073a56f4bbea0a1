package workflow

import (
	"fmt"
	"time"
)

// Args is one per-workflow execution bundle.
// The executors treat it as opaque: only Workflow.Execute interprets it.
type Args struct {
	// Name identifies this execution in logs and reports
	Name string `json:"name" yaml:"name"`

	// NodeParams holds per-node parameter overrides for this execution.
	// Keys are node names, values are merged over the node's static params.
	NodeParams map[string]map[string]any `json:"nodeParams,omitempty" yaml:"nodeParams,omitempty"`
}

// NodeStats records timing for a single executed node
type NodeStats struct {
	// NodeName is the name of the executed node
	NodeName string `json:"nodeName" yaml:"nodeName"`

	// TaskKind is the kind of the node's task
	TaskKind string `json:"taskKind" yaml:"taskKind"`

	// StartTime is when node execution began
	StartTime time.Time `json:"startTime" yaml:"startTime"`

	// EndTime is when node execution finished
	EndTime time.Time `json:"endTime" yaml:"endTime"`
}

// Duration returns how long the node took to execute
func (s NodeStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ExecutionError is a serializable wrapper for a failure during workflow
// execution. Results carry it across process boundaries, so it holds the
// rendered message rather than the original error value.
type ExecutionError struct {
	// NodeName is the node that failed, if the failure is attributable to one
	NodeName string `json:"nodeName,omitempty" yaml:"nodeName,omitempty"`

	// Message is the rendered error message
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.NodeName != "" {
		return fmt.Sprintf("node %q: %s", e.NodeName, e.Message)
	}
	return e.Message
}

// Results is the outcome of executing one workflow for one args bundle.
// A failed execution still produces Results: the failure is captured in
// Error and the stats cover the nodes that ran.
type Results struct {
	// Name is the execution name from the args bundle
	Name string `json:"name" yaml:"name"`

	// Outputs holds the merged payloads of the workflow's terminal nodes
	// (empty when the execution failed)
	Outputs Payload `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Stats holds per-node timing in execution order
	Stats []NodeStats `json:"stats,omitempty" yaml:"stats,omitempty"`

	// StartTime is when the execution began
	StartTime time.Time `json:"startTime" yaml:"startTime"`

	// EndTime is when the execution finished
	EndTime time.Time `json:"endTime" yaml:"endTime"`

	// Error captures an execution failure, nil on success
	Error *ExecutionError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns the total wall-clock time of the execution
func (r Results) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Succeeded returns true if the execution completed without error
func (r Results) Succeeded() bool {
	return r.Error == nil
}

// String returns a short human-readable summary
func (r Results) String() string {
	status := "succeeded"
	if r.Error != nil {
		status = fmt.Sprintf("failed (%s)", r.Error.Error())
	}
	return fmt.Sprintf("execution %q %s in %s, %d nodes",
		r.Name, status, r.Duration().Round(time.Millisecond), len(r.Stats))
}
