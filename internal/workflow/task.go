package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Payload is the data a workflow moves between nodes.
// Keys are feature names, values are opaque to the engine.
type Payload map[string]any

// Clone returns a shallow copy of the payload
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies all entries from other into the payload, overwriting on conflict
func (p Payload) Merge(other Payload) {
	for k, v := range other {
		p[k] = v
	}
}

// Task is a single unit of computation in a workflow.
// Implementations must be safe for concurrent use: the same task instance
// may execute for many workflow runs at once.
type Task interface {
	// Kind returns the registered task kind identifier
	Kind() string

	// Execute runs the task against the outputs of the node's dependencies.
	// params are the node's static params merged with any per-execution overrides.
	Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error)
}

// TaskFactory constructs a task for a node during manifest parsing
type TaskFactory func() Task

// Registry maps task kinds to their factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]TaskFactory
}

// NewRegistry creates an empty task registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]TaskFactory),
	}
}

// Register adds a task factory under the given kind
// Returns an error if the kind is already registered
func (r *Registry) Register(kind string, factory TaskFactory) error {
	if kind == "" {
		return fmt.Errorf("task kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("task factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("task kind %q already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

// New creates a task instance for the given kind
func (r *Registry) New(kind string) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	return factory(), nil
}

// Kinds returns all registered task kinds in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultRegistry returns a registry with all builtin task kinds registered
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Registration of builtins cannot fail: kinds are unique literals
	_ = r.Register("set", func() Task { return &SetTask{} })
	_ = r.Register("merge", func() Task { return &MergeTask{} })
	_ = r.Register("rename", func() Task { return &RenameTask{} })
	_ = r.Register("remove", func() Task { return &RemoveTask{} })
	_ = r.Register("sleep", func() Task { return &SleepTask{} })
	_ = r.Register("fail", func() Task { return &FailTask{} })

	return r
}

// SetTask writes literal values into the payload.
// Params: "values" (map of feature name to value).
type SetTask struct{}

// Kind returns the task kind
func (t *SetTask) Kind() string { return "set" }

// Execute merges inputs and applies the configured values on top
func (t *SetTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	out := mergeInputs(inputs)

	values, err := mapParam(params, "values")
	if err != nil {
		return nil, err
	}

	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// MergeTask combines the payloads of all dependency nodes.
// Later inputs win on key conflicts.
type MergeTask struct{}

// Kind returns the task kind
func (t *MergeTask) Kind() string { return "merge" }

// Execute merges all inputs in order
func (t *MergeTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	return mergeInputs(inputs), nil
}

// RenameTask renames payload features.
// Params: "mapping" (map of old name to new name).
type RenameTask struct{}

// Kind returns the task kind
func (t *RenameTask) Kind() string { return "rename" }

// Execute renames features according to the configured mapping
func (t *RenameTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	out := mergeInputs(inputs)

	mapping, err := mapParam(params, "mapping")
	if err != nil {
		return nil, err
	}

	for from, to := range mapping {
		toName, ok := to.(string)
		if !ok {
			return nil, fmt.Errorf("rename target for %q must be a string, got %T", from, to)
		}

		value, exists := out[from]
		if !exists {
			return nil, fmt.Errorf("cannot rename missing feature %q", from)
		}

		delete(out, from)
		out[toName] = value
	}
	return out, nil
}

// RemoveTask drops features from the payload.
// Params: "features" (list of feature names).
type RemoveTask struct{}

// Kind returns the task kind
func (t *RemoveTask) Kind() string { return "remove" }

// Execute removes the configured features
func (t *RemoveTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	out := mergeInputs(inputs)

	features, err := listParam(params, "features")
	if err != nil {
		return nil, err
	}

	for _, f := range features {
		delete(out, f)
	}
	return out, nil
}

// SleepTask blocks for a configured duration, respecting context cancellation.
// Params: "duration" (Go duration string). Useful for pipeline tuning and tests.
type SleepTask struct{}

// Kind returns the task kind
func (t *SleepTask) Kind() string { return "sleep" }

// Execute sleeps and then passes the merged inputs through
func (t *SleepTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	raw, ok := params["duration"]
	if !ok {
		return nil, fmt.Errorf("sleep task requires a %q param", "duration")
	}

	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("sleep duration must be a string, got %T", raw)
	}

	d, err := time.ParseDuration(text)
	if err != nil {
		return nil, fmt.Errorf("invalid sleep duration %q: %w", text, err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return mergeInputs(inputs), nil
}

// FailTask always fails with a configured message.
// Params: "message" (optional). Used to exercise failure paths in pipelines.
type FailTask struct{}

// Kind returns the task kind
func (t *FailTask) Kind() string { return "fail" }

// Execute returns the configured error
func (t *FailTask) Execute(ctx context.Context, inputs []Payload, params map[string]any) (Payload, error) {
	message := "task failed"
	if raw, ok := params["message"]; ok {
		if text, ok := raw.(string); ok {
			message = text
		}
	}
	return nil, fmt.Errorf("%s", message)
}

// mergeInputs folds dependency outputs into a single payload, in order
func mergeInputs(inputs []Payload) Payload {
	out := make(Payload)
	for _, in := range inputs {
		out.Merge(in)
	}
	return out
}

// mapParam extracts a map-valued param
func mapParam(params map[string]any, key string) (map[string]any, error) {
	raw, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing %q param", key)
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q param must be a map, got %T", key, raw)
	}
	return m, nil
}

// listParam extracts a string-list param
func listParam(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing %q param", key)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%q param must be a list, got %T", key, raw)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%q param entry %d must be a string, got %T", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
