package workflow

import (
	"context"
	"fmt"
	"time"
)

// Node is a single step in a workflow: a task plus the names of the nodes
// whose outputs feed it
type Node struct {
	// Name uniquely identifies the node within its workflow
	Name string

	// Task is the computation this node performs
	Task Task

	// Inputs are the names of the nodes this node depends on
	Inputs []string

	// Params are static task parameters from the workflow definition
	Params map[string]any
}

// Workflow is a validated directed acyclic graph of nodes.
// Construct it with New; a zero Workflow is not usable.
type Workflow struct {
	nodes map[string]*Node
	order []string
}

// New builds a workflow from the given nodes.
// It verifies that node names are unique, all dependencies exist, and the
// graph is acyclic. The resulting topological order is deterministic: ties
// are broken by the order nodes were passed in.
func New(nodes []*Node) (*Workflow, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("workflow must have at least one node")
	}

	byName := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("node name cannot be empty")
		}
		if node.Task == nil {
			return nil, fmt.Errorf("node %q has no task", node.Name)
		}
		if _, exists := byName[node.Name]; exists {
			return nil, fmt.Errorf("duplicate node name %q", node.Name)
		}
		byName[node.Name] = node
	}

	for _, node := range nodes {
		for _, dep := range node.Inputs {
			if _, exists := byName[dep]; !exists {
				return nil, fmt.Errorf("node %q depends on unknown node %q", node.Name, dep)
			}
		}
	}

	order, err := topologicalOrder(nodes, byName)
	if err != nil {
		return nil, err
	}

	return &Workflow{
		nodes: byName,
		order: order,
	}, nil
}

// topologicalOrder computes a deterministic topological order using
// Kahn's algorithm, preserving input order among ready nodes
func topologicalOrder(nodes []*Node, byName map[string]*Node) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))

	for _, node := range nodes {
		indegree[node.Name] = len(node.Inputs)
		for _, dep := range node.Inputs {
			dependents[dep] = append(dependents[dep], node.Name)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(order) < len(nodes) {
		progressed := false

		for _, node := range nodes {
			if indegree[node.Name] != 0 {
				continue
			}

			order = append(order, node.Name)
			indegree[node.Name] = -1 // visited
			for _, dependent := range dependents[node.Name] {
				indegree[dependent]--
			}
			progressed = true
		}

		if !progressed {
			return nil, fmt.Errorf("workflow contains a dependency cycle")
		}
	}

	return order, nil
}

// Size returns the number of nodes in the workflow
func (w *Workflow) Size() int {
	return len(w.nodes)
}

// Order returns the node names in topological execution order
func (w *Workflow) Order() []string {
	order := make([]string, len(w.order))
	copy(order, w.order)
	return order
}

// Node returns the named node, or nil if it does not exist
func (w *Workflow) Node(name string) *Node {
	return w.nodes[name]
}

// terminalNodes returns the names of nodes no other node depends on
func (w *Workflow) terminalNodes() []string {
	hasDependent := make(map[string]bool, len(w.nodes))
	for _, node := range w.nodes {
		for _, dep := range node.Inputs {
			hasDependent[dep] = true
		}
	}

	terminals := make([]string, 0)
	for _, name := range w.order {
		if !hasDependent[name] {
			terminals = append(terminals, name)
		}
	}
	return terminals
}

// Execute runs the workflow for one args bundle.
// Nodes run sequentially in topological order; each node receives the
// outputs of its dependencies. A node failure stops the execution and is
// captured in the returned Results rather than returned as an error, so
// callers running many executions can keep going.
func (w *Workflow) Execute(ctx context.Context, args Args) Results {
	results := Results{
		Name:      args.Name,
		StartTime: time.Now(),
		Stats:     make([]NodeStats, 0, len(w.order)),
	}

	outputs := make(map[string]Payload, len(w.order))

	for _, name := range w.order {
		if err := ctx.Err(); err != nil {
			results.Error = &ExecutionError{Message: err.Error()}
			break
		}

		node := w.nodes[name]

		inputs := make([]Payload, 0, len(node.Inputs))
		for _, dep := range node.Inputs {
			inputs = append(inputs, outputs[dep])
		}

		params := mergeParams(node.Params, args.NodeParams[name])

		stats := NodeStats{
			NodeName:  name,
			TaskKind:  node.Task.Kind(),
			StartTime: time.Now(),
		}

		output, err := node.Task.Execute(ctx, inputs, params)

		stats.EndTime = time.Now()
		results.Stats = append(results.Stats, stats)

		if err != nil {
			results.Error = &ExecutionError{
				NodeName: name,
				Message:  err.Error(),
			}
			break
		}

		outputs[name] = output
	}

	if results.Error == nil {
		terminal := make(Payload)
		for _, name := range w.terminalNodes() {
			terminal.Merge(outputs[name])
		}
		results.Outputs = terminal
	}

	results.EndTime = time.Now()
	return results
}

// mergeParams overlays per-execution overrides on a node's static params
func mergeParams(static, overrides map[string]any) map[string]any {
	if len(overrides) == 0 {
		return static
	}

	merged := make(map[string]any, len(static)+len(overrides))
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
