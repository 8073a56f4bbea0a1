package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML definition of a workflow and the executions to run
// against it
type Manifest struct {
	// Name identifies the workflow
	Name string `yaml:"name"`

	// Nodes define the workflow graph
	Nodes []NodeSpec `yaml:"nodes"`

	// Executions are the per-workflow args bundles to run
	Executions []Args `yaml:"executions"`
}

// NodeSpec is the YAML form of a workflow node
type NodeSpec struct {
	// Name uniquely identifies the node
	Name string `yaml:"name"`

	// Task is the registered task kind
	Task string `yaml:"task"`

	// Inputs are the names of dependency nodes
	Inputs []string `yaml:"inputs,omitempty"`

	// Params are static task parameters
	Params map[string]any `yaml:"params,omitempty"`
}

// LoadManifest reads and parses a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Name == "" {
		return nil, fmt.Errorf("manifest must have a name")
	}
	if len(manifest.Nodes) == 0 {
		return nil, fmt.Errorf("manifest %q has no nodes", manifest.Name)
	}

	return &manifest, nil
}

// Marshal renders the manifest back to YAML, used to ship workflow
// definitions to remote workers
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Build constructs the validated workflow from the manifest using the
// given task registry
func (m *Manifest) Build(registry *Registry) (*Workflow, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}

	nodes := make([]*Node, 0, len(m.Nodes))
	for _, spec := range m.Nodes {
		task, err := registry.New(spec.Task)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Name, err)
		}

		nodes = append(nodes, &Node{
			Name:   spec.Name,
			Task:   task,
			Inputs: spec.Inputs,
			Params: spec.Params,
		})
	}

	wf, err := New(nodes)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow %q: %w", m.Name, err)
	}
	return wf, nil
}

// ArgsList returns the manifest's execution bundles, defaulting to a single
// unnamed execution when none are declared. Execution names default to
// "execution-<index>".
func (m *Manifest) ArgsList() []Args {
	if len(m.Executions) == 0 {
		return []Args{{Name: "execution-0"}}
	}

	argsList := make([]Args, len(m.Executions))
	copy(argsList, m.Executions)

	for i := range argsList {
		if argsList[i].Name == "" {
			argsList[i].Name = fmt.Sprintf("execution-%d", i)
		}
	}
	return argsList
}
