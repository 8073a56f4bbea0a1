package config

import "time"

// Config is the eorun configuration file structure
type Config struct {
	// DefaultBackend selects the execution backend when --backend is not
	// given (single, multiprocess, cluster)
	DefaultBackend string `yaml:"defaultBackend,omitempty" json:"defaultBackend,omitempty" mapstructure:"defaultBackend"`

	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty" mapstructure:"defaults"`

	// Cluster configures the Kubernetes-backed cluster runtime
	Cluster ClusterConfig `yaml:"cluster,omitempty" json:"cluster,omitempty" mapstructure:"cluster"`
}

// DefaultsConfig contains default run settings
type DefaultsConfig struct {
	// Workers is the local worker pool size for multiprocess runs
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty" mapstructure:"workers"`

	// Timeout bounds a whole run
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty" mapstructure:"outputFormat"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty" mapstructure:"noColor"`
}

// ClusterConfig configures remote execution
type ClusterConfig struct {
	// Context is the kubeconfig context of the execution cluster; empty
	// means the current context
	Context string `yaml:"context,omitempty" json:"context,omitempty" mapstructure:"context"`

	// Namespace is where execution Jobs are created
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" mapstructure:"namespace"`

	// Image is the worker container image
	Image string `yaml:"image,omitempty" json:"image,omitempty" mapstructure:"image"`

	// ServiceAccount is an optional service account for worker pods
	ServiceAccount string `yaml:"serviceAccount,omitempty" json:"serviceAccount,omitempty" mapstructure:"serviceAccount"`

	// PollInterval is how often job status is checked
	PollInterval time.Duration `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty" mapstructure:"pollInterval"`

	// JobPrefix prefixes generated Job names
	JobPrefix string `yaml:"jobPrefix,omitempty" json:"jobPrefix,omitempty" mapstructure:"jobPrefix"`

	// TTLSeconds is how long finished Jobs are kept before cleanup
	TTLSeconds int32 `yaml:"ttlSeconds,omitempty" json:"ttlSeconds,omitempty" mapstructure:"ttlSeconds"`
}
