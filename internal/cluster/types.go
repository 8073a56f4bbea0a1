package cluster

import (
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Client represents a connection to the Kubernetes cluster that backs
// remote workflow execution
type Client struct {
	// Name is a friendly identifier for the cluster
	Name string

	// Context is the kubeconfig context name
	Context string

	// Clientset is the Kubernetes client interface
	Clientset kubernetes.Interface

	// RestConfig is the underlying REST configuration
	RestConfig *rest.Config

	// Healthy indicates if the last health check passed
	Healthy bool
}

// Options configures how the runtime submits workflow executions as Jobs
type Options struct {
	// Namespace is where execution Jobs are created
	Namespace string

	// Image is the worker container image; it must provide this binary
	Image string

	// ServiceAccount is an optional service account for worker pods
	ServiceAccount string

	// JobPrefix prefixes generated Job names
	JobPrefix string

	// PollInterval is how often job status is checked
	PollInterval time.Duration

	// TTLSeconds is how long finished Jobs are retained before the cluster
	// garbage-collects them
	TTLSeconds int32

	// BackoffLimit is the number of pod retries the cluster performs for a
	// failed execution. Retries are entirely the cluster's concern; this
	// layer never retries.
	BackoffLimit int32
}

// withDefaults fills unset options
func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = "default"
	}
	if o.Image == "" {
		o.Image = "ghcr.io/asylve/eo-learn/eorun:latest"
	}
	if o.JobPrefix == "" {
		o.JobPrefix = "eorun"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.TTLSeconds <= 0 {
		o.TTLSeconds = 3600
	}
	return o
}
