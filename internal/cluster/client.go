package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// NewClient creates a cluster client from a REST config.
// This establishes the connection to the Kubernetes API server without
// verifying it; use HealthCheck for that.
func NewClient(ctx context.Context, name string, contextName string, restConfig *rest.Config, logger *slog.Logger) (*Client, error) {
	if restConfig == nil {
		return nil, fmt.Errorf("rest config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	client := &Client{
		Name:       name,
		Context:    contextName,
		Clientset:  clientset,
		RestConfig: restConfig,
	}

	logger.Debug("created cluster client",
		"cluster", name,
		"context", contextName,
		"server", restConfig.Host)

	return client, nil
}

// HealthCheck verifies the cluster is reachable by querying the server
// version through the Discovery API, a lightweight call
func (c *Client) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	type result struct {
		err error
	}
	resultCh := make(chan result, 1)

	// Discovery calls don't take a context, so run in a goroutine and
	// select against the deadline
	go func() {
		_, err := c.Clientset.Discovery().ServerVersion()
		resultCh <- result{err: err}
	}()

	select {
	case <-healthCtx.Done():
		c.Healthy = false
		return fmt.Errorf("health check timeout: %w", healthCtx.Err())
	case res := <-resultCh:
		if res.err != nil {
			c.Healthy = false
			return fmt.Errorf("failed to get server version: %w", res.err)
		}
		c.Healthy = true
		return nil
	}
}

// ServerVersion returns the Kubernetes server version string
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	type result struct {
		version string
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		version, err := c.Clientset.Discovery().ServerVersion()
		if err != nil {
			resultCh <- result{err: err}
			return
		}
		resultCh <- result{version: version.String()}
	}()

	select {
	case <-versionCtx.Done():
		return "", fmt.Errorf("get server version timeout: %w", versionCtx.Err())
	case res := <-resultCh:
		return res.version, res.err
	}
}

// IsHealthy returns the result of the last health check
func (c *Client) IsHealthy() bool {
	return c.Healthy
}

// String returns a string representation of the client
func (c *Client) String() string {
	return fmt.Sprintf("Client{Name: %s, Context: %s, Healthy: %v}", c.Name, c.Context, c.Healthy)
}
