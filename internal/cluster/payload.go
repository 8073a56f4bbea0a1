package cluster

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/asylve/eo-learn/internal/workflow"
)

// Env vars carrying the execution payload into worker pods
const (
	// EnvWorkflow holds the base64-encoded workflow manifest YAML
	EnvWorkflow = "EORUN_WORKFLOW"

	// EnvArgs holds the base64-encoded execution args JSON
	EnvArgs = "EORUN_ARGS"
)

// maxTerminationMessage is the Kubernetes cap on a container's termination
// message. Results that encode larger than this must be trimmed or the
// message is cut off mid-JSON.
const maxTerminationMessage = 4096

// EncodePayload packs a workflow manifest and one args bundle into env var
// values for a worker pod
func EncodePayload(manifest []byte, args workflow.Args) (map[string]string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution args: %w", err)
	}

	return map[string]string{
		EnvWorkflow: base64.StdEncoding.EncodeToString(manifest),
		EnvArgs:     base64.StdEncoding.EncodeToString(argsJSON),
	}, nil
}

// DecodePayload unpacks the manifest and args from env var values
func DecodePayload(workflowValue, argsValue string) ([]byte, workflow.Args, error) {
	var args workflow.Args

	manifest, err := base64.StdEncoding.DecodeString(workflowValue)
	if err != nil {
		return nil, args, fmt.Errorf("failed to decode workflow payload: %w", err)
	}

	argsJSON, err := base64.StdEncoding.DecodeString(argsValue)
	if err != nil {
		return nil, args, fmt.Errorf("failed to decode args payload: %w", err)
	}
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, args, fmt.Errorf("failed to parse execution args: %w", err)
	}

	return manifest, args, nil
}

// DecodePayloadFromEnv reads the payload from the worker process
// environment
func DecodePayloadFromEnv() ([]byte, workflow.Args, error) {
	workflowValue := os.Getenv(EnvWorkflow)
	if workflowValue == "" {
		return nil, workflow.Args{}, fmt.Errorf("%s is not set", EnvWorkflow)
	}

	argsValue := os.Getenv(EnvArgs)
	if argsValue == "" {
		return nil, workflow.Args{}, fmt.Errorf("%s is not set", EnvArgs)
	}

	return DecodePayload(workflowValue, argsValue)
}

// EncodeResults renders execution results as JSON for the pod termination
// message. When the encoded form exceeds the termination message cap the
// outputs are dropped so the stats and error still make it back intact.
func EncodeResults(results workflow.Results) (string, error) {
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	if len(data) > maxTerminationMessage {
		trimmed := results
		trimmed.Outputs = nil

		data, err = json.Marshal(trimmed)
		if err != nil {
			return "", fmt.Errorf("failed to encode trimmed results: %w", err)
		}
		if len(data) > maxTerminationMessage {
			return "", fmt.Errorf("results exceed termination message cap even without outputs (%d bytes)", len(data))
		}
	}

	return string(data), nil
}

// DecodeResults parses results JSON from a pod termination message
func DecodeResults(message string) (workflow.Results, error) {
	var results workflow.Results
	if err := json.Unmarshal([]byte(message), &results); err != nil {
		return results, fmt.Errorf("failed to parse results from termination message: %w", err)
	}
	return results, nil
}
