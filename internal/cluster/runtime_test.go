package cluster

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/asylve/eo-learn/internal/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testManifest(t *testing.T) *workflow.Manifest {
	t.Helper()

	manifest, err := workflow.ParseManifest([]byte(`
name: runtime-test
nodes:
  - name: tag
    task: set
    params:
      values:
        done: true
`))
	if err != nil {
		t.Fatalf("failed to parse test manifest: %v", err)
	}
	return manifest
}

func testRuntime(t *testing.T, clientset *fake.Clientset) *Runtime {
	t.Helper()

	client := &Client{
		Name:      "test-cluster",
		Context:   "test-context",
		Clientset: clientset,
	}

	runtime, err := NewRuntime(context.Background(), client, testManifest(t), Options{
		Namespace:    "pipelines",
		Image:        "example.com/eorun:test",
		PollInterval: 10 * time.Millisecond,
	}, testLogger())
	if err != nil {
		t.Fatalf("failed to create runtime: %v", err)
	}
	return runtime
}

func TestNewRuntime_Validation(t *testing.T) {
	ctx := context.Background()
	client := &Client{Name: "c", Clientset: fake.NewSimpleClientset()}

	tests := []struct {
		name        string
		client      *Client
		manifest    *workflow.Manifest
		errContains string
	}{
		{name: "nil client", client: nil, manifest: testManifest(t), errContains: "client cannot be nil"},
		{name: "nil manifest", client: client, manifest: nil, errContains: "manifest cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuntime(ctx, tt.client, tt.manifest, Options{}, testLogger())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestNewRuntime_UnreachableCluster(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("get", "version", func(action k8stesting.Action) (bool, k8sruntime.Object, error) {
		return true, nil, errors.New("connection refused")
	})

	client := &Client{
		Name:      "down",
		Context:   "down-context",
		Clientset: clientset,
	}

	_, err := NewRuntime(context.Background(), client, testManifest(t), Options{}, testLogger())
	if err == nil {
		t.Fatal("expected error for unreachable cluster, got nil")
	}
	if !strings.Contains(err.Error(), `cluster "down" is not available`) {
		t.Errorf("expected unavailable-cluster error, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected underlying cause in error, got %q", err.Error())
	}
	if client.IsHealthy() {
		t.Error("expected client marked unhealthy after failed check")
	}
}

func TestRuntime_SubmitCreatesJob(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	runtime := testRuntime(t, clientset)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	future, err := runtime.Submit(ctx, workflow.Args{Name: "tile-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if future.Name() != "tile-1" {
		t.Errorf("expected future name tile-1, got %s", future.Name())
	}

	jobs, err := clientset.BatchV1().Jobs("pipelines").List(ctx, metav1.ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs.Items) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.Items))
	}

	job := jobs.Items[0]
	if !strings.HasPrefix(job.Name, "eorun-tile-1-") {
		t.Errorf("unexpected job name %q", job.Name)
	}
	if job.Labels[labelManagedBy] != "eorun" {
		t.Errorf("expected managed-by label, got %v", job.Labels)
	}

	podSpec := job.Spec.Template.Spec
	if len(podSpec.Containers) != 1 {
		t.Fatalf("expected 1 container, got %d", len(podSpec.Containers))
	}

	container := podSpec.Containers[0]
	if container.Image != "example.com/eorun:test" {
		t.Errorf("unexpected image %q", container.Image)
	}
	if len(container.Command) != 2 || container.Command[1] != "worker" {
		t.Errorf("expected worker subcommand, got %v", container.Command)
	}
	if podSpec.RestartPolicy != corev1.RestartPolicyNever {
		t.Errorf("expected restart policy Never, got %s", podSpec.RestartPolicy)
	}

	// Payload env vars must decode back to the submitted bundle
	env := map[string]string{}
	for _, v := range container.Env {
		env[v.Name] = v.Value
	}
	_, args, err := DecodePayload(env[EnvWorkflow], env[EnvArgs])
	if err != nil {
		t.Fatalf("payload does not decode: %v", err)
	}
	if args.Name != "tile-1" {
		t.Errorf("expected args tile-1, got %s", args.Name)
	}
}

func TestRuntime_FutureResolvesOnCompletion(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	runtime := testRuntime(t, clientset)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	future, err := runtime.Submit(ctx, workflow.Args{Name: "tile-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, _ := clientset.BatchV1().Jobs("pipelines").List(ctx, metav1.ListOptions{})
	job := jobs.Items[0]

	// Simulate the worker finishing: termination message on the pod, then
	// the job condition flipping to complete
	message, err := EncodeResults(workflow.Results{
		Name:    "tile-2",
		Outputs: workflow.Payload{"done": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      job.Name + "-pod",
			Namespace: "pipelines",
			Labels:    map[string]string{"job-name": job.Name},
		},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name: "worker",
					State: corev1.ContainerState{
						Terminated: &corev1.ContainerStateTerminated{
							ExitCode: 0,
							Message:  message,
						},
					},
				},
			},
		},
	}
	if _, err := clientset.CoreV1().Pods("pipelines").Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		t.Fatalf("failed to create pod: %v", err)
	}

	job.Status.Conditions = []batchv1.JobCondition{
		{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
	}
	if _, err := clientset.BatchV1().Jobs("pipelines").UpdateStatus(ctx, &job, metav1.UpdateOptions{}); err != nil {
		t.Fatalf("failed to update job status: %v", err)
	}

	select {
	case <-future.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("future did not resolve")
	}

	results, err := future.Result(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Name != "tile-2" {
		t.Errorf("expected results for tile-2, got %s", results.Name)
	}
	if results.Outputs["done"] != true {
		t.Errorf("expected outputs preserved, got %v", results.Outputs)
	}
}

func TestRuntime_FutureFailsOnJobFailure(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	runtime := testRuntime(t, clientset)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	future, err := runtime.Submit(ctx, workflow.Args{Name: "tile-3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, _ := clientset.BatchV1().Jobs("pipelines").List(ctx, metav1.ListOptions{})
	job := jobs.Items[0]

	job.Status.Conditions = []batchv1.JobCondition{
		{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Message: "backoff limit exceeded"},
	}
	if _, err := clientset.BatchV1().Jobs("pipelines").UpdateStatus(ctx, &job, metav1.UpdateOptions{}); err != nil {
		t.Fatalf("failed to update job status: %v", err)
	}

	select {
	case <-future.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("future did not resolve")
	}

	_, err = future.Result(ctx)
	if err == nil {
		t.Fatal("expected error from failed job")
	}
	if !strings.Contains(err.Error(), "backoff limit exceeded") {
		t.Errorf("expected failure message propagated, got %v", err)
	}
}

func TestRuntime_FutureFailsOnCancelledWatch(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	runtime := testRuntime(t, clientset)

	ctx, cancel := context.WithCancel(context.Background())

	future, err := runtime.Submit(ctx, workflow.Args{Name: "tile-4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()

	select {
	case <-future.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("future did not resolve after cancellation")
	}

	if _, err := future.Result(context.Background()); err == nil {
		t.Error("expected error after cancelled watch")
	}
}

func TestJobName(t *testing.T) {
	name := jobName("eorun", "tile-1")
	if !strings.HasPrefix(name, "eorun-tile-1-") {
		t.Errorf("unexpected job name %q", name)
	}

	// Names that are not DNS-safe fall back to the prefix
	fallback := jobName("eorun", "Tile With Spaces!")
	if !strings.HasPrefix(fallback, "eorun-") {
		t.Errorf("unexpected fallback name %q", fallback)
	}
	if strings.Contains(fallback, " ") {
		t.Errorf("job name contains spaces: %q", fallback)
	}

	// Long execution names are truncated below the label limit
	long := jobName("eorun", strings.Repeat("a", 100))
	if len(long) > 63 {
		t.Errorf("job name too long: %d chars", len(long))
	}

	// Names must be unique across calls
	if jobName("eorun", "same") == jobName("eorun", "same") {
		t.Error("expected unique job names")
	}
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()

	if opts.Namespace != "default" {
		t.Errorf("expected default namespace, got %s", opts.Namespace)
	}
	if opts.Image == "" {
		t.Error("expected default image")
	}
	if opts.PollInterval <= 0 {
		t.Error("expected positive poll interval")
	}
	if opts.TTLSeconds <= 0 {
		t.Error("expected positive TTL")
	}

	custom := Options{Namespace: "jobs", PollInterval: time.Second}.withDefaults()
	if custom.Namespace != "jobs" || custom.PollInterval != time.Second {
		t.Errorf("explicit options overwritten: %+v", custom)
	}
}
