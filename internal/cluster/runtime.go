package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/asylve/eo-learn/internal/executor"
	"github.com/asylve/eo-learn/internal/workflow"
)

// labelManagedBy marks Jobs created by this runtime
const labelManagedBy = "app.kubernetes.io/managed-by"

// Runtime submits workflow executions to a Kubernetes cluster as Jobs and
// tracks them as futures. It implements executor.Runtime.
//
// Each submitted args bundle becomes one Job whose pod runs this binary's
// worker subcommand. The workflow manifest and the bundle travel as env
// vars; results come back through the pod's termination message. All
// scheduling, placement, and retry behavior belongs to the cluster.
type Runtime struct {
	client   *Client
	manifest []byte
	opts     Options
	logger   *slog.Logger
}

// NewRuntime creates a Jobs-backed runtime for the given workflow manifest.
// It health-checks the cluster immediately so a missing or unreachable
// cluster fails here, not at submission time.
func NewRuntime(ctx context.Context, client *Client, manifest *workflow.Manifest, opts Options, logger *slog.Logger) (*Runtime, error) {
	if client == nil {
		return nil, fmt.Errorf("cluster client cannot be nil")
	}
	if manifest == nil {
		return nil, fmt.Errorf("workflow manifest cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("cluster %q is not available: %w", client.Name, err)
	}

	data, err := manifest.Marshal()
	if err != nil {
		return nil, err
	}

	return &Runtime{
		client:   client,
		manifest: data,
		opts:     opts.withDefaults(),
		logger:   logger,
	}, nil
}

// Submit creates one Job for the args bundle and returns a future that
// resolves when the Job finishes
func (r *Runtime) Submit(ctx context.Context, args workflow.Args) (executor.Future, error) {
	job, err := r.buildJob(args)
	if err != nil {
		return nil, err
	}

	created, err := r.client.Clientset.BatchV1().Jobs(r.opts.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create job for execution %q: %w", args.Name, err)
	}

	r.logger.Debug("submitted execution job",
		"execution", args.Name,
		"job", created.Name,
		"namespace", r.opts.Namespace)

	future := &jobFuture{
		name:    args.Name,
		jobName: created.Name,
		done:    make(chan struct{}),
	}

	go r.watch(ctx, future)

	return future, nil
}

// buildJob constructs the Job object for one execution
func (r *Runtime) buildJob(args workflow.Args) (*batchv1.Job, error) {
	payload, err := EncodePayload(r.manifest, args)
	if err != nil {
		return nil, err
	}

	env := make([]corev1.EnvVar, 0, len(payload))
	for name, value := range payload {
		env = append(env, corev1.EnvVar{Name: name, Value: value})
	}

	backoffLimit := r.opts.BackoffLimit
	ttl := r.opts.TTLSeconds

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName(r.opts.JobPrefix, args.Name),
			Namespace: r.opts.Namespace,
			Labels: map[string]string{
				labelManagedBy: "eorun",
			},
			Annotations: map[string]string{
				"eorun.asylve.dev/execution": args.Name,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            &backoffLimit,
			TTLSecondsAfterFinished: &ttl,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						labelManagedBy: "eorun",
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyNever,
					ServiceAccountName: r.opts.ServiceAccount,
					Containers: []corev1.Container{
						{
							Name:    "worker",
							Image:   r.opts.Image,
							Command: []string{"eorun", "worker"},
							Env:     env,
						},
					},
				},
			},
		},
	}, nil
}

// jobName builds a unique DNS-safe name for an execution Job
func jobName(prefix, execution string) string {
	name := fmt.Sprintf("%s-%s", prefix, execution)
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		name = prefix
	}

	// Leave room for the random suffix within the 63-char label limit
	const maxBase = 57
	if len(name) > maxBase {
		name = name[:maxBase]
	}
	return fmt.Sprintf("%s-%s", name, rand.String(5))
}

// watch polls the Job until it finishes, then resolves the future
func (r *Runtime) watch(ctx context.Context, future *jobFuture) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			future.fail(fmt.Errorf("stopped watching job %s: %w", future.jobName, ctx.Err()))
			return
		case <-ticker.C:
		}

		job, err := r.client.Clientset.BatchV1().Jobs(r.opts.Namespace).Get(ctx, future.jobName, metav1.GetOptions{})
		if err != nil {
			// Transient API errors are retried on the next tick; a deleted
			// job never finishes, so surface that case
			if ctx.Err() != nil {
				future.fail(fmt.Errorf("stopped watching job %s: %w", future.jobName, ctx.Err()))
				return
			}
			r.logger.Debug("failed to poll job, will retry",
				"job", future.jobName,
				"error", err)
			continue
		}

		switch {
		case jobFinished(job, batchv1.JobComplete):
			results, err := r.collectResults(ctx, future)
			if err != nil {
				future.fail(err)
			} else {
				future.complete(results)
			}
			return

		case jobFinished(job, batchv1.JobFailed):
			message := jobFailureMessage(job)
			future.fail(fmt.Errorf("job %s failed: %s", future.jobName, message))
			return
		}
	}
}

// jobFinished reports whether the job has the given terminal condition
func jobFinished(job *batchv1.Job, condition batchv1.JobConditionType) bool {
	for _, c := range job.Status.Conditions {
		if c.Type == condition && c.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// jobFailureMessage extracts the failure reason from job conditions
func jobFailureMessage(job *batchv1.Job) string {
	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobFailed && c.Status == corev1.ConditionTrue {
			if c.Message != "" {
				return c.Message
			}
			return c.Reason
		}
	}
	return "unknown failure"
}

// collectResults reads the worker's results from its pod termination
// message
func (r *Runtime) collectResults(ctx context.Context, future *jobFuture) (workflow.Results, error) {
	pods, err := r.client.Clientset.CoreV1().Pods(r.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + future.jobName,
	})
	if err != nil {
		return workflow.Results{}, fmt.Errorf("failed to list pods for job %s: %w", future.jobName, err)
	}
	if len(pods.Items) == 0 {
		return workflow.Results{}, fmt.Errorf("no pods found for job %s", future.jobName)
	}

	for _, pod := range pods.Items {
		for _, status := range pod.Status.ContainerStatuses {
			terminated := status.State.Terminated
			if terminated == nil || terminated.Message == "" {
				continue
			}
			return DecodeResults(terminated.Message)
		}
	}

	return workflow.Results{}, fmt.Errorf("no results in termination messages for job %s", future.jobName)
}

// jobFuture tracks one submitted Job. Resolution is signalled by closing
// done; results and err are written exactly once, before the close.
type jobFuture struct {
	name    string
	jobName string

	done chan struct{}

	mu      sync.Mutex
	results workflow.Results
	err     error
}

// Name returns the execution name of the submitted bundle
func (f *jobFuture) Name() string { return f.name }

// Done returns a channel closed once the job has finished
func (f *jobFuture) Done() <-chan struct{} { return f.done }

// Result blocks until the job finishes and returns its results
func (f *jobFuture) Result(ctx context.Context) (workflow.Results, error) {
	select {
	case <-ctx.Done():
		return workflow.Results{}, fmt.Errorf("waiting for job %s: %w", f.jobName, ctx.Err())
	case <-f.done:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results, f.err
}

// complete resolves the future with results
func (f *jobFuture) complete(results workflow.Results) {
	f.mu.Lock()
	f.results = results
	f.mu.Unlock()
	close(f.done)
}

// fail resolves the future with an error
func (f *jobFuture) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.done)
}
