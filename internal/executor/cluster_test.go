package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// fakeRuntime runs each submitted bundle on its own goroutine after an
// optional per-submission delay, mimicking an external cluster scheduler
type fakeRuntime struct {
	submitErr error
	resultErr error
	delays    []time.Duration

	submitted atomic.Int32
}

func (r *fakeRuntime) Submit(ctx context.Context, args workflow.Args) (Future, error) {
	if r.submitErr != nil {
		return nil, r.submitErr
	}

	index := int(r.submitted.Add(1)) - 1

	f := newFakeFuture(args.Name)
	f.err = r.resultErr
	f.results = workflow.Results{
		Name:    args.Name,
		Outputs: workflow.Payload{"index": index},
	}

	var delay time.Duration
	if index < len(r.delays) {
		delay = r.delays[index]
	}

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		f.resolve()
	}()

	return f, nil
}

func TestNewClusterBackend(t *testing.T) {
	t.Run("valid runtime", func(t *testing.T) {
		backend, err := NewClusterBackend(&fakeRuntime{}, testLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backend == nil {
			t.Fatal("expected backend, got nil")
		}
	})

	t.Run("nil runtime fails immediately", func(t *testing.T) {
		_, err := NewClusterBackend(nil, testLogger())
		if err == nil {
			t.Fatal("expected error for nil runtime")
		}
		if !strings.Contains(err.Error(), "runtime cannot be nil") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestClusterBackend_ProcessingType(t *testing.T) {
	backend, err := NewClusterBackend(&fakeRuntime{}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fixed tag, regardless of how often it is queried
	for i := 0; i < 3; i++ {
		if got := backend.ProcessingType(); got != ProcessingCluster {
			t.Errorf("expected %s, got %s", ProcessingCluster, got)
		}
	}
}

func TestClusterBackend_RunExecution(t *testing.T) {
	runtime := &fakeRuntime{
		// Reverse delays so completion order is the reverse of submission
		delays: []time.Duration{40 * time.Millisecond, 25 * time.Millisecond, 10 * time.Millisecond},
	}

	backend, err := NewClusterBackend(runtime, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	argsList := testArgs(3)

	var ticks []int
	results, err := backend.RunExecution(context.Background(), argsList, func(completed, total int) {
		ticks = append(ticks, completed)
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One result per bundle, in submission order despite reversed completion
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Name != argsList[i].Name {
			t.Errorf("result %d: expected %s, got %s", i, argsList[i].Name, r.Name)
		}
		if r.Outputs["index"] != i {
			t.Errorf("result %d: expected submission index %d, got %v", i, i, r.Outputs["index"])
		}
	}

	// Exactly one tick per resolved future, monotonically increasing
	if len(ticks) != 3 {
		t.Fatalf("expected 3 progress ticks, got %d", len(ticks))
	}
	for i, tick := range ticks {
		if tick != i+1 {
			t.Errorf("tick %d: expected %d, got %d", i, i+1, tick)
		}
	}
}

func TestClusterBackend_RunExecutionEmpty(t *testing.T) {
	runtime := &fakeRuntime{}
	backend, err := NewClusterBackend(runtime, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ticked := false
	start := time.Now()
	results, err := backend.RunExecution(context.Background(), nil, func(completed, total int) {
		ticked = true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if ticked {
		t.Error("expected no progress ticks for empty batch")
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("empty batch must not block")
	}
	if got := runtime.submitted.Load(); got != 0 {
		t.Errorf("expected no submissions, got %d", got)
	}
}

func TestClusterBackend_SubmitError(t *testing.T) {
	runtime := &fakeRuntime{submitErr: errors.New("quota exceeded")}

	backend, err := NewClusterBackend(runtime, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = backend.RunExecution(context.Background(), testArgs(2), nil)
	if err == nil {
		t.Fatal("expected submit error to propagate")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected original error preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "exec-0") {
		t.Errorf("expected failing execution name, got %v", err)
	}
}

func TestClusterBackend_CollectError(t *testing.T) {
	runtime := &fakeRuntime{resultErr: errors.New("worker evicted")}

	backend, err := NewClusterBackend(runtime, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = backend.RunExecution(context.Background(), testArgs(2), nil)
	if err == nil {
		t.Fatal("expected collection error to propagate")
	}
	if !strings.Contains(err.Error(), "worker evicted") {
		t.Errorf("expected runtime error unmodified in chain, got %v", err)
	}
}

func TestClusterExecutor_Run(t *testing.T) {
	wf := testWorkflow(t)
	argsList := testArgs(4)

	t.Run("with results", func(t *testing.T) {
		exec, err := NewClusterExecutor(wf, argsList, &fakeRuntime{}, testLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var ticks atomic.Int32
		exec.Progress = func(completed, total int) { ticks.Add(1) }

		results, err := exec.Run(context.Background(), true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(argsList) {
			t.Errorf("expected %d results, got %d", len(argsList), len(results))
		}
		if ticks.Load() != int32(len(argsList)) {
			t.Errorf("expected %d ticks, got %d", len(argsList), ticks.Load())
		}
	})

	t.Run("without results", func(t *testing.T) {
		exec, err := NewClusterExecutor(wf, argsList, &fakeRuntime{}, testLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		results, err := exec.Run(context.Background(), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results != nil {
			t.Errorf("expected nil results, got %d", len(results))
		}
	})

	t.Run("nil runtime", func(t *testing.T) {
		_, err := NewClusterExecutor(wf, argsList, nil, testLogger())
		if err == nil {
			t.Fatal("expected error for nil runtime")
		}
	})
}

func TestClusterBackend_LargeBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large batch test in short mode")
	}

	backend, err := NewClusterBackend(&fakeRuntime{}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const n = 200
	argsList := make([]workflow.Args, 0, n)
	for i := 0; i < n; i++ {
		argsList = append(argsList, workflow.Args{Name: fmt.Sprintf("exec-%d", i)})
	}

	var ticks atomic.Int32
	results, err := backend.RunExecution(context.Background(), argsList, func(completed, total int) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != n {
		t.Errorf("expected %d results, got %d", n, len(results))
	}
	if ticks.Load() != n {
		t.Errorf("expected %d ticks, got %d", n, ticks.Load())
	}
	for i, r := range results {
		if r.Name != argsList[i].Name {
			t.Fatalf("result %d out of order: %s", i, r.Name)
		}
	}
}
