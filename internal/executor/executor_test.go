package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/asylve/eo-learn/internal/workflow"
)

// testLogger returns a quiet logger for tests
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testWorkflow builds a one-node workflow that records its input params
func testWorkflow(t testing.TB) *workflow.Workflow {
	t.Helper()

	wf, err := workflow.New([]*workflow.Node{
		{
			Name:   "mark",
			Task:   &workflow.SetTask{},
			Params: map[string]any{"values": map[string]any{"done": true}},
		},
	})
	if err != nil {
		t.Fatalf("failed to build test workflow: %v", err)
	}
	return wf
}

// testArgs builds n named args bundles
func testArgs(n int) []workflow.Args {
	argsList := make([]workflow.Args, 0, n)
	for i := 0; i < n; i++ {
		argsList = append(argsList, workflow.Args{Name: fmt.Sprintf("exec-%d", i)})
	}
	return argsList
}

// stubBackend returns canned results or an error
type stubBackend struct {
	tag     ProcessingType
	results []workflow.Results
	err     error
	calls   int
}

func (b *stubBackend) ProcessingType() ProcessingType {
	return b.tag
}

func (b *stubBackend) RunExecution(ctx context.Context, argsList []workflow.Args, progress ProgressFunc) ([]workflow.Results, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if b.results != nil {
		return b.results, nil
	}

	results := make([]workflow.Results, 0, len(argsList))
	for i, args := range argsList {
		results = append(results, workflow.Results{Name: args.Name})
		if progress != nil {
			progress(i+1, len(argsList))
		}
	}
	return results, nil
}

func TestNew(t *testing.T) {
	wf := testWorkflow(t)
	backend := &stubBackend{tag: ProcessingSingle}

	tests := []struct {
		name        string
		workflow    *workflow.Workflow
		backend     Backend
		wantErr     bool
		errContains string
	}{
		{
			name:     "valid executor",
			workflow: wf,
			backend:  backend,
			wantErr:  false,
		},
		{
			name:        "nil workflow",
			workflow:    nil,
			backend:     backend,
			wantErr:     true,
			errContains: "workflow cannot be nil",
		},
		{
			name:        "nil backend",
			workflow:    wf,
			backend:     nil,
			wantErr:     true,
			errContains: "backend cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := New(tt.workflow, testArgs(2), tt.backend, testLogger())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if exec.ExecutionCount() != 2 {
				t.Errorf("expected 2 executions, got %d", exec.ExecutionCount())
			}
		})
	}
}

func TestExecutor_RunReturnResults(t *testing.T) {
	wf := testWorkflow(t)
	argsList := testArgs(3)

	t.Run("retained", func(t *testing.T) {
		exec, err := New(wf, argsList, &stubBackend{tag: ProcessingSingle}, testLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		results, err := exec.Run(context.Background(), RunOptions{ReturnResults: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(argsList) {
			t.Errorf("expected %d results, got %d", len(argsList), len(results))
		}
		for i, r := range results {
			if r.Name != argsList[i].Name {
				t.Errorf("result %d: expected name %s, got %s", i, argsList[i].Name, r.Name)
			}
		}
	})

	t.Run("discarded", func(t *testing.T) {
		exec, err := New(wf, argsList, &stubBackend{tag: ProcessingSingle}, testLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		results, err := exec.Run(context.Background(), RunOptions{ReturnResults: false})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results != nil {
			t.Errorf("expected nil results without ReturnResults, got %d", len(results))
		}
	})
}

func TestExecutor_RunEmptyArgsList(t *testing.T) {
	wf := testWorkflow(t)
	backend := &stubBackend{tag: ProcessingSingle}

	exec, err := New(wf, nil, backend, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := exec.Run(context.Background(), RunOptions{ReturnResults: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if backend.calls != 0 {
		t.Error("backend should not be invoked for an empty batch")
	}
}

func TestExecutor_RunBackendError(t *testing.T) {
	wf := testWorkflow(t)
	backend := &stubBackend{tag: ProcessingCluster, err: errors.New("cluster unreachable")}

	exec, err := New(wf, testArgs(1), backend, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = exec.Run(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
	if !strings.Contains(err.Error(), "cluster unreachable") {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
	if !strings.Contains(err.Error(), "cluster backend") {
		t.Errorf("expected processing type in error, got %v", err)
	}
}

func TestExecutor_RunResultCountMismatch(t *testing.T) {
	wf := testWorkflow(t)
	backend := &stubBackend{
		tag:     ProcessingMulti,
		results: []workflow.Results{{Name: "only-one"}},
	}

	exec, err := New(wf, testArgs(3), backend, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = exec.Run(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("expected error for result count mismatch")
	}
	if !strings.Contains(err.Error(), "1 results for 3 executions") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecuteWorkflow(t *testing.T) {
	t.Run("successful execution", func(t *testing.T) {
		wf := testWorkflow(t)
		results := ExecuteWorkflow(context.Background(), wf, workflow.Args{Name: "ok"})

		if results.Error != nil {
			t.Fatalf("unexpected execution error: %v", results.Error)
		}
		if results.Outputs["done"] != true {
			t.Errorf("expected done=true output, got %v", results.Outputs)
		}
	})

	t.Run("nil workflow", func(t *testing.T) {
		results := ExecuteWorkflow(context.Background(), nil, workflow.Args{Name: "none"})

		if results.Error == nil {
			t.Fatal("expected error wrapper for nil workflow")
		}
		if results.Name != "none" {
			t.Errorf("expected execution name preserved, got %s", results.Name)
		}
	})

	t.Run("panicking task", func(t *testing.T) {
		wf, err := workflow.New([]*workflow.Node{
			{Name: "bad", Task: panicTask{}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		results := ExecuteWorkflow(context.Background(), wf, workflow.Args{Name: "panics"})

		if results.Error == nil {
			t.Fatal("expected panic to be captured in results")
		}
		if !strings.Contains(results.Error.Message, "panic during execution") {
			t.Errorf("unexpected error message: %q", results.Error.Message)
		}
		if results.StartTime.IsZero() {
			t.Error("expected start time to be set on recovered results")
		}
		if d := results.Duration(); d < 0 || d > time.Minute {
			t.Errorf("implausible duration on recovered results: %v", d)
		}
	})
}

// panicTask panics on execution
type panicTask struct{}

func (panicTask) Kind() string { return "panic" }

func (panicTask) Execute(ctx context.Context, inputs []workflow.Payload, params map[string]any) (workflow.Payload, error) {
	panic("boom")
}

func TestBackendProcessingTypes(t *testing.T) {
	wf := testWorkflow(t)

	tests := []struct {
		name    string
		backend Backend
		want    ProcessingType
	}{
		{
			name:    "local backend",
			backend: NewLocalBackend(wf, testLogger()),
			want:    ProcessingSingle,
		},
		{
			name:    "pool backend",
			backend: NewPoolBackend(wf, 4, testLogger()),
			want:    ProcessingMulti,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The tag must be fixed across repeated calls
			for i := 0; i < 3; i++ {
				if got := tt.backend.ProcessingType(); got != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
			}
		})
	}
}
