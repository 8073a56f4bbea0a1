// Package executor runs a workflow over many execution args bundles on a
// pluggable backend.
//
// A Backend is a strategy with two methods: a fixed ProcessingType tag the
// executor can branch on, and RunExecution, which turns a batch of args
// bundles into exactly one Results per bundle, in submission order.
// Per-execution failures are captured inside the Results error wrapper so a
// single bad execution never aborts the batch; the error return is reserved
// for infrastructure failures.
//
// Three backends are provided:
//
//   - LocalBackend runs bundles sequentially in-process.
//   - PoolBackend runs bundles concurrently on a bounded worker pool.
//   - ClusterBackend submits bundles to an external cluster runtime and
//     collects the resulting futures.
//
// # Basic usage
//
//	exec, err := executor.NewPoolExecutor(wf, argsList, 5, logger)
//	if err != nil {
//	    return err
//	}
//
//	results, err := exec.Run(ctx, executor.RunOptions{
//	    ReturnResults: true,
//	    Progress: func(completed, total int) {
//	        fmt.Printf("%d/%d\n", completed, total)
//	    },
//	})
//
// # Cluster execution
//
// ClusterBackend delegates scheduling, worker sizing, and fault tolerance
// to a Runtime. Each submitted bundle yields a Future; the backend keeps a
// working set of pending futures and repeatedly waits for at least one to
// resolve, emitting one progress tick per resolution, before blocking on
// the final result collection:
//
//	exec, err := executor.NewClusterExecutor(wf, argsList, runtime, logger)
//	if err != nil {
//	    return err
//	}
//	results, err := exec.Run(ctx, true)
//
// Retaining results for a large batch may exceed available memory; pass
// false to discard them after summarization.
//
// # Result aggregation
//
// Helpers summarize and filter batches of results:
//
//	failed := executor.FilterFailed(results)
//	summary := executor.Summarize(results)
package executor
