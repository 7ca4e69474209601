// Package asynccore is an embeddable asynchronous-computation core: promises
// with explicit execution contexts, thread-safe task lists, and worker pools
// that drain them.
//
// The primitives live in the core package:
//
//   - core.Task: a one-shot deferred invocation, optionally profiled.
//   - core.ExecutionContext: anything that can accept a task and eventually
//     run it. core.InlineExecutionContext runs tasks on the calling
//     goroutine; core.TaskList enqueues them for workers.
//   - core.Promise[T] / core.VoidPromise: single-assignment value cells with
//     chained continuations. Every continuation names the execution context
//     it should run on, so callers control which goroutine observes a value.
//   - core.PromiseCombiner: a fan-in barrier over heterogeneous promises,
//     yielding a keyed Result once every entry has resolved.
//
// This package adds the ThreadPool, which owns worker goroutines and drains
// a dynamic set of task lists, waking parked workers through the task list
// listener protocol.
//
// A minimal end-to-end flow:
//
//	pool := asynccore.NewThreadPool(asynccore.DefaultDesc())
//	defer pool.Shutdown()
//
//	workQueue := core.NewTaskList()
//	mainQueue := core.NewTaskList()
//	pool.AddTaskList(workQueue)
//
//	p := core.Run(workQueue, func() int { return expensiveComputation() })
//	p.OnResolve(func(v *int) { fmt.Println("got", *v) }, mainQueue)
//
//	// ... on the main goroutine:
//	for mainQueue.ExecuteNext() {
//	}
//
// Promises carry no error channel. Encode failure inside the held type as a
// success/error sum.
package asynccore
