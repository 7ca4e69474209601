package core

import "time"

// Metrics is the seam between the core and a metrics backend.
// All methods must be safe to call from any goroutine; implementations
// should be cheap because they run on the task hot path.
type Metrics interface {
	// RecordTaskScheduled is called once per successful TaskList.Schedule.
	RecordTaskScheduled(listName string)

	// RecordTaskExecuted is called after a task drained from a list finishes.
	RecordTaskExecuted(listName string, duration time.Duration)

	// RecordQueueDepth reports the list's queue depth after a push or pop.
	RecordQueueDepth(listName string, depth int)

	// RecordTaskPanic is called when a task closure panics.
	RecordTaskPanic(listName string)
}

// ListStats is a point-in-time snapshot of a TaskList.
type ListStats struct {
	Name      string
	Pending   int
	Listeners int
	Scheduled int64
	Executed  int64
}

// PoolStats is a point-in-time snapshot of a ThreadPool.
type PoolStats struct {
	Name      string
	Workers   int
	TaskLists int
	Cancelled bool
}

// NilMetrics discards all recordings. It is the default backend.
type NilMetrics struct{}

func (NilMetrics) RecordTaskScheduled(string)               {}
func (NilMetrics) RecordTaskExecuted(string, time.Duration) {}
func (NilMetrics) RecordQueueDepth(string, int)             {}
func (NilMetrics) RecordTaskPanic(string)                   {}
