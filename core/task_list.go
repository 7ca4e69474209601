package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// TaskScheduledListener is notified whenever a task is added to a TaskList
// it is registered on. Implementations must not block: the notification is
// delivered synchronously from Schedule.
type TaskScheduledListener interface {
	OnTaskAdded()
}

// TaskListDesc configures a TaskList.
type TaskListDesc struct {
	// Name labels the list in stats and metrics. Optional.
	Name string

	// QueueSizeHint is a rough estimate of the maximum number of queued
	// tasks, used to presize the queue.
	QueueSizeHint int

	// ListenerSizeHint estimates how many listeners will register.
	ListenerSizeHint int

	// Metrics receives scheduling and execution recordings. Defaults to
	// NilMetrics.
	Metrics Metrics
}

// TaskList is a thread-safe FIFO of tasks plus a listener fan-out.
//
// Producers call Schedule from any goroutine; consumers call ExecuteNext
// from any goroutine. Every successful Schedule notifies each currently
// registered listener before it returns. Ordering across producers is
// best-effort FIFO only.
//
// TaskList implements ExecutionContext, so it can be handed directly to
// promise continuations.
type TaskList struct {
	name    string
	tasks   *taskQueue
	metrics Metrics

	listenersMu sync.RWMutex
	listeners   []TaskScheduledListener

	scheduledCount atomic.Int64
	executedCount  atomic.Int64
}

// NewTaskList creates a TaskList with default settings.
func NewTaskList() *TaskList {
	return NewTaskListWithDesc(TaskListDesc{})
}

// NewTaskListWithDesc creates a TaskList from the given descriptor.
func NewTaskListWithDesc(desc TaskListDesc) *TaskList {
	if desc.QueueSizeHint <= 0 {
		desc.QueueSizeHint = 20
	}
	if desc.ListenerSizeHint <= 0 {
		desc.ListenerSizeHint = 1
	}
	if desc.Metrics == nil {
		desc.Metrics = NilMetrics{}
	}
	return &TaskList{
		name:      desc.Name,
		tasks:     newTaskQueue(desc.QueueSizeHint),
		metrics:   desc.Metrics,
		listeners: make([]TaskScheduledListener, 0, desc.ListenerSizeHint),
	}
}

// Name returns the list's label.
func (l *TaskList) Name() string {
	return l.name
}

// Schedule enqueues a task and notifies every registered listener.
func (l *TaskList) Schedule(task *Task) {
	task.MarkScheduled()
	l.tasks.Push(task)
	l.scheduledCount.Add(1)
	l.metrics.RecordTaskScheduled(l.name)
	l.metrics.RecordQueueDepth(l.name, l.tasks.Len())

	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()
	for _, listener := range l.listeners {
		listener.OnTaskAdded()
	}
}

// ExecuteNext dequeues and runs at most one task.
// Returns true if a task was executed.
func (l *TaskList) ExecuteNext() bool {
	return l.ExecuteNextAs("")
}

// ExecuteNextAs is ExecuteNext with the executing worker's label applied to
// the task's profile. Worker loops use this; callers draining a list on
// their own goroutine use ExecuteNext.
func (l *TaskList) ExecuteNextAs(workerID string) bool {
	task, ok := l.tasks.TryPop()
	if !ok {
		return false
	}
	if workerID != "" {
		task.SetExecutorWorkerID(workerID)
	}

	start := time.Now()
	task.Run()
	l.executedCount.Add(1)
	l.metrics.RecordTaskExecuted(l.name, time.Since(start))
	l.metrics.RecordQueueDepth(l.name, l.tasks.Len())
	if task.Panicked() {
		l.metrics.RecordTaskPanic(l.name)
	}
	return true
}

// RegisterListener adds a listener. Duplicate registrations are kept as-is
// and will be notified once per registration.
func (l *TaskList) RegisterListener(listener TaskScheduledListener) {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// UnregisterListener removes every registration equal to listener.
func (l *TaskList) UnregisterListener(listener TaskScheduledListener) {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()
	kept := l.listeners[:0]
	for _, existing := range l.listeners {
		if existing != listener {
			kept = append(kept, existing)
		}
	}
	for i := len(kept); i < len(l.listeners); i++ {
		l.listeners[i] = nil
	}
	l.listeners = kept
}

// Len returns the number of queued tasks.
func (l *TaskList) Len() int {
	return l.tasks.Len()
}

// Stats returns a point-in-time snapshot of the list.
func (l *TaskList) Stats() ListStats {
	l.listenersMu.RLock()
	listeners := len(l.listeners)
	l.listenersMu.RUnlock()

	return ListStats{
		Name:      l.name,
		Pending:   l.tasks.Len(),
		Listeners: listeners,
		Scheduled: l.scheduledCount.Load(),
		Executed:  l.executedCount.Load(),
	}
}

// Run schedules fn on ec and returns a promise for its result.
func Run[T any](ec ExecutionContext, fn func() T) *Promise[T] {
	p := NewPromise[T]()
	orDefault(ec).Schedule(NewTask(func() {
		p.Resolve(fn())
	}))
	return p
}

// RunVoid schedules fn on ec and returns a promise that resolves after fn
// has run.
func RunVoid(ec ExecutionContext, fn func()) *VoidPromise {
	p := NewVoidPromise()
	orDefault(ec).Schedule(NewTask(func() {
		fn()
		p.Resolve()
	}))
	return p
}
