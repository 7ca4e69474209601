package core

import "sync/atomic"

// ExecutionContext accepts a task and eventually runs it.
//
// The two implementations shipped with this library cover the main use
// cases: InlineExecutionContext runs the task immediately on the calling
// goroutine, and TaskList enqueues it for whichever worker drains the list.
type ExecutionContext interface {
	Schedule(task *Task)
}

// InlineExecutionContext executes scheduled tasks immediately, on the
// current goroutine. It is a useful default when an execution context is
// required but no task list is set up.
type InlineExecutionContext struct{}

// NewInlineExecutionContext creates an InlineExecutionContext.
func NewInlineExecutionContext() *InlineExecutionContext {
	return &InlineExecutionContext{}
}

// Schedule runs the task synchronously.
func (c *InlineExecutionContext) Schedule(task *Task) {
	task.MarkScheduled()
	task.Run()
}

// defaultContext holds the process-wide execution context used when a caller
// passes nil. Replaceable before first use via SetDefaultExecutionContext.
// Contexts are stored boxed in a contextHolder so that contexts of different
// concrete types can replace one another.
var defaultContext atomic.Value

type contextHolder struct{ ec ExecutionContext }

func init() {
	defaultContext.Store(contextHolder{ec: NewInlineExecutionContext()})
}

// DefaultExecutionContext returns the process-wide default context.
func DefaultExecutionContext() ExecutionContext {
	return defaultContext.Load().(contextHolder).ec
}

// SetDefaultExecutionContext replaces the process-wide default context.
// Applications that want continuations to land somewhere other than the
// caller's goroutine should call this during startup.
func SetDefaultExecutionContext(ec ExecutionContext) {
	if ec != nil {
		defaultContext.Store(contextHolder{ec: ec})
	}
}

// orDefault resolves a possibly-nil context argument.
func orDefault(ec ExecutionContext) ExecutionContext {
	if ec == nil {
		return DefaultExecutionContext()
	}
	return ec
}
