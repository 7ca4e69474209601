package core

import (
	"time"
)

// TaskProfile captures the scheduling timeline of a single task.
//
// Timestamps are ordered: Created <= Scheduled <= Started <= Finished.
// ExecutorWorkerID identifies the worker that ran the task; it is empty when
// the task ran inline on the caller's goroutine.
type TaskProfile struct {
	Created          time.Time
	Scheduled        time.Time
	Started          time.Time
	Finished         time.Time
	ExecutorWorkerID string
}

// ProfileCallback receives the completed profile after a task finishes.
type ProfileCallback func(profile TaskProfile)

// Task is a one-shot deferred invocation.
//
// A Task wraps a zero-argument closure and runs it exactly once. Tasks are
// handed off by pointer through ExecutionContext.Schedule and must not be
// run twice or shared after Run returns. There is no failure channel: a
// closure that panics is recovered and reported through the package panic
// logger, matching the guard-and-continue policy of the worker loops.
type Task struct {
	fn        func()
	profileCb ProfileCallback
	profile   TaskProfile
	ran       bool
	panicked  bool
}

// NewTask wraps fn in a Task.
func NewTask(fn func()) *Task {
	return &Task{
		fn:      fn,
		profile: TaskProfile{Created: time.Now()},
	}
}

// NewTaskWithProfile wraps fn in a Task that reports its completed
// TaskProfile to profileCb after the closure returns.
func NewTaskWithProfile(profileCb ProfileCallback, fn func()) *Task {
	t := NewTask(fn)
	t.profileCb = profileCb
	return t
}

// MarkScheduled stamps the Scheduled timestamp. Execution contexts call this
// when they accept the task.
func (t *Task) MarkScheduled() {
	t.profile.Scheduled = time.Now()
}

// SetExecutorWorkerID labels the profile with the worker about to run this
// task. Worker loops call this just before Run.
func (t *Task) SetExecutorWorkerID(id string) {
	t.profile.ExecutorWorkerID = id
}

// Run invokes the wrapped closure exactly once.
//
// A panicking closure is recovered and logged; the caller's goroutine
// survives. Calling Run a second time is a no-op.
func (t *Task) Run() {
	if t.ran || t.fn == nil {
		return
	}
	t.ran = true

	t.profile.Started = time.Now()
	t.panicked = runGuarded(t.fn)
	t.profile.Finished = time.Now()

	if t.profileCb != nil {
		t.profileCb(t.profile)
	}
	t.fn = nil
}

// Panicked reports whether the closure panicked during Run.
func (t *Task) Panicked() bool {
	return t.panicked
}

func runGuarded(fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			panicLogger().Error("task panicked", F("panic", r))
		}
	}()
	fn()
	return false
}

