package core

import (
	"sync"

	"github.com/gammazero/deque"
)

// taskQueue is the multi-producer/multi-consumer FIFO behind TaskList.
//
// The queue is treated as a black box by the rest of the library: any
// producer may Push and any consumer may TryPop concurrently. Ordering is
// best-effort FIFO; under contention two tasks pushed by different
// producers may be popped in either order.
type taskQueue struct {
	mu    sync.Mutex
	tasks deque.Deque[*Task]
}

func newTaskQueue(sizeHint int) *taskQueue {
	q := &taskQueue{}
	if sizeHint > 0 {
		q.tasks.Grow(sizeHint)
	}
	return q
}

func (q *taskQueue) Push(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks.PushBack(t)
}

// TryPop dequeues one task without blocking.
func (q *taskQueue) TryPop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks.Len() == 0 {
		return nil, false
	}
	return q.tasks.PopFront(), true
}

func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Clear removes all queued tasks and releases their references.
func (q *taskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks.Clear()
}
