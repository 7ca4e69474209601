package asynccore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-async-core/core"
)

// waitUntil polls cond until it returns true or the timeout elapses.
func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestThreadPool_PicksUpPreScheduledWork(t *testing.T) {
	var flag atomic.Bool
	list := core.NewTaskList()
	list.Schedule(core.NewTask(func() { flag.Store(true) }))

	pool := NewThreadPool(Desc{AdditionalThreads: 1, Name: "test-pool"})
	defer pool.Shutdown()
	pool.AddTaskList(list)

	if !waitUntil(time.Second, flag.Load) {
		t.Fatal("pre-scheduled task was not executed within 1s of AddTaskList")
	}
}

func TestThreadPool_RemovedListStopsFeedingPool(t *testing.T) {
	list := core.NewTaskList()
	pool := NewThreadPool(Desc{AdditionalThreads: 1, Name: "remove-pool"})
	defer pool.Shutdown()
	pool.AddTaskList(list)

	var first atomic.Bool
	list.Schedule(core.NewTask(func() { first.Store(true) }))
	if !waitUntil(time.Second, first.Load) {
		t.Fatal("task on an added list was not executed")
	}

	pool.RemoveTaskList(list)

	var second atomic.Bool
	list.Schedule(core.NewTask(func() { second.Store(true) }))
	time.Sleep(50 * time.Millisecond)
	if second.Load() {
		t.Fatal("task on a removed list was executed by the pool")
	}

	// The task is still there for whoever drains the list manually.
	if !list.ExecuteNext() {
		t.Fatal("removed list should still hold its task")
	}
	if !second.Load() {
		t.Fatal("manual drain did not run the task")
	}
}

func TestThreadPool_ZeroWorkersExecutesNothing(t *testing.T) {
	pool := NewThreadPool(Desc{UseHardwareConcurrency: false, AdditionalThreads: 0, Name: "empty-pool"})
	defer pool.Shutdown()

	if pool.Workers() != 0 {
		t.Fatalf("workers = %d, want 0", pool.Workers())
	}

	var flag atomic.Bool
	list := core.NewTaskList()
	pool.AddTaskList(list)
	list.Schedule(core.NewTask(func() { flag.Store(true) }))

	time.Sleep(50 * time.Millisecond)
	if flag.Load() {
		t.Fatal("a zero-worker pool must not execute tasks")
	}
}

func TestThreadPool_NegativeThreadCountClamped(t *testing.T) {
	pool := NewThreadPool(Desc{UseHardwareConcurrency: false, AdditionalThreads: -4})
	defer pool.Shutdown()

	if pool.Workers() != 0 {
		t.Fatalf("workers = %d, want 0 after clamping", pool.Workers())
	}
}

func TestThreadPool_WakesParkedWorkersOnSchedule(t *testing.T) {
	list := core.NewTaskList()
	pool := NewThreadPool(Desc{AdditionalThreads: 2, Name: "wake-pool"})
	defer pool.Shutdown()
	pool.AddTaskList(list)

	// Give the workers time to park.
	time.Sleep(20 * time.Millisecond)

	var count atomic.Int64
	for i := 0; i < 10; i++ {
		list.Schedule(core.NewTask(func() { count.Add(1) }))
	}

	if !waitUntil(time.Second, func() bool { return count.Load() == 10 }) {
		t.Fatalf("executed %d tasks, want 10", count.Load())
	}
}

func TestThreadPool_DrivesPromisePipeline(t *testing.T) {
	list := core.NewTaskList()
	pool := NewThreadPool(Desc{AdditionalThreads: 2, Name: "pipeline-pool"})
	defer pool.Shutdown()
	pool.AddTaskList(list)

	p := core.Run(list, func() int { return 6 })
	doubled := core.Then(p, func(v *int) int { return *v * 7 }, list)

	if !waitUntil(time.Second, doubled.IsFinished) {
		t.Fatal("pipeline did not finish on the pool")
	}
	if got := *doubled.UnsafeSyncPeek(); got != 42 {
		t.Fatalf("pipeline result = %d, want 42", got)
	}
}

func TestThreadPool_AddTaskListIsIdempotent(t *testing.T) {
	list := core.NewTaskList()
	pool := NewThreadPool(Desc{UseHardwareConcurrency: false, Name: "idempotent-pool"})
	defer pool.Shutdown()

	pool.AddTaskList(list)
	pool.AddTaskList(list)

	if got := pool.Stats().TaskLists; got != 1 {
		t.Fatalf("task lists = %d, want 1 after double add", got)
	}
}

func TestThreadPool_ShutdownJoinsWorkers(t *testing.T) {
	list := core.NewTaskList()
	pool := NewThreadPool(Desc{AdditionalThreads: 2, Name: "shutdown-pool"})
	pool.AddTaskList(list)

	var count atomic.Int64
	for i := 0; i < 5; i++ {
		list.Schedule(core.NewTask(func() { count.Add(1) }))
	}
	waitUntil(time.Second, func() bool { return count.Load() == 5 })

	pool.Shutdown()
	pool.Shutdown() // second shutdown must be safe

	stats := pool.Stats()
	if !stats.Cancelled {
		t.Fatal("stats should report the pool cancelled")
	}
	if stats.TaskLists != 0 {
		t.Fatalf("task lists = %d after shutdown, want 0", stats.TaskLists)
	}
}

func TestThreadPool_StatsSnapshot(t *testing.T) {
	pool := NewThreadPool(Desc{AdditionalThreads: 3, UseHardwareConcurrency: false, Name: "stats-pool"})
	defer pool.Shutdown()
	pool.AddTaskList(core.NewTaskList())

	stats := pool.Stats()
	if stats.Name != "stats-pool" {
		t.Fatalf("stats name = %q, want %q", stats.Name, "stats-pool")
	}
	if stats.Workers != 3 {
		t.Fatalf("stats workers = %d, want 3", stats.Workers)
	}
	if stats.TaskLists != 1 {
		t.Fatalf("stats task lists = %d, want 1", stats.TaskLists)
	}
	if stats.Cancelled {
		t.Fatal("stats should not report cancelled before shutdown")
	}
}
