package core

import (
	"testing"
	"time"
)

// TestTask_RunInvokesClosureOnce verifies the one-shot contract
// Given: A task wrapping a counting closure
// When: Run is called twice
// Then: The closure ran exactly once
func TestTask_RunInvokesClosureOnce(t *testing.T) {
	// Arrange
	count := 0
	task := NewTask(func() { count++ })

	// Act
	task.Run()
	task.Run()

	// Assert
	if count != 1 {
		t.Fatalf("closure ran %d times, want 1", count)
	}
}

// TestTask_ProfileTimestampOrdering verifies profile invariants
// Given: A profiled task
// When: It is scheduled and run
// Then: Created <= Scheduled <= Started <= Finished and the callback fired
func TestTask_ProfileTimestampOrdering(t *testing.T) {
	// Arrange
	var profile TaskProfile
	profiled := false
	task := NewTaskWithProfile(func(p TaskProfile) {
		profile = p
		profiled = true
	}, func() {
		time.Sleep(time.Millisecond)
	})

	// Act
	task.MarkScheduled()
	task.SetExecutorWorkerID("worker-1")
	task.Run()

	// Assert
	if !profiled {
		t.Fatal("profile callback did not fire")
	}
	if profile.Created.After(profile.Scheduled) {
		t.Fatal("Created should not be after Scheduled")
	}
	if profile.Scheduled.After(profile.Started) {
		t.Fatal("Scheduled should not be after Started")
	}
	if profile.Started.After(profile.Finished) {
		t.Fatal("Started should not be after Finished")
	}
	if profile.ExecutorWorkerID != "worker-1" {
		t.Fatalf("ExecutorWorkerID = %q, want %q", profile.ExecutorWorkerID, "worker-1")
	}
}

// TestTask_PanicGuard verifies the guard-and-continue policy
// Given: A task whose closure panics
// When: Run is called
// Then: The caller survives, Panicked reports true, and the profile callback still fires
func TestTask_PanicGuard(t *testing.T) {
	// Arrange
	profiled := false
	task := NewTaskWithProfile(func(TaskProfile) { profiled = true }, func() {
		panic("boom")
	})

	// Act
	task.Run()

	// Assert
	if !task.Panicked() {
		t.Fatal("Panicked() = false, want true")
	}
	if !profiled {
		t.Fatal("profile callback did not fire after panic")
	}
}

// TestTask_NilClosure verifies a task without a closure is inert
func TestTask_NilClosure(t *testing.T) {
	task := NewTask(nil)
	task.Run() // must not panic
	if task.Panicked() {
		t.Fatal("empty task should not report a panic")
	}
}
