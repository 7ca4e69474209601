package core

import "testing"

// TestInlineExecutionContext_RunsSynchronously verifies inline semantics
// Given: An inline execution context
// When: A task is scheduled
// Then: It has already run when Schedule returns
func TestInlineExecutionContext_RunsSynchronously(t *testing.T) {
	// Arrange
	ec := NewInlineExecutionContext()
	ran := false

	// Act
	ec.Schedule(NewTask(func() { ran = true }))

	// Assert
	if !ran {
		t.Fatal("task did not run synchronously")
	}
}

// TestDefaultExecutionContext_Replaceable verifies the process-wide default
// Given: A custom context installed as the default
// When: A nil context is resolved
// Then: The custom context receives the task
func TestDefaultExecutionContext_Replaceable(t *testing.T) {
	// Arrange
	original := DefaultExecutionContext()
	defer SetDefaultExecutionContext(original)

	list := NewTaskList()
	SetDefaultExecutionContext(list)

	// Act
	ran := false
	orDefault(nil).Schedule(NewTask(func() { ran = true }))

	// Assert
	if ran {
		t.Fatal("task should be queued, not run inline")
	}
	if !list.ExecuteNext() {
		t.Fatal("task was not enqueued on the default list")
	}
	if !ran {
		t.Fatal("task did not run after draining the list")
	}
}

// TestSetDefaultExecutionContext_IgnoresNil verifies nil is rejected
func TestSetDefaultExecutionContext_IgnoresNil(t *testing.T) {
	original := DefaultExecutionContext()
	SetDefaultExecutionContext(nil)
	if DefaultExecutionContext() != original {
		t.Fatal("nil should not replace the default context")
	}
}
