package core

import "testing"

// TestVoidPromise_ResolveRunsContinuations verifies the completion signal
// Given: A pending VoidPromise with two continuations on a task list
// When: Resolve is called and the list drains
// Then: Both continuations ran
func TestVoidPromise_ResolveRunsContinuations(t *testing.T) {
	// Arrange
	p := NewVoidPromise()
	list := NewTaskList()

	count := 0
	p.OnResolve(func() { count++ }, list)
	p.OnResolve(func() { count++ }, list)

	// Act
	if p.Resolve() == nil {
		t.Fatal("first resolve should succeed")
	}
	for list.ExecuteNext() {
	}

	// Assert
	if count != 2 {
		t.Fatalf("ran %d continuations, want 2", count)
	}
}

// TestVoidPromise_DoubleResolveIsNoOp verifies at-most-once resolution
func TestVoidPromise_DoubleResolveIsNoOp(t *testing.T) {
	p := NewImmediateVoidPromise()
	if p.Resolve() != nil {
		t.Fatal("second resolve should return nil")
	}
	if !p.IsFinished() {
		t.Fatal("promise should stay finished")
	}
}

// TestVoidPromise_LateRegistrationRunsImmediately verifies registration
// after resolution schedules right away
func TestVoidPromise_LateRegistrationRunsImmediately(t *testing.T) {
	p := NewImmediateVoidPromise()
	inline := NewInlineExecutionContext()

	ran := false
	p.OnResolve(func() { ran = true }, inline)

	if !ran {
		t.Fatal("late continuation did not run inline")
	}
}

// TestVoidThen_ProducesValue verifies chaining a value out of a void signal
func TestVoidThen_ProducesValue(t *testing.T) {
	inline := NewInlineExecutionContext()
	p := NewVoidPromise()

	derived := VoidThen(p, func() int { return 13 }, inline)
	p.Resolve()

	if got := *derived.UnsafeSyncPeek(); got != 13 {
		t.Fatalf("derived value = %d, want 13", got)
	}
}

// TestVoidThenChain_Flattens verifies the chaining variant
// Given: A void promise chained into a promise-returning continuation
// When: Both resolve
// Then: The chained promise carries the inner value
func TestVoidThenChain_Flattens(t *testing.T) {
	// Arrange
	inline := NewInlineExecutionContext()
	signal := NewVoidPromise()
	inner := NewPromise[int]()

	chained := VoidThenChain(signal, func() *Promise[int] {
		return inner
	}, inline, nil)

	// Act
	signal.Resolve()
	if chained.IsFinished() {
		t.Fatal("chained promise must wait for the inner promise")
	}
	inner.Resolve(5)

	// Assert
	if got := *chained.UnsafeSyncPeek(); got != 5 {
		t.Fatalf("chained value = %d, want 5", got)
	}
}
