package core

import (
	"sync"
	"sync/atomic"
)

// Promise is a single-assignment value cell with chained continuations.
//
// A promise starts Pending, becomes Resolved on the first Resolve call, and
// optionally becomes Consumed when its single consumer runs. Each
// continuation is wrapped in a Task and handed to the ExecutionContext chosen
// at registration time. When none is given, the process-wide default is
// used, which (unless replaced) runs the task inline on the goroutine that
// schedules it.
//
// There is no error channel. Callers that need one encode failure inside T
// as a sum type.
//
// Then-callbacks observe the value through a shared pointer and must treat
// it as read-only. The consumer receives the value itself; the cell's copy
// is zeroed as the value is handed over.
//
// All methods are safe to call from any goroutine.
type Promise[T any] struct {
	mu             sync.Mutex
	result         *T
	thenQueue      []thenOp[T]
	consume        *consumeOp[T]
	acceptThens    bool
	remainingThens int

	finished atomic.Bool
}

type thenOp[T any] struct {
	fn func(*T)
	ec ExecutionContext
}

type consumeOp[T any] struct {
	fn func(T)
	ec ExecutionContext
}

// NewPromise creates a pending promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{acceptThens: true}
}

// NewImmediatePromise creates an already-resolved promise holding val.
func NewImmediatePromise[T any](val T) *Promise[T] {
	p := NewPromise[T]()
	p.Resolve(val)
	return p
}

// Resolve stores val and dispatches every queued continuation.
//
// Only the first Resolve succeeds. A second call leaves the promise
// untouched and returns nil.
func (p *Promise[T]) Resolve(val T) *Promise[T] {
	p.mu.Lock()
	if p.result != nil {
		p.mu.Unlock()
		misuseLogger().Warn("promise double-resolve ignored")
		return nil
	}
	p.result = &val
	p.finished.Store(true)

	queue := p.thenQueue
	p.thenQueue = nil
	p.mu.Unlock()

	// remainingThens was incremented for each of these at registration
	// time, so the consumer cannot fire before they finish.
	for _, op := range queue {
		p.dispatchThen(op)
	}

	p.maybeConsume()
	return p
}

// OnResolve registers a callback that observes the value once it is
// available. The callback is scheduled on ec (the process default when ec
// is nil). Returns nil if a consumer is already attached.
func (p *Promise[T]) OnResolve(fn func(*T), ec ExecutionContext) *Promise[T] {
	ec = orDefault(ec)

	p.mu.Lock()
	if !p.acceptThens {
		p.mu.Unlock()
		misuseLogger().Warn("on-resolve after consumer attached ignored")
		return nil
	}

	p.remainingThens++
	if p.result != nil {
		p.mu.Unlock()
		p.dispatchThen(thenOp[T]{fn: fn, ec: ec})
		return p
	}

	p.thenQueue = append(p.thenQueue, thenOp[T]{fn: fn, ec: ec})
	p.mu.Unlock()
	return p
}

// Consume registers the terminal continuation. After Consume no further
// continuations may be registered. The consumer runs exactly once, after
// the value is present and every previously registered then-callback has
// finished. Returns nil if a consumer is already attached.
func (p *Promise[T]) Consume(fn func(T), ec ExecutionContext) *Promise[T] {
	ec = orDefault(ec)

	p.mu.Lock()
	if !p.acceptThens {
		p.mu.Unlock()
		misuseLogger().Warn("consume after consumer attached ignored")
		return nil
	}
	p.acceptThens = false
	p.consume = &consumeOp[T]{fn: fn, ec: ec}
	p.mu.Unlock()

	p.maybeConsume()
	return p
}

// IsFinished reports whether the promise has been resolved.
func (p *Promise[T]) IsFinished() bool {
	return p.finished.Load()
}

// UnsafeSyncPeek returns a pointer to the stored value without any
// synchronization. The caller must have established ordering with a
// successful Resolve by other means. Panics if the promise is pending.
func (p *Promise[T]) UnsafeSyncPeek() *T {
	if p.result == nil {
		panic("asynccore: UnsafeSyncPeek on unresolved promise")
	}
	return p.result
}

// UnsafeSyncMove moves the value out of the cell. The caller must have
// established that resolution happened and that no consumer is attached.
// Panics if the promise is pending.
func (p *Promise[T]) UnsafeSyncMove() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		panic("asynccore: UnsafeSyncMove on unresolved promise")
	}
	val := *p.result
	var zero T
	*p.result = zero
	return val
}

// dispatchThen wraps op in a Task on its execution context. The task body
// captures p, so the promise outlives any in-flight callback.
func (p *Promise[T]) dispatchThen(op thenOp[T]) {
	op.ec.Schedule(NewTask(func() {
		op.fn(p.result)

		p.mu.Lock()
		p.remainingThens--
		p.mu.Unlock()

		// This decrement may be the one that unblocks the consumer.
		p.maybeConsume()
	}))
}

// maybeConsume dispatches the consumer iff the value is present, every
// dispatched then-callback has completed, and a consumer is waiting.
func (p *Promise[T]) maybeConsume() {
	p.mu.Lock()
	if p.consume == nil || p.result == nil || p.remainingThens != 0 {
		p.mu.Unlock()
		return
	}
	op := p.consume
	p.consume = nil
	p.mu.Unlock()

	op.ec.Schedule(NewTask(func() {
		op.fn(p.moveOut())
	}))
}

// moveOut hands the value to the consumer and zeroes the cell's copy.
func (p *Promise[T]) moveOut() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	val := *p.result
	var zero T
	*p.result = zero
	return val
}

// =============================================================================
// Chaining
// =============================================================================

// Then returns a promise for fn applied to this promise's value. fn runs on
// ec and observes the value without consuming it.
//
// Go methods cannot introduce type parameters, so the chaining combinators
// are package-level functions.
func Then[T, U any](p *Promise[T], fn func(*T) U, ec ExecutionContext) *Promise[U] {
	out := NewPromise[U]()
	p.OnResolve(func(v *T) {
		out.Resolve(fn(v))
	}, ec)
	return out
}

// ThenVoid is Then for callbacks with no result; the returned promise
// resolves after fn has run.
func ThenVoid[T any](p *Promise[T], fn func(*T), ec ExecutionContext) *VoidPromise {
	out := NewVoidPromise()
	p.OnResolve(func(v *T) {
		fn(v)
		out.Resolve()
	}, ec)
	return out
}

// ThenConsuming is Then installed through Consume: fn receives the value
// itself and the source promise ends up Consumed.
func ThenConsuming[T, U any](p *Promise[T], fn func(T) U, ec ExecutionContext) *Promise[U] {
	out := NewPromise[U]()
	p.Consume(func(v T) {
		out.Resolve(fn(v))
	}, ec)
	return out
}

// ThenConsumingVoid is ThenConsuming for callbacks with no result.
func ThenConsumingVoid[T any](p *Promise[T], fn func(T), ec ExecutionContext) *VoidPromise {
	out := NewVoidPromise()
	p.Consume(func(v T) {
		fn(v)
		out.Resolve()
	}, ec)
	return out
}

// ThenChain flattens a promise-returning continuation: fn runs on outer and
// the inner promise's completion is observed on inner. Passing nil for
// inner reuses outer.
func ThenChain[T, U any](p *Promise[T], fn func(*T) *Promise[U], outer, inner ExecutionContext) *Promise[U] {
	outer = orDefault(outer)
	if inner == nil {
		inner = outer
	}

	out := NewPromise[U]()
	p.OnResolve(func(v *T) {
		fn(v).Consume(func(u U) {
			out.Resolve(u)
		}, inner)
	}, outer)
	return out
}

// ThenChainConsuming is ThenChain installed through Consume.
func ThenChainConsuming[T, U any](p *Promise[T], fn func(T) *Promise[U], outer, inner ExecutionContext) *Promise[U] {
	outer = orDefault(outer)
	if inner == nil {
		inner = outer
	}

	out := NewPromise[U]()
	p.Consume(func(v T) {
		fn(v).Consume(func(u U) {
			out.Resolve(u)
		}, inner)
	}, outer)
	return out
}

// ThenChainVoid flattens a continuation that produces a VoidPromise.
func ThenChainVoid[T any](p *Promise[T], fn func(*T) *VoidPromise, outer, inner ExecutionContext) *VoidPromise {
	outer = orDefault(outer)
	if inner == nil {
		inner = outer
	}

	out := NewVoidPromise()
	p.OnResolve(func(v *T) {
		fn(v).OnResolve(func() {
			out.Resolve()
		}, inner)
	}, outer)
	return out
}
