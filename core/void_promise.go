package core

import (
	"sync"
	"sync/atomic"
)

// VoidPromise is the value-less promise: a one-shot completion signal with
// chained continuations. It has no consume path and no stored result;
// continuations take no argument.
//
// All methods are safe to call from any goroutine.
type VoidPromise struct {
	mu        sync.Mutex
	resolved  bool
	thenQueue []voidThenOp

	finished atomic.Bool
}

type voidThenOp struct {
	fn func()
	ec ExecutionContext
}

// NewVoidPromise creates a pending VoidPromise.
func NewVoidPromise() *VoidPromise {
	return &VoidPromise{}
}

// NewImmediateVoidPromise creates an already-resolved VoidPromise.
func NewImmediateVoidPromise() *VoidPromise {
	p := NewVoidPromise()
	p.Resolve()
	return p
}

// Resolve finalizes the promise and dispatches every queued continuation.
// A second call is a no-op returning nil.
func (p *VoidPromise) Resolve() *VoidPromise {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		misuseLogger().Warn("void promise double-resolve ignored")
		return nil
	}
	p.resolved = true
	p.finished.Store(true)

	queue := p.thenQueue
	p.thenQueue = nil
	p.mu.Unlock()

	for _, op := range queue {
		p.dispatch(op)
	}
	return p
}

// OnResolve registers a callback to run once the promise resolves,
// scheduled on ec (the process default when ec is nil).
func (p *VoidPromise) OnResolve(fn func(), ec ExecutionContext) *VoidPromise {
	ec = orDefault(ec)

	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		p.dispatch(voidThenOp{fn: fn, ec: ec})
		return p
	}
	p.thenQueue = append(p.thenQueue, voidThenOp{fn: fn, ec: ec})
	p.mu.Unlock()
	return p
}

// IsFinished reports whether the promise has been resolved.
func (p *VoidPromise) IsFinished() bool {
	return p.finished.Load()
}

func (p *VoidPromise) dispatch(op voidThenOp) {
	op.ec.Schedule(NewTask(func() {
		op.fn()
	}))
}

// VoidThen returns a promise for fn's result, run after p resolves.
func VoidThen[U any](p *VoidPromise, fn func() U, ec ExecutionContext) *Promise[U] {
	out := NewPromise[U]()
	p.OnResolve(func() {
		out.Resolve(fn())
	}, ec)
	return out
}

// VoidThenVoid chains a no-result continuation; the returned promise
// resolves after fn has run.
func VoidThenVoid(p *VoidPromise, fn func(), ec ExecutionContext) *VoidPromise {
	out := NewVoidPromise()
	p.OnResolve(func() {
		fn()
		out.Resolve()
	}, ec)
	return out
}

// VoidThenChain flattens a promise-returning continuation of a VoidPromise.
func VoidThenChain[U any](p *VoidPromise, fn func() *Promise[U], outer, inner ExecutionContext) *Promise[U] {
	outer = orDefault(outer)
	if inner == nil {
		inner = outer
	}

	out := NewPromise[U]()
	p.OnResolve(func() {
		fn().Consume(func(u U) {
			out.Resolve(u)
		}, inner)
	}, outer)
	return out
}
