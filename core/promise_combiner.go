package core

import (
	"fmt"
	"sync"
)

// PromiseCombiner is a fan-in barrier over heterogeneous promises.
//
// Promises are registered with Add / AddConsuming / AddVoid, each returning
// a typed key. Once every entry has been added, exactly one Combine /
// CombineVoid / CombineChaining call finalizes the combiner; its callback
// receives a Result once every registered promise has resolved, and uses
// the keys to read entry values out of the Result.
//
// The Result handed to the aggregated callback holds the only deliberate
// back-reference to the combiner; it is released when the callback returns,
// clearing the entry table so held values become collectable (see the
// Result docs).
type PromiseCombiner struct {
	mu       sync.Mutex
	nextKey  uint16
	entries  []combinerEntry
	finished bool
	result   *Result

	finalPromise *Promise[Result]
}

// combinerEntry records one registered promise. raw is the type-erased
// promise handle; key methods downcast it back to *Promise[T] under the
// invariant that the key's type parameter matches the entry.
type combinerEntry struct {
	key        uint16
	raw        any
	isResolved bool
	isOwning   bool
}

// PromiseKey identifies a non-consuming combiner entry of type T. Keys are
// trivially copyable; a zero key is invalid.
type PromiseKey[T any] struct {
	key uint16
}

// IsValid reports whether the key identifies an entry.
func (k PromiseKey[T]) IsValid() bool { return k.key > 0 }

// Key returns the raw key value. Zero means "no entry".
func (k PromiseKey[T]) Key() uint16 { return k.key }

// ConsumingPromiseKey identifies a combiner entry of type T registered via
// AddConsuming. Only consuming keys grant Move access; there is no Move on
// PromiseKey, so moving through a non-owning key does not compile.
type ConsumingPromiseKey[T any] struct {
	key uint16
}

// IsValid reports whether the key identifies an entry.
func (k ConsumingPromiseKey[T]) IsValid() bool { return k.key > 0 }

// Key returns the raw key value. Zero means "no entry".
func (k ConsumingPromiseKey[T]) Key() uint16 { return k.key }

// VoidPromiseKey identifies a VoidPromise entry. Void entries only gate the
// barrier; they have no value to read at Result time.
type VoidPromiseKey struct {
	key uint16
}

// IsValid reports whether the key identifies an entry.
func (k VoidPromiseKey) IsValid() bool { return k.key > 0 }

// NewPromiseCombiner creates an empty combiner.
func NewPromiseCombiner() *PromiseCombiner {
	return &PromiseCombiner{
		nextKey:      1,
		finalPromise: NewPromise[Result](),
	}
}

// Add registers a promise whose value the aggregated callback will observe
// by reference. The child promise's completion is observed on ec.
// Returns an invalid key if the combiner is already finalized.
func Add[T any](c *PromiseCombiner, p *Promise[T], ec ExecutionContext) PromiseKey[T] {
	key, ok := c.appendEntry(p, false)
	if !ok {
		return PromiseKey[T]{}
	}

	p.OnResolve(func(*T) {
		c.resolveEntry(key)
	}, ec)

	return PromiseKey[T]{key: key}
}

// AddConsuming registers a promise whose value the aggregated callback may
// move out of the Result. The user promise is consumed into an internal
// relay promise owned by the combiner, so the original promise ends up
// Consumed and its value lives in the entry until Result release.
// Returns an invalid key if the combiner is already finalized.
func AddConsuming[T any](c *PromiseCombiner, p *Promise[T], ec ExecutionContext) ConsumingPromiseKey[T] {
	relay := NewPromise[T]()
	key, ok := c.appendEntry(relay, true)
	if !ok {
		return ConsumingPromiseKey[T]{}
	}

	p.Consume(func(v T) {
		relay.Resolve(v)
	}, ec)

	relay.OnResolve(func(*T) {
		c.resolveEntry(key)
	}, nil)

	return ConsumingPromiseKey[T]{key: key}
}

// AddVoid registers a completion-only entry.
// Returns an invalid key if the combiner is already finalized.
func AddVoid(c *PromiseCombiner, p *VoidPromise, ec ExecutionContext) VoidPromiseKey {
	key, ok := c.appendEntry(p, false)
	if !ok {
		return VoidPromiseKey{}
	}

	p.OnResolve(func() {
		c.resolveEntry(key)
	}, ec)

	return VoidPromiseKey{key: key}
}

// Combine finalizes the combiner. fn runs on ec once every entry has
// resolved and returns the value of the promise returned by Combine.
// A second finalization returns nil.
func Combine[U any](c *PromiseCombiner, fn func(*Result) U, ec ExecutionContext) *Promise[U] {
	if !c.finalize() {
		return nil
	}

	// Sentinel tick: every entry may already be resolved.
	c.resolveEntry(0)

	return ThenConsuming(c.finalPromise, func(r Result) U {
		defer r.release()
		return fn(&r)
	}, ec)
}

// CombineVoid is Combine for aggregated callbacks with no result.
func CombineVoid(c *PromiseCombiner, fn func(*Result), ec ExecutionContext) *VoidPromise {
	if !c.finalize() {
		return nil
	}

	c.resolveEntry(0)

	return ThenConsumingVoid(c.finalPromise, func(r Result) {
		defer r.release()
		fn(&r)
	}, ec)
}

// CombineChaining finalizes the combiner with a promise-returning callback.
// fn runs on outer; the promise it returns is consumed on inner (outer when
// inner is nil). A second finalization returns nil.
func CombineChaining[U any](c *PromiseCombiner, fn func(*Result) *Promise[U], outer, inner ExecutionContext) *Promise[U] {
	if !c.finalize() {
		return nil
	}

	c.resolveEntry(0)

	return ThenChainConsuming(c.finalPromise, func(r Result) *Promise[U] {
		defer r.release()
		return fn(&r)
	}, outer, inner)
}

func (c *PromiseCombiner) appendEntry(raw any, owning bool) (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		misuseLogger().Warn("combiner add after finalization ignored")
		return 0, false
	}
	key := c.nextKey
	c.nextKey++
	c.entries = append(c.entries, combinerEntry{key: key, raw: raw, isOwning: owning})
	return key, true
}

func (c *PromiseCombiner) finalize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		misuseLogger().Warn("combiner already finalized")
		return false
	}
	c.finished = true
	// The back-reference that keeps the entry table alive until the
	// aggregated callback's Result is released.
	c.result = &Result{combiner: c}
	return true
}

// resolveEntry marks the keyed entry resolved (key 0 is the sentinel tick)
// and resolves the terminal promise once finalization has happened and
// every entry is resolved.
func (c *PromiseCombiner) resolveEntry(key uint16) {
	c.mu.Lock()
	if key != 0 {
		for i := range c.entries {
			if c.entries[i].key == key {
				c.entries[i].isResolved = true
				break
			}
		}
	}

	if !c.finished {
		c.mu.Unlock()
		return
	}
	for i := range c.entries {
		if !c.entries[i].isResolved {
			c.mu.Unlock()
			return
		}
	}

	res := c.result
	c.result = nil
	c.mu.Unlock()

	if res != nil {
		c.finalPromise.Resolve(*res)
	}
}

// findEntry scans for a key. No locking: by construction this is only
// called from Result accessors, after every entry has resolved and no
// further mutation of the entry table can happen.
func (c *PromiseCombiner) findEntry(key uint16) *combinerEntry {
	for i := range c.entries {
		if c.entries[i].key == key {
			return &c.entries[i]
		}
	}
	return nil
}

// Result is the view over a finalized combiner's entries, passed to the
// aggregated callback. Entry values are read through the keys returned at
// Add time: key.Get(result) peeks, key.Move(result) (consuming keys only)
// moves the value out.
//
// The Result owns the combiner back-reference; when the aggregated callback
// returns, the reference is released and the entry table cleared, so values
// held by the entries become collectable even while external handles to the
// combiner remain. Using a Result after the aggregated callback has
// returned is a programmer error.
type Result struct {
	combiner *PromiseCombiner
}

// release drops the back-reference and clears the entry table.
func (r *Result) release() {
	c := r.combiner
	if c == nil {
		return
	}
	r.combiner = nil

	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Get returns a pointer to the entry's value. The value must be treated as
// read-only. Panics on a key unknown to the combiner: that is a programmer
// bug, not a runtime condition.
func (k PromiseKey[T]) Get(r *Result) *T {
	return resultPeek[T](r, k.key)
}

// Get returns a pointer to the entry's value without consuming it.
func (k ConsumingPromiseKey[T]) Get(r *Result) *T {
	return resultPeek[T](r, k.key)
}

// Move moves the entry's value out of the combiner. Only consuming keys
// have Move, so a move through a non-owning key is rejected at compile
// time. Panics on a key unknown to the combiner.
func (k ConsumingPromiseKey[T]) Move(r *Result) T {
	entry := resultEntry(r, k.key)
	p, ok := entry.raw.(*Promise[T])
	if !ok || !entry.isOwning {
		panic(fmt.Sprintf("asynccore: combiner key %d does not grant move access", k.key))
	}
	return p.UnsafeSyncMove()
}

func resultPeek[T any](r *Result, key uint16) *T {
	entry := resultEntry(r, key)
	p, ok := entry.raw.(*Promise[T])
	if !ok {
		panic(fmt.Sprintf("asynccore: combiner key %d does not hold the requested type", key))
	}
	return p.UnsafeSyncPeek()
}

func resultEntry(r *Result, key uint16) *combinerEntry {
	if r == nil || r.combiner == nil {
		panic("asynccore: combiner result used after release")
	}
	if key == 0 {
		panic("asynccore: invalid combiner key")
	}
	entry := r.combiner.findEntry(key)
	if entry == nil {
		panic(fmt.Sprintf("asynccore: combiner key %d unknown to this combiner", key))
	}
	return entry
}
