package asynccore

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Swind/go-async-core/core"
)

// Desc configures a ThreadPool.
type Desc struct {
	// UseHardwareConcurrency seeds the worker count with the number of
	// logical CPUs.
	UseHardwareConcurrency bool

	// AdditionalThreads adjusts the worker count, positive or negative.
	// The effective count is clamped to >= 0; a pool with zero workers is
	// valid and executes nothing.
	AdditionalThreads int

	// Name labels the pool in stats and worker IDs. Defaults to a random
	// UUID.
	Name string

	// Logger receives pool lifecycle debug messages. Defaults to no-op.
	Logger core.Logger
}

// DefaultDesc returns the default pool configuration: one worker per
// logical CPU.
func DefaultDesc() Desc {
	return Desc{UseHardwareConcurrency: true}
}

// ThreadPool drains a dynamic set of task lists with a fixed set of worker
// goroutines.
//
// The pool registers itself as a TaskScheduledListener on every list added
// to it, so parked workers wake promptly when work arrives. Workers
// round-robin over the lists; when a full pass finds no work they park on
// the pool's wake signal. Task lists and pools have a many-to-many
// relationship, but typically there is one pool and a small set of lists
// feeding it.
type ThreadPool struct {
	name    string
	workers int
	logger  core.Logger

	wg        sync.WaitGroup
	cancelled atomic.Bool
	stopCh    chan struct{}

	// signal carries wake-up hints to parked workers. Buffered so that
	// OnTaskAdded never blocks; a full channel means enough wake-ups are
	// already pending.
	signal chan struct{}

	listsMu     sync.RWMutex
	taskLists   []*core.TaskList
	nextListIdx atomic.Uint64
}

// NewThreadPool creates a pool from desc and starts its workers.
func NewThreadPool(desc Desc) *ThreadPool {
	workers := desc.AdditionalThreads
	if desc.UseHardwareConcurrency {
		workers += runtime.NumCPU()
	}
	if workers < 0 {
		workers = 0
	}

	name := desc.Name
	if name == "" {
		name = uuid.NewString()
	}

	logger := desc.Logger
	if logger == nil {
		logger = core.NewNoOpLogger()
	}

	signalCap := workers * 2
	if signalCap < 1 {
		signalCap = 1
	}

	p := &ThreadPool{
		name:    name,
		workers: workers,
		logger:  logger,
		stopCh:  make(chan struct{}),
		signal:  make(chan struct{}, signalCap),
	}

	if workers == 0 {
		p.logger.Debug("thread pool has no workers", core.F("pool", name))
		return p
	}

	p.logger.Debug("starting thread pool",
		core.F("pool", name), core.F("workers", workers))

	for i := 0; i < workers; i++ {
		workerID := fmt.Sprintf("%s/worker-%d", name, i)
		p.wg.Add(1)
		go p.workerLoop(workerID)
	}
	return p
}

// Name returns the pool's label.
func (p *ThreadPool) Name() string {
	return p.name
}

// Workers returns the effective worker count.
func (p *ThreadPool) Workers() int {
	return p.workers
}

// OnTaskAdded implements core.TaskScheduledListener: it wakes one parked
// worker. Called synchronously from TaskList.Schedule.
func (p *ThreadPool) OnTaskAdded() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// AddTaskList adds a list to the pool's drain set and registers the pool as
// a listener on it. Adding a list that is already present moves it to the
// end rather than duplicating it.
func (p *ThreadPool) AddTaskList(list *core.TaskList) {
	p.RemoveTaskList(list)

	p.listsMu.Lock()
	p.taskLists = append(p.taskLists, list)
	p.listsMu.Unlock()

	list.RegisterListener(p)
	p.notifyAll()
}

// RemoveTaskList removes every matching entry from the drain set. The pool
// stays registered as a listener on the removed list; the notifications
// simply stop mattering because the pool no longer polls it.
func (p *ThreadPool) RemoveTaskList(list *core.TaskList) {
	p.listsMu.Lock()
	defer p.listsMu.Unlock()
	kept := p.taskLists[:0]
	for _, existing := range p.taskLists {
		if existing != list {
			kept = append(kept, existing)
		}
	}
	for i := len(kept); i < len(p.taskLists); i++ {
		p.taskLists[i] = nil
	}
	p.taskLists = kept
}

// ClearAllTaskLists unregisters the pool from every list and empties the
// drain set.
func (p *ThreadPool) ClearAllTaskLists() {
	p.listsMu.Lock()
	lists := p.taskLists
	p.taskLists = nil
	p.listsMu.Unlock()

	for _, list := range lists {
		list.UnregisterListener(p)
	}
	p.notifyAll()
}

// Shutdown clears the drain set, cancels the workers, and joins them.
// Safe to call more than once.
func (p *ThreadPool) Shutdown() {
	p.ClearAllTaskLists()
	if p.cancelled.CompareAndSwap(false, true) {
		close(p.stopCh)
	}
	p.wg.Wait()
	p.logger.Debug("thread pool shut down", core.F("pool", p.name))
}

// Stats returns a point-in-time snapshot of the pool.
func (p *ThreadPool) Stats() core.PoolStats {
	p.listsMu.RLock()
	lists := len(p.taskLists)
	p.listsMu.RUnlock()

	return core.PoolStats{
		Name:      p.name,
		Workers:   p.workers,
		TaskLists: lists,
		Cancelled: p.cancelled.Load(),
	}
}

func (p *ThreadPool) workerLoop(workerID string) {
	defer p.wg.Done()
	p.logger.Debug("worker started", core.F("worker", workerID))

	for {
		// Inner drain: keep pulling work until a full round-robin pass
		// over the lists comes up empty.
		for p.executeOne(workerID) {
			if p.cancelled.Load() {
				p.logger.Debug("worker stopping", core.F("worker", workerID))
				return
			}
		}

		select {
		case <-p.signal:
			// Re-probe. The signal is a hint, not a task handoff: another
			// worker may have taken the work already.
		case <-p.stopCh:
			p.logger.Debug("worker stopping", core.F("worker", workerID))
			return
		}
	}
}

// executeOne makes one round-robin pass over the drain set, starting at the
// cursor, and executes at most one task.
func (p *ThreadPool) executeOne(workerID string) bool {
	p.listsMu.RLock()
	defer p.listsMu.RUnlock()

	n := len(p.taskLists)
	if n == 0 {
		return false
	}

	start := int(p.nextListIdx.Load() % uint64(n))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if p.taskLists[idx].ExecuteNextAs(workerID) {
			p.nextListIdx.Store(uint64((idx + 1) % n))
			return true
		}
	}
	return false
}

// notifyAll wakes every parked worker by filling the signal channel.
func (p *ThreadPool) notifyAll() {
	for i := 0; i < cap(p.signal); i++ {
		select {
		case p.signal <- struct{}{}:
		default:
			return
		}
	}
}
