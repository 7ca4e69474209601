package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-core/core"
)

// ListSnapshotProvider provides current task list stats snapshots.
type ListSnapshotProvider interface {
	Stats() core.ListStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports list/pool Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	listsMu sync.RWMutex
	lists   map[string]ListSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	listPending   *prom.GaugeVec
	listListeners *prom.GaugeVec
	listScheduled *prom.GaugeVec
	listExecuted  *prom.GaugeVec

	poolWorkers   *prom.GaugeVec
	poolTaskLists *prom.GaugeVec
	poolRunning   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	listPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "list_pending",
		Help:      "Number of pending tasks per list.",
	}, []string{"list"})
	listListeners := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "list_listeners",
		Help:      "Number of registered listeners per list.",
	}, []string{"list"})
	listScheduled := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "list_scheduled_total",
		Help:      "List scheduled task count snapshot.",
	}, []string{"list"})
	listExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "list_executed_total",
		Help:      "List executed task count snapshot.",
	}, []string{"list"})

	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "pool_workers",
		Help:      "Worker count per pool.",
	}, []string{"pool"})
	poolTaskLists := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "pool_task_lists",
		Help:      "Task lists currently drained per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asynccore",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=cancelled).",
	}, []string{"pool"})

	var err error
	if listPending, err = registerCollector(reg, listPending); err != nil {
		return nil, err
	}
	if listListeners, err = registerCollector(reg, listListeners); err != nil {
		return nil, err
	}
	if listScheduled, err = registerCollector(reg, listScheduled); err != nil {
		return nil, err
	}
	if listExecuted, err = registerCollector(reg, listExecuted); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolTaskLists, err = registerCollector(reg, poolTaskLists); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:      interval,
		lists:         make(map[string]ListSnapshotProvider),
		pools:         make(map[string]PoolSnapshotProvider),
		listPending:   listPending,
		listListeners: listListeners,
		listScheduled: listScheduled,
		listExecuted:  listExecuted,
		poolWorkers:   poolWorkers,
		poolTaskLists: poolTaskLists,
		poolRunning:   poolRunning,
	}, nil
}

// AddList adds or replaces a task list snapshot provider by name.
func (p *SnapshotPoller) AddList(name string, provider ListSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "list")
	p.listsMu.Lock()
	p.lists[name] = provider
	p.listsMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.listsMu.RLock()
	for name, provider := range p.lists {
		stats := provider.Stats()
		p.listPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.listListeners.WithLabelValues(name).Set(float64(stats.Listeners))
		p.listScheduled.WithLabelValues(name).Set(float64(stats.Scheduled))
		p.listExecuted.WithLabelValues(name).Set(float64(stats.Executed))
	}
	p.listsMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolTaskLists.WithLabelValues(name).Set(float64(stats.TaskLists))
		if stats.Cancelled {
			p.poolRunning.WithLabelValues(name).Set(0)
		} else {
			p.poolRunning.WithLabelValues(name).Set(1)
		}
	}
	p.poolsMu.RUnlock()
}
