package corovm

import (
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

var _ lifecycleImpl = (*Threadpool)(nil)

// Threadpool owns a fixed set of workers, each a Scheduler running on
// its own goroutine, and picks the least-loaded worker for new work. The
// worker slice is immutable after construction.
type Threadpool struct {
	mu      sync.Mutex
	workers []*Scheduler
	probe   int
	logger  Logger
	group   *errgroup.Group
}

// NewThreadpool constructs a pool of size workers, each driving its own
// Scheduler until halted. size <= 0 means hardware concurrency, minimum
// 1. Workers are started immediately.
func NewThreadpool(size int, opts ...ThreadpoolOption) *Threadpool {
	cfg := newThreadpoolConfig(opts)
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if size < 1 {
		size = 1
	}

	tp := &Threadpool{logger: cfg.logger}
	var g errgroup.Group
	tp.group = &g

	tp.workers = make([]*Scheduler, size)
	for i := range tp.workers {
		i := i
		w := NewScheduler(WithLogger(cfg.logger), withLifecycleRoot(tp))
		tp.workers[i] = w
		cfg.logger.Info().Int("worker", i).Msg("threadpool worker spawned")
		g.Go(func() error {
			for w.Run() {
			}
			cfg.logger.Info().Int("worker", i).Msg("threadpool worker stopped")
			return nil
		})
	}
	return tp
}

// Worker returns the least-loaded worker, probed from a rotating start
// index advanced under the pool's spinlock purely to spread probe cost
// across workers, not to round-robin. A worker with zero scheduled
// coroutines is returned immediately on sight.
func (tp *Threadpool) Worker() *Scheduler {
	tp.mu.Lock()
	start := tp.probe
	tp.probe = (tp.probe + 1) % len(tp.workers)
	tp.mu.Unlock()

	best := tp.workers[start]
	bestWeight := best.Measure()
	if bestWeight.scheduled() == 0 {
		return best
	}
	for i := 1; i < len(tp.workers); i++ {
		w := tp.workers[(start+i)%len(tp.workers)]
		weight := w.Measure()
		if weight.scheduled() == 0 {
			return w
		}
		if weight.Less(bestWeight) {
			best, bestWeight = w, weight
		}
	}
	return best
}

// WorkerAt returns the worker at a stable index.
func (tp *Threadpool) WorkerAt(i int) *Scheduler {
	return tp.workers[i]
}

// Size returns the number of workers.
func (tp *Threadpool) Size() int {
	return len(tp.workers)
}

// Suspend broadcasts Suspend to every worker and reports success only if
// all of them suspended successfully.
func (tp *Threadpool) Suspend() bool {
	ok := true
	for _, w := range tp.workers {
		if !w.doSuspend() {
			ok = false
		}
	}
	return ok
}

// Resume broadcasts Resume to every worker.
func (tp *Threadpool) Resume() {
	for _, w := range tp.workers {
		w.doResume()
	}
}

// Halt broadcasts Halt to every worker concurrently and waits for every
// worker's driving goroutine to fully exit its run loop. Called from a
// coroutine running on one of the workers, it halts the other workers
// first and then halts that worker the way Scheduler.Halt does from
// within: it yields, so its caller does not return.
func (tp *Threadpool) Halt() {
	id := currentIdentity()
	var self *Scheduler
	var g errgroup.Group
	for _, w := range tp.workers {
		w := w
		if id != nil && id.trueSched == w {
			self = w
			continue
		}
		g.Go(func() error {
			w.doHalt()
			return nil
		})
	}
	_ = g.Wait()
	if self != nil {
		self.doHalt()
		return
	}
	_ = tp.group.Wait()
	tp.logger.Info().Int("workers", len(tp.workers)).Msg("threadpool halted and joined")
}

// State aggregates worker states: if every worker agrees, that state is
// reported; a pool with workers in different states is reported running,
// since it is neither uniformly idle nor uniformly stopped.
func (tp *Threadpool) State() lifecycleState {
	if len(tp.workers) == 0 {
		return lifecycleHalted
	}
	first := tp.workers[0].State()
	for _, w := range tp.workers[1:] {
		if w.State() != first {
			return lifecycleRunning
		}
	}
	return first
}

func (tp *Threadpool) loadRatio() float64 {
	var most, least int
	for i, w := range tp.workers {
		n := w.Measure().scheduled()
		if i == 0 {
			most, least = n, n
			continue
		}
		if n > most {
			most = n
		}
		if n < least {
			least = n
		}
	}
	if least == 0 {
		if most == 0 {
			return 1
		}
		return math.MaxFloat64
	}
	return float64(most) / float64(least)
}

var (
	defaultPoolOnce   sync.Once
	defaultPool       *Threadpool
	defaultPoolSizeMu sync.Mutex
	defaultPoolSize   int
)

// SetDefaultThreadpoolSize configures the size of the process-wide
// default threadpool. It has no effect once the default pool has already
// been created by a prior call to DefaultThreadpool, Concurrent,
// Parallel, or Balance.
func SetDefaultThreadpoolSize(n int) {
	defaultPoolSizeMu.Lock()
	defer defaultPoolSizeMu.Unlock()
	defaultPoolSize = n
}

// DefaultThreadpool returns the process-wide lazily-constructed default
// threadpool.
func DefaultThreadpool() *Threadpool {
	defaultPoolOnce.Do(func() {
		defaultPoolSizeMu.Lock()
		n := defaultPoolSize
		defaultPoolSizeMu.Unlock()
		defaultPool = NewThreadpool(n)
	})
	return defaultPool
}

// Concurrent schedules work on the current coroutine's scheduler if any,
// else the default threadpool's least-loaded worker. Prefers low-latency
// communication with the caller over CPU spread.
func Concurrent(tasks ...any) {
	if s := ThisScheduler(); s != nil {
		s.Schedule(tasks...)
		return
	}
	DefaultThreadpool().Worker().Schedule(tasks...)
}

// Parallel schedules on the current threadpool's least-loaded worker if
// the caller is inside one, else the default threadpool's least-loaded
// worker. Prefers CPU spread over latency.
func Parallel(tasks ...any) {
	if tp := ThisThreadpool(); tp != nil {
		tp.Worker().Schedule(tasks...)
		return
	}
	DefaultThreadpool().Worker().Schedule(tasks...)
}

// Balance schedules on the current threadpool's least-loaded worker if
// the ratio of its most-loaded to least-loaded worker is above the
// configured balance ratio (see SetBalanceRatio); otherwise it behaves
// exactly like Concurrent.
func Balance(tasks ...any) {
	tp := ThisThreadpool()
	if tp == nil {
		Concurrent(tasks...)
		return
	}
	if tp.loadRatio() > loadBalanceRatio() {
		tp.Worker().Schedule(tasks...)
		return
	}
	Concurrent(tasks...)
}
