package corovm

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// awaitJob is one blocking call handed to an awaitWorker, along with the
// identity it should wear for the call's duration.
type awaitJob struct {
	ident *identity
	fn    func()
}

// awaitWorker is a dedicated goroutine that runs one blocking call at a
// time. It never runs user code concurrently with itself: a worker is
// either idle in the pool's free list or running exactly one job.
type awaitWorker struct {
	jobs chan awaitJob
}

func newAwaitWorker() *awaitWorker {
	w := &awaitWorker{jobs: make(chan awaitJob)}
	go w.run()
	return w
}

func (w *awaitWorker) run() {
	for job := range w.jobs {
		registerIdentity(job.ident)
		job.fn()
		unregisterIdentity()
	}
}

func (w *awaitWorker) stop() {
	close(w.jobs)
}

// AwaitPool hands out dedicated worker goroutines for bridging blocking
// calls, bounding the number concurrently alive with a semaphore and
// retaining a small free list across check-ins so a steady trickle of
// Await calls does not pay goroutine start-up cost every time.
type AwaitPool struct {
	mu     sync.Mutex
	free   []*awaitWorker
	sem    *semaphore.Weighted
	min    int
	logger Logger
}

// NewAwaitPool constructs a pool. opts configures the retained minimum
// and the concurrent cap; see WithMinAwaitWorkers and
// WithMaxAwaitWorkers.
func NewAwaitPool(opts ...AwaitPoolOption) *AwaitPool {
	cfg := newAwaitPoolConfig(opts)
	return &AwaitPool{
		sem:    semaphore.NewWeighted(int64(cfg.maxWorkers)),
		min:    cfg.minWorkers,
		logger: cfg.logger,
	}
}

func (p *AwaitPool) checkout(ctx context.Context) *awaitWorker {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		w := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return w
	}
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.logger.Error().Err(err).Msg("await pool: acquire failed")
		return newAwaitWorker()
	}
	return newAwaitWorker()
}

func (p *AwaitPool) checkin(w *awaitWorker) {
	p.mu.Lock()
	if len(p.free) < p.min {
		p.free = append(p.free, w)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	w.stop()
	p.sem.Release(1)
}

var (
	defaultAwaitPoolOnce sync.Once
	defaultAwaitPool     *AwaitPool
)

// DefaultAwaitPool returns the process-wide lazily-constructed default
// await pool used by Await.
func DefaultAwaitPool() *AwaitPool {
	defaultAwaitPoolOnce.Do(func() {
		defaultAwaitPool = NewAwaitPool()
	})
	return defaultAwaitPool
}

// Await runs fn on a dedicated worker goroutine so it can block (on I/O,
// on a foreign blocking API, on anything that is not itself built on
// this package's parkable protocol) without blocking the scheduler that
// drives the calling coroutine. While fn runs, ThisScheduler and
// ThisThreadpool inside fn still report the calling coroutine's
// scheduler and threadpool, not the worker's, since the worker has none
// of its own.
//
// Await degrades to calling fn directly, inline, when there is no
// scheduler to protect (the caller is not a coroutine, or not running
// under one) or when it is already nested inside another Await: a
// worker goroutine bridging one blocking call has nowhere further to
// delegate a second one.
func Await[T any](fn func() T) T {
	caller := currentIdentity()
	if caller == nil || caller.coro == nil || caller.redirSched == nil || caller.awaitDepth > 0 {
		return fn()
	}

	pool := DefaultAwaitPool()
	worker := pool.checkout(context.Background())

	var result T
	pk := newParkable()
	pk.park(func() {
		ident := &identity{
			redirSched: caller.redirSched,
			redirPool:  caller.redirPool,
			awaitDepth: caller.awaitDepth + 1,
		}
		worker.jobs <- awaitJob{
			ident: ident,
			fn: func() {
				result = fn()
				pk.unpark()
			},
		}
	}, func() {})

	pool.checkin(worker)
	return result
}

// AwaitVoid is Await for callables with no result.
func AwaitVoid(fn func()) {
	Await(func() struct{} {
		fn()
		return struct{}{}
	})
}
