package corovm

// yieldSignal is what a coroutine's goroutine sends back to whatever is
// driving it (a Scheduler's run loop, or a direct caller of Resume) each
// time it yields or finishes.
type yieldSignal struct {
	alive    bool
	panicVal any
}

// Coroutine is a stackful, cooperatively-scheduled unit of execution. It
// is implemented as a dedicated goroutine synchronized with its driver
// through a two-channel handshake, in the manner of a generator built on
// a resume/yield protocol: the driver's Resume call and the coroutine's
// own Yield call alternate strictly, so at most one of the two is ever
// actually running user code.
type Coroutine struct {
	id       uint64
	fn       func()
	resumeCh chan struct{}
	yieldCh  chan yieldSignal

	started    bool
	complete   bool
	parkedFlag bool

	sched      *Scheduler
	pool       *Threadpool
	redirSched *Scheduler
	redirPool  *Threadpool
	awaitDepth int
}

func newCoroutine(id uint64, fn func(), sched *Scheduler, pool *Threadpool) *Coroutine {
	return &Coroutine{
		id:         id,
		fn:         fn,
		resumeCh:   make(chan struct{}),
		yieldCh:    make(chan yieldSignal),
		sched:      sched,
		pool:       pool,
		redirSched: sched,
		redirPool:  pool,
	}
}

// Resume drives the coroutine until it next yields or completes. It
// returns true if the coroutine is still runnable or parked, false if it
// has completed. A panic raised inside the coroutine's body propagates
// out of Resume once the coroutine has been marked complete, so a caller
// that recovers and continues driving other coroutines leaves this one
// correctly retired.
func (c *Coroutine) Resume() bool {
	if c.complete {
		return false
	}
	if !c.started {
		c.started = true
		go c.launch()
	} else {
		c.resumeCh <- struct{}{}
	}
	sig := <-c.yieldCh
	if !sig.alive {
		c.complete = true
	}
	if sig.panicVal != nil {
		panic(sig.panicVal)
	}
	return sig.alive
}

// Complete reports whether the coroutine has finished running.
func (c *Coroutine) Complete() bool { return c.complete }

func (c *Coroutine) launch() {
	registerIdentity(&identity{
		trueSched:  c.sched,
		redirSched: c.redirSched,
		truePool:   c.pool,
		redirPool:  c.redirPool,
		coro:       c,
		awaitDepth: c.awaitDepth,
	})
	defer unregisterIdentity()
	defer func() {
		if r := recover(); r != nil {
			c.yieldCh <- yieldSignal{alive: false, panicVal: r}
			return
		}
		c.yieldCh <- yieldSignal{alive: false}
	}()
	c.fn()
}

// Yield suspends the calling coroutine until its driver next calls
// Resume. Valid only on a coroutine's own goroutine, while it is running.
func (c *Coroutine) Yield() {
	c.yieldCh <- yieldSignal{alive: true}
	<-c.resumeCh
}

// yieldParked is Yield with a side channel telling the driver not to
// re-queue this coroutine for its own fairness rotation: the coroutine
// has already handed itself to a peer's wait queue via a parkable and
// will be rescheduled from there.
func (c *Coroutine) yieldParked() {
	c.parkedFlag = true
	c.Yield()
}

// Yield suspends the currently running coroutine. It panics if called
// from a goroutine that is not a coroutine body.
func Yield() {
	id := currentIdentity()
	if id == nil || id.coro == nil {
		panicf("yield called outside a coroutine")
	}
	id.coro.Yield()
}
