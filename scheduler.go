package corovm

import (
	"sync"
	"sync/atomic"
)

var _ lifecycleImpl = (*Scheduler)(nil)

// Scheduler owns a run-queue of coroutines and drives them, one at a
// time, on whichever goroutine calls Run. It is the root of every
// blocking operation in this package: channels, mutexes, condition
// variables and the await bridge all eventually suspend a coroutine by
// handing it to a parkable that reschedules onto the coroutine's source
// Scheduler.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	state         lifecycleState
	running       bool
	runq          []*Coroutine
	scheduledCount int
	nextID        atomic.Uint64

	idle *parkable // set only while driving a child scheduler with an empty queue

	root   *Threadpool
	logger Logger
}

// NewScheduler constructs a ready-to-run, unscheduled Scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	cfg := newSchedulerConfig(opts)
	s := &Scheduler{state: lifecycleReady, logger: cfg.logger}
	s.cond = sync.NewCond(&s.mu)
	if tp, ok := cfg.root.(*Threadpool); ok {
		s.root = tp
	}
	return s
}

func (s *Scheduler) nextCoroutineID() uint64 {
	return s.nextID.Add(1)
}

// Schedule enqueues work under a single acquisition of the scheduler
// lock, preserving argument order. Accepts *Coroutine, []*Coroutine, or
// plain func() task bodies (wrapped into a new coroutine each).
func (s *Scheduler) Schedule(tasks ...any) {
	coros := make([]*Coroutine, 0, len(tasks))
	for _, t := range tasks {
		switch v := t.(type) {
		case *Coroutine:
			coros = append(coros, v)
		case []*Coroutine:
			coros = append(coros, v...)
		case func():
			coros = append(coros, newCoroutine(s.nextCoroutineID(), v, s, s.root))
		default:
			panicf("scheduler: unsupported schedule argument type %T", t)
		}
	}
	s.enqueue(coros)
}

func (s *Scheduler) enqueue(coros []*Coroutine) {
	if len(coros) == 0 {
		return
	}
	s.mu.Lock()
	s.runq = append(s.runq, coros...)
	s.scheduledCount += len(coros)
	idle := s.idle
	s.cond.Broadcast()
	s.mu.Unlock()
	if idle != nil {
		idle.unpark()
	}
}

// reschedule returns a previously parked coroutine to the run-queue
// without incrementing the scheduled count: it was already counted
// while parked.
func (s *Scheduler) reschedule(c *Coroutine) {
	s.mu.Lock()
	s.runq = append(s.runq, c)
	idle := s.idle
	s.cond.Broadcast()
	s.mu.Unlock()
	if idle != nil {
		idle.unpark()
	}
}

// Run drives the scheduler on the calling goroutine. It returns true if
// it exited because Suspend was called, false if it exited because Halt
// was called (or a second concurrent Run call found one already active).
// A Run call made while the scheduler is suspended blocks until Resume
// or Halt.
// If Run is invoked from within a coroutine belonging to another
// scheduler, this scheduler enters child mode: instead of blocking the
// goroutine on an empty queue, it parks the enclosing coroutine, letting
// its own scheduler run other work in the meantime.
func (s *Scheduler) Run() bool {
	parent := currentIdentity()
	isChild := parent != nil

	s.mu.Lock()
	if s.running || s.state == lifecycleHalted {
		s.mu.Unlock()
		return false
	}
	s.running = true
	for s.state == lifecycleSuspended {
		s.cond.Wait()
	}
	if s.state == lifecycleReady {
		s.state = lifecycleRunning
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if s.state == lifecycleSuspended {
			s.mu.Unlock()
			return true
		}
		if s.state == lifecycleHalted {
			s.mu.Unlock()
			return false
		}
		if len(s.runq) == 0 {
			if isChild {
				pk := newParkable()
				pk.park(func() { s.idle = pk }, func() { s.mu.Unlock() })
				s.mu.Lock()
				s.idle = nil
				s.mu.Unlock()
				continue
			}
			s.cond.Wait()
			s.mu.Unlock()
			continue
		}
		coro := s.runq[0]
		s.runq = s.runq[1:]
		s.mu.Unlock()

		alive, panicVal := resumeRecovered(coro)

		s.mu.Lock()
		switch {
		case panicVal != nil:
			s.scheduledCount--
		case s.state == lifecycleHalted:
			// Either this resume itself called Halt (draining every
			// other pending coroutine out from under us, but not this
			// one, already removed above) or a concurrent Halt raced
			// in from elsewhere; either way coro is retired, not
			// requeued.
			s.scheduledCount--
		case !alive:
			s.scheduledCount--
		case coro.parkedFlag:
			coro.parkedFlag = false
		default:
			s.runq = append(s.runq, coro)
		}
		s.cond.Broadcast()
		s.mu.Unlock()

		if panicVal != nil {
			s.logger.Error().
				Uint64("coroutine_id", coro.id).
				Interface("panic", panicVal).
				Msg("coroutine panic recovered")
			panic(panicVal)
		}

		if isChild {
			parent.coro.Yield()
		}
	}
}

// resumeRecovered drives coro one step, recovering any panic raised by
// its body so the run loop can retire the coroutine's bookkeeping and
// log the event before rethrowing, the same way scheduler::run() in the
// source restores thread-locals before rethrowing.
func resumeRecovered(coro *Coroutine) (alive bool, panicVal any) {
	defer func() {
		panicVal = recover()
	}()
	alive = coro.Resume()
	return
}

// Suspend transitions running → suspended and wakes any goroutine
// blocked inside Run waiting for new work, so it can observe the
// transition and return true. Returns false if already halted.
func (s *Scheduler) Suspend() bool {
	if s.root != nil {
		return s.root.Suspend()
	}
	return s.doSuspend()
}

func (s *Scheduler) doSuspend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == lifecycleHalted {
		return false
	}
	s.state = lifecycleSuspended
	s.cond.Broadcast()
	s.logger.Info().Msg("scheduler suspended")
	return true
}

// Resume transitions suspended → ready and wakes any goroutine blocked
// in Run awaiting resumption.
func (s *Scheduler) Resume() {
	if s.root != nil {
		s.root.Resume()
		return
	}
	s.doResume()
}

func (s *Scheduler) doResume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != lifecycleSuspended {
		return
	}
	s.state = lifecycleReady
	s.cond.Broadcast()
	s.logger.Info().Msg("scheduler resumed")
}

// Halt transitions to the terminal halted state, wakes any idle waiter,
// and drains the run-queue, destroying all pending coroutines. If called
// from a coroutine running on this scheduler, it yields once so control
// can return to Run; otherwise it blocks until Run has fully exited.
func (s *Scheduler) Halt() {
	if s.root != nil {
		s.root.Halt()
		return
	}
	s.doHalt()
}

func (s *Scheduler) doHalt() {
	id := currentIdentity()
	calledFromWithin := id != nil && id.trueSched == s

	s.mu.Lock()
	already := s.state == lifecycleHalted
	s.state = lifecycleHalted
	drained := s.runq
	s.runq = nil
	s.scheduledCount -= len(drained)
	idle := s.idle
	s.cond.Broadcast()
	s.mu.Unlock()

	if idle != nil {
		idle.unpark()
	}
	if already {
		return
	}
	s.logger.Info().Int("destroyed", len(drained)).Msg("scheduler halted")

	if calledFromWithin {
		id.coro.Yield()
		return
	}

	s.mu.Lock()
	for s.running {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// State reports the scheduler's current lifecycle state.
func (s *Scheduler) State() lifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Measure returns an opaque weight encoding (enqueued-count,
// scheduled-count), suitable for ordered comparison against another
// Scheduler's weight via measurement.Less.
func (s *Scheduler) Measure() measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return packMeasurement(len(s.runq), s.scheduledCount)
}

// Enqueued returns the current run-queue length.
func (s *Scheduler) Enqueued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runq)
}

// Scheduled returns the count of all live coroutines owned by this
// scheduler, running, runnable, or parked.
func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduledCount
}

// Blocked returns Scheduled minus Enqueued: coroutines parked somewhere
// other than this scheduler's own run-queue.
func (s *Scheduler) Blocked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduledCount - len(s.runq)
}
