package corovm

import (
	"runtime"
	"sync"
)

type parkStrategy int32

const (
	stratInScheduler parkStrategy = iota
	stratOutsideScheduler
	stratBareThread
)

type parkState int32

const (
	parkFresh parkState = iota
	parkWaiting
	parkDone
)

// parkable is a stack-allocated handle created by a would-be blocker
// (channel send/recv, mutex lock, condition-variable wait). It picks one
// of three waiting-context strategies at park time depending on whether
// the caller is a coroutine running inside a scheduler, a coroutine
// running outside one, or a plain goroutine with no coroutine identity at
// all. park may be called at most once; unpark on a parkable that was
// never parked is a programmer error.
type parkable struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    parkState
	strategy parkStrategy
	coro     *Coroutine
	schedRef *schedulerRef
}

func newParkable() *parkable {
	pk := &parkable{}
	pk.cond = sync.NewCond(&pk.mu)
	return pk
}

// park hands this parkable to a peer (via deliver, run while the peer's
// own lock is still held) and releases the peer's lock (via cleanup),
// then suspends the caller until unpark is invoked on this same
// parkable. deliver and cleanup both run synchronously on the caller's
// own goroutine before it actually blocks.
func (pk *parkable) park(deliver func(), cleanup func()) {
	pk.mu.Lock()
	if pk.state != parkFresh {
		pk.mu.Unlock()
		panicf("parkable: park called more than once")
	}
	strategy, coro, sched := pickStrategy()
	pk.strategy = strategy
	pk.coro = coro
	if sched != nil {
		pk.schedRef = newSchedulerRef(sched)
	}
	pk.state = parkWaiting
	pk.mu.Unlock()

	deliver()
	cleanup()

	switch strategy {
	case stratInScheduler:
		// Yielding the owning coroutine IS the wait: control does not
		// return here until the scheduler's run loop resumes it again,
		// which only happens after unpark reschedules it.
		coro.yieldParked()
	case stratOutsideScheduler:
		for {
			pk.mu.Lock()
			done := pk.state != parkWaiting
			pk.mu.Unlock()
			if done {
				return
			}
			runtime.Gosched()
		}
	case stratBareThread:
		pk.mu.Lock()
		for pk.state == parkWaiting {
			pk.cond.Wait()
		}
		pk.mu.Unlock()
	}
}

// unpark schedules the suspended context for resumption. Calling unpark
// on a parkable that was never parked, or was already unparked, panics.
func (pk *parkable) unpark() {
	pk.mu.Lock()
	if pk.state != parkWaiting {
		pk.mu.Unlock()
		panicf("parkable: cannot unpark a non-parked parkable")
	}
	pk.state = parkDone
	strategy, coro, ref := pk.strategy, pk.coro, pk.schedRef
	pk.mu.Unlock()

	switch strategy {
	case stratInScheduler:
		if s := ref.resolve(); s != nil {
			s.reschedule(coro)
		}
	case stratBareThread:
		pk.cond.Signal()
	case stratOutsideScheduler:
		// the poll loop in park observes the state change on its own
	}
}

func pickStrategy() (parkStrategy, *Coroutine, *Scheduler) {
	id := currentIdentity()
	if id == nil {
		return stratBareThread, nil, nil
	}
	if id.trueSched == nil {
		return stratOutsideScheduler, id.coro, nil
	}
	return stratInScheduler, id.coro, id.trueSched
}

// schedulerRef is a GC-language stand-in for the source's weak
// reference: Go has no portable pre-1.24 weak pointer that this module's
// go.mod floor can rely on, so liveness is instead observed through the
// scheduler's own halted state, which is equally terminal and gives the
// same "gone scheduler makes unpark a no-op" behavior the source relies
// on a dangling weak_ptr for.
type schedulerRef struct {
	sched *Scheduler
}

func newSchedulerRef(s *Scheduler) *schedulerRef {
	return &schedulerRef{sched: s}
}

func (r *schedulerRef) resolve() *Scheduler {
	if r == nil || r.sched == nil || r.sched.State() == lifecycleHalted {
		return nil
	}
	return r.sched
}
