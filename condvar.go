package corovm

import (
	"sync"
	"time"
)

// condWaiter pairs a parkable with the bookkeeping WaitTimeout needs to
// settle the race between a notify and its own deadline exactly once.
type condWaiter struct {
	pk       *parkable
	timerID  uint64
	timedOut bool
}

// CondVar is a condition variable built directly on parkable, released
// and reacquired around the wait the way every mutex/condvar pairing
// requires: the caller must hold m across the call, and holds it again
// once Wait or WaitTimeout returns.
type CondVar struct {
	mu      sync.Mutex
	waiters []*condWaiter
}

// NewCondVar constructs an empty condition variable.
func NewCondVar() *CondVar {
	return &CondVar{}
}

// Wait releases m, blocks until Signal or Broadcast wakes this waiter,
// then reacquires m before returning.
func (c *CondVar) Wait(m *Mutex) {
	w := &condWaiter{pk: newParkable()}
	w.pk.park(func() {
		c.mu.Lock()
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()
	}, func() { m.Unlock() })
	m.Lock()
}

// WaitTimeout is Wait with a deadline: it returns true if woken by
// Signal or Broadcast, false if d elapsed first. Either way m is held
// again by the time it returns.
func (c *CondVar) WaitTimeout(m *Mutex, d time.Duration) bool {
	w := &condWaiter{pk: newParkable()}

	w.pk.park(func() {
		c.mu.Lock()
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()

		w.timerID = DefaultTimerService().Timer(time.Now().Add(d), func() {
			c.mu.Lock()
			removed := c.removeWaiterLocked(w)
			c.mu.Unlock()
			if removed {
				w.timedOut = true
				w.pk.unpark()
			}
		})
	}, func() { m.Unlock() })
	m.Lock()

	if !w.timedOut {
		DefaultTimerService().Remove(w.timerID)
	}
	return !w.timedOut
}

func (c *CondVar) removeWaiterLocked(target *condWaiter) bool {
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Signal wakes the longest-waiting blocked caller, if any.
func (c *CondVar) Signal() {
	c.mu.Lock()
	if len(c.waiters) == 0 {
		c.mu.Unlock()
		return
	}
	w := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.mu.Unlock()

	if w.timerID != 0 {
		DefaultTimerService().Remove(w.timerID)
	}
	w.pk.unpark()
}

// Broadcast wakes every blocked caller.
func (c *CondVar) Broadcast() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		if w.timerID != 0 {
			DefaultTimerService().Remove(w.timerID)
		}
		w.pk.unpark()
	}
}
