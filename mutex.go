package corovm

import "sync"

// Mutex is a parkable-based lock: a blocked Lock call parks the caller
// the same way a channel send or receive would, so it costs nothing more
// than any other wait this package offers, coroutine or bare goroutine
// alike. Ownership transfers directly from Unlock to the next waiter
// rather than being released and re-contended.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*parkable
}

// NewMutex constructs an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	pk := newParkable()
	pk.park(func() { m.waiters = append(m.waiters, pk) }, func() { m.mu.Unlock() })
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex, handing it directly to the longest-waiting
// blocked caller if there is one. Unlocking an unlocked mutex panics.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if !m.locked {
		m.mu.Unlock()
		panicf("mutex: unlock of unlocked mutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.mu.Unlock()
	next.unpark()
}
