package corovm

import (
	"container/heap"
	"sync"
	"time"
)

type timerEntry struct {
	deadline time.Time
	seq      uint64
	id       uint64
	cb       func()
	removed  bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// TimerService drives deadline-ordered callbacks on one dedicated
// goroutine backed by a binary heap. It is the one external collaborator
// the condition variable's timed wait relies on: condvar.go computes a
// deadline and leaves the waiting and firing to this service.
type TimerService struct {
	mu      sync.Mutex
	heap    timerHeap
	byID    map[uint64]*timerEntry
	nextID  uint64
	nextSeq uint64
	wake    chan struct{}
}

// NewTimerService starts a timer service's driver goroutine and returns
// a handle to it.
func NewTimerService() *TimerService {
	t := &TimerService{byID: make(map[uint64]*timerEntry), wake: make(chan struct{}, 1)}
	go t.run()
	return t
}

// Timer schedules cb to run at deadline and returns an id usable with
// Remove.
func (t *TimerService) Timer(deadline time.Time, cb func()) uint64 {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.nextSeq++
	e := &timerEntry{deadline: deadline, seq: t.nextSeq, id: id, cb: cb}
	t.byID[id] = e
	heap.Push(&t.heap, e)
	t.mu.Unlock()
	t.signal()
	return id
}

// Remove cancels a pending timer synchronously with respect to the
// caller: once it returns, cb for this id will not run, unless the
// driver had already started running it concurrently.
func (t *TimerService) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byID[id]; ok {
		e.removed = true
		delete(t.byID, id)
	}
}

// Clear cancels every pending timer.
func (t *TimerService) Clear() {
	t.mu.Lock()
	t.heap = nil
	t.byID = make(map[uint64]*timerEntry)
	t.mu.Unlock()
	t.signal()
}

func (t *TimerService) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *TimerService) run() {
	clock := time.NewTimer(time.Hour)
	defer clock.Stop()
	for {
		t.mu.Lock()
		for len(t.heap) > 0 && t.heap[0].removed {
			heap.Pop(&t.heap)
		}
		var wait time.Duration
		var due *timerEntry
		if len(t.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(t.heap[0].deadline)
			if wait <= 0 {
				due = heap.Pop(&t.heap).(*timerEntry)
				delete(t.byID, due.id)
			}
		}
		t.mu.Unlock()

		if due != nil {
			if !due.removed {
				due.cb()
			}
			continue
		}

		clock.Reset(wait)
		select {
		case <-clock.C:
		case <-t.wake:
			clock.Stop()
		}
	}
}

var (
	defaultTimerServiceOnce sync.Once
	defaultTimerService     *TimerService
)

// DefaultTimerService returns the process-wide lazily-started timer
// service used by condition variable timed waits.
func DefaultTimerService() *TimerService {
	defaultTimerServiceOnce.Do(func() {
		defaultTimerService = NewTimerService()
	})
	return defaultTimerService
}
