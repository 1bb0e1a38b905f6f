package corovm

import "sync"

// bufferedWaiter is a parked peer waiting for room (a sender) or data (a
// receiver) in a Buffered channel's ring. closed is set by Close when
// it wakes a waiter that was never matched, so the waiter's blocking
// call can report failure instead of success.
type bufferedWaiter[T any] struct {
	pk     *parkable
	value  T
	filled bool
	closed bool
}

// Buffered is a fixed-capacity FIFO channel. A Send that finds the ring
// full parks until a Recv frees a slot; a Recv that finds the ring empty
// parks until a Send fills one. Every successful operation wakes at
// most one complementary peer, since only one slot changes hands at a
// time.
type Buffered[T any] struct {
	mu       sync.Mutex
	closed   bool
	ring     []T
	head     int
	count    int
	senders  []*bufferedWaiter[T]
	receivers []*bufferedWaiter[T]
}

// NewBuffered constructs an open channel with room for capacity values
// in flight. A capacity of 0 or less is coerced to 1: a buffered channel
// with no buffer is nonsensical, and the unbuffered rendezvous type
// already covers that case.
func NewBuffered[T any](capacity int) *Buffered[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffered[T]{ring: make([]T, capacity)}
}

func (b *Buffered[T]) index(i int) int {
	return (b.head + i) % len(b.ring)
}

func (b *Buffered[T]) pushLocked(value T) {
	b.ring[b.index(b.count)] = value
	b.count++
}

func (b *Buffered[T]) popLocked() T {
	v := b.ring[b.head]
	var zero T
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	return v
}

// Send blocks until the value is placed in the ring, or the channel is
// closed, in which case it returns false: a closed channel is an
// expected outcome here, not a programmer error.
func (b *Buffered[T]) Send(value T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	if len(b.receivers) > 0 {
		w := b.receivers[0]
		b.receivers = b.receivers[1:]
		b.mu.Unlock()
		w.value = value
		w.filled = true
		w.pk.unpark()
		return true
	}
	if b.count < len(b.ring) {
		b.pushLocked(value)
		b.mu.Unlock()
		return true
	}
	w := &bufferedWaiter[T]{pk: newParkable(), value: value}
	w.pk.park(func() { b.senders = append(b.senders, w) }, func() { b.mu.Unlock() })
	return !w.closed
}

// Recv blocks until a value is available, or the channel is closed and
// drained, in which case it returns the zero value and ok false.
func (b *Buffered[T]) Recv() (value T, ok bool) {
	b.mu.Lock()
	if b.count > 0 {
		v := b.popLocked()
		var woken *bufferedWaiter[T]
		if len(b.senders) > 0 {
			w := b.senders[0]
			b.senders = b.senders[1:]
			b.pushLocked(w.value)
			woken = w
		}
		b.mu.Unlock()
		if woken != nil {
			woken.pk.unpark()
		}
		return v, true
	}
	if b.closed {
		b.mu.Unlock()
		return value, false
	}
	w := &bufferedWaiter[T]{pk: newParkable()}
	w.pk.park(func() { b.receivers = append(b.receivers, w) }, func() { b.mu.Unlock() })
	return w.value, w.filled
}

// TrySend attempts a non-blocking enqueue. It never parks, and yields
// the calling coroutine exactly once before returning regardless of
// outcome, matching TryRecv and the unbuffered channel's Try operations.
func (b *Buffered[T]) TrySend(value T) ResultKind {
	defer maybeFairnessYield()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ResultClosed
	}
	if len(b.receivers) > 0 {
		w := b.receivers[0]
		b.receivers = b.receivers[1:]
		b.mu.Unlock()
		w.value = value
		w.filled = true
		w.pk.unpark()
		return ResultSuccess
	}
	if b.count >= len(b.ring) {
		b.mu.Unlock()
		return ResultFailure
	}
	b.pushLocked(value)
	b.mu.Unlock()
	return ResultSuccess
}

// TryRecv attempts a non-blocking dequeue. See TrySend for the fairness
// yield guarantee.
func (b *Buffered[T]) TryRecv() (value T, kind ResultKind) {
	defer maybeFairnessYield()

	b.mu.Lock()
	if b.count > 0 {
		v := b.popLocked()
		var woken *bufferedWaiter[T]
		if len(b.senders) > 0 {
			w := b.senders[0]
			b.senders = b.senders[1:]
			b.pushLocked(w.value)
			woken = w
		}
		b.mu.Unlock()
		if woken != nil {
			woken.pk.unpark()
		}
		return v, ResultSuccess
	}
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return value, ResultClosed
	}
	return value, ResultFailure
}

// Close idempotently closes the channel. Parked receivers on an already
// empty ring wake with ok false. Parked senders — waiting on a full
// ring — wake with false too, since a closed channel refuses new
// values regardless of how much room the ring has.
func (b *Buffered[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var receivers []*bufferedWaiter[T]
	if b.count == 0 {
		receivers = b.receivers
		b.receivers = nil
	}
	senders := b.senders
	b.senders = nil
	b.mu.Unlock()

	for _, w := range receivers {
		w.pk.unpark()
	}
	for _, w := range senders {
		w.closed = true
		w.pk.unpark()
	}
}

// Closed reports whether Close has been called. The result is a
// snapshot and may be stale the instant it is returned.
func (b *Buffered[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Size returns the number of values currently buffered.
func (b *Buffered[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity returns the fixed ring capacity this channel was built with.
func (b *Buffered[T]) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Empty reports whether the ring currently holds no values.
func (b *Buffered[T]) Empty() bool {
	return b.Size() == 0
}

// Full reports whether the ring is at capacity.
func (b *Buffered[T]) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count == len(b.ring)
}

// Reserve returns the number of additional values that can be sent
// before the ring is full.
func (b *Buffered[T]) Reserve() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring) - b.count
}
