package corovm

import "sync"

// unbufferedWaiter is a parked peer on one side of a rendezvous: a
// sender carries a value to hand off, a receiver carries a slot to
// fill. closed is set by Close when it wakes a waiter that was never
// matched, so the waiter's blocking call can report failure instead of
// success.
type unbufferedWaiter[T any] struct {
	pk     *parkable
	value  T
	filled bool
	closed bool
}

// Unbuffered is a rendezvous channel: a Send only completes once a
// matching Recv has taken its value directly, with no intermediate
// buffer. At most one of its two wait queues is ever non-empty, since a
// newly arriving peer on one side either completes a queued peer on the
// other side immediately or joins its own side's queue.
type Unbuffered[T any] struct {
	mu        sync.Mutex
	closed    bool
	senders   []*unbufferedWaiter[T]
	receivers []*unbufferedWaiter[T]
}

// NewUnbuffered constructs an open rendezvous channel.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{}
}

// Send blocks until a receiver takes value, or the channel is closed,
// in which case it returns false: a closed channel is an expected
// outcome here, not a programmer error, so Send reports it the same
// way Recv reports a closed-and-empty channel.
func (u *Unbuffered[T]) Send(value T) bool {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return false
	}
	if len(u.receivers) > 0 {
		w := u.receivers[0]
		u.receivers = u.receivers[1:]
		u.mu.Unlock()
		w.value = value
		w.filled = true
		w.pk.unpark()
		return true
	}
	w := &unbufferedWaiter[T]{pk: newParkable(), value: value}
	w.pk.park(func() { u.senders = append(u.senders, w) }, func() { u.mu.Unlock() })
	return !w.closed
}

// Recv blocks until a sender hands off a value, or the channel is
// closed with no sender waiting, in which case it returns the zero value
// and ok false.
func (u *Unbuffered[T]) Recv() (value T, ok bool) {
	u.mu.Lock()
	if len(u.senders) > 0 {
		w := u.senders[0]
		u.senders = u.senders[1:]
		u.mu.Unlock()
		v := w.value
		w.pk.unpark()
		return v, true
	}
	if u.closed {
		u.mu.Unlock()
		return value, false
	}
	w := &unbufferedWaiter[T]{pk: newParkable()}
	w.pk.park(func() { u.receivers = append(u.receivers, w) }, func() { u.mu.Unlock() })
	return w.value, w.filled
}

// TrySend attempts a non-blocking hand-off to an already-waiting
// receiver. It never parks. If invoked from a coroutine it yields
// exactly once before returning, regardless of outcome, preserving run
// queue fairness for callers that poll in a tight loop.
func (u *Unbuffered[T]) TrySend(value T) ResultKind {
	defer maybeFairnessYield()

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ResultClosed
	}
	if len(u.receivers) == 0 {
		u.mu.Unlock()
		return ResultFailure
	}
	w := u.receivers[0]
	u.receivers = u.receivers[1:]
	u.mu.Unlock()

	w.value = value
	w.filled = true
	w.pk.unpark()
	return ResultSuccess
}

// TryRecv attempts a non-blocking take from an already-waiting sender.
// See TrySend for the fairness yield guarantee.
func (u *Unbuffered[T]) TryRecv() (value T, kind ResultKind) {
	defer maybeFairnessYield()

	u.mu.Lock()
	if len(u.senders) > 0 {
		w := u.senders[0]
		u.senders = u.senders[1:]
		u.mu.Unlock()
		v := w.value
		w.pk.unpark()
		return v, ResultSuccess
	}
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return value, ResultClosed
	}
	return value, ResultFailure
}

// Close idempotently closes the channel and wakes every parked peer on
// both sides: parked receivers resume inside Recv with ok false, parked
// senders resume inside Send with false.
func (u *Unbuffered[T]) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	receivers := u.receivers
	u.receivers = nil
	senders := u.senders
	u.senders = nil
	u.mu.Unlock()

	for _, w := range receivers {
		w.pk.unpark()
	}
	for _, w := range senders {
		w.closed = true
		w.pk.unpark()
	}
}

// Closed reports whether Close has been called. The result is a
// snapshot: it may be stale the instant it is returned.
func (u *Unbuffered[T]) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

// maybeFairnessYield yields the calling coroutine, if any, once. It is
// used after every completed or failed non-blocking operation so a
// coroutine spinning on TrySend/TryRecv cannot starve its scheduler's
// other runnable work.
func maybeFairnessYield() {
	if id := currentIdentity(); id != nil && id.coro != nil {
		id.coro.Yield()
	}
}
