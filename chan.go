package corovm

import "sync"

// erasedChan is the common surface Chan needs from whichever concrete
// channel kind it wraps, so Chan itself never has to switch on kind for
// anything but the typed downcasts.
type erasedChan[T any] interface {
	Send(T) bool
	Recv() (T, bool)
	TrySend(T) ResultKind
	TryRecv() (T, ResultKind)
	Close()
	Closed() bool
}

// Chan erases the distinction between Unbuffered and Buffered behind one
// value, the way a caller that only cares about the channel protocol and
// not its buffering strategy would want. NewChan wraps an unbuffered
// rendezvous; a zero-value Chan wraps no channel and is not usable.
// AsUnbuffered and AsBuffered recover the concrete type when a caller
// needs kind-specific operations like Size or Capacity.
type Chan[T any] struct {
	mu   sync.Mutex
	impl erasedChan[T]
	iter *chanIterator[T]
}

// NewChan wraps an unbuffered rendezvous channel.
func NewChan[T any]() *Chan[T] {
	return &Chan[T]{impl: NewUnbuffered[T]()}
}

// NewChanBuffered wraps a bounded, buffered channel of the given
// capacity.
func NewChanBuffered[T any](capacity int) *Chan[T] {
	return &Chan[T]{impl: NewBuffered[T](capacity)}
}

func (c *Chan[T]) Send(value T) bool          { return c.impl.Send(value) }
func (c *Chan[T]) Recv() (T, bool)            { return c.impl.Recv() }
func (c *Chan[T]) TrySend(value T) ResultKind { return c.impl.TrySend(value) }
func (c *Chan[T]) TryRecv() (T, ResultKind)   { return c.impl.TryRecv() }
func (c *Chan[T]) Close()                     { c.impl.Close() }
func (c *Chan[T]) Closed() bool               { return c.impl.Closed() }

// AsUnbuffered returns the underlying *Unbuffered[T] and true, or nil and
// false if this Chan wraps a Buffered channel instead.
func (c *Chan[T]) AsUnbuffered() (*Unbuffered[T], bool) {
	u, ok := c.impl.(*Unbuffered[T])
	return u, ok
}

// AsBuffered returns the underlying *Buffered[T] and true, or nil and
// false if this Chan wraps an Unbuffered channel instead.
func (c *Chan[T]) AsBuffered() (*Buffered[T], bool) {
	b, ok := c.impl.(*Buffered[T])
	return b, ok
}

// chanIterator is the single pull-style cursor a Chan lends out through
// Iterator. Calling Iterator a second time on a Chan that already has a
// live iterator is a programmer error: a channel's values can be drained
// exactly once, by exactly one consumer, in order.
type chanIterator[T any] struct {
	c *Chan[T]
}

// Iterator returns a single-pass, pull-style cursor over the values
// this channel will yield before it closes. Constructing a second
// iterator over the same Chan while the first is still live panics.
func (c *Chan[T]) Iterator() *chanIterator[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iter != nil {
		panicf("chan: iterator already constructed for this channel")
	}
	c.iter = &chanIterator[T]{c: c}
	return c.iter
}

// Next blocks for the next value. ok is false once the channel has
// closed and drained, exactly mirroring Recv.
func (it *chanIterator[T]) Next() (value T, ok bool) {
	return it.c.impl.Recv()
}

// Range drives a single-pass iterator over the channel's values, calling
// fn with each until the channel closes and drains or fn returns false.
// It constructs its own iterator and releases it on return, so it cannot
// be combined with a separately constructed Iterator on the same Chan.
func (c *Chan[T]) Range(fn func(T) bool) {
	it := c.Iterator()
	defer func() {
		c.mu.Lock()
		c.iter = nil
		c.mu.Unlock()
	}()
	for {
		v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(v) {
			return
		}
	}
}
