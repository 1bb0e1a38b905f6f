package corovm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnbufferedRendezvous(t *testing.T) {
	ch := NewUnbuffered[int]()
	received := make(chan int, 1)

	go func() {
		v, ok := ch.Recv()
		require.True(t, ok)
		received <- v
	}()

	time.Sleep(10 * time.Millisecond) // let the receiver park first
	ch.Send(42)

	select {
	case v := <-received:
		if v != 42 {
			t.Errorf("received %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("receive never completed")
	}
}

func TestUnbufferedSendParksUntilReceiver(t *testing.T) {
	ch := NewUnbuffered[string]()
	sent := make(chan struct{})
	go func() {
		ch.Send("hello")
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("Send returned before any Recv happened")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := ch.Recv()
	require.True(t, ok)
	require.Equal(t, "hello", v)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Send never returned after matching Recv")
	}
}

func TestUnbufferedCloseWakesParkedReceivers(t *testing.T) {
	ch := NewUnbuffered[int]()
	result := make(chan bool, 1)
	go func() {
		_, ok := ch.Recv()
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("Recv on a closed, drained channel reported ok true")
		}
	case <-time.After(time.Second):
		t.Fatal("Recv never woke after Close")
	}
}

func TestUnbufferedSendOnClosedReturnsFalse(t *testing.T) {
	ch := NewUnbuffered[int]()
	ch.Close()
	if ch.Send(1) {
		t.Error("Send on a closed channel returned true, want false")
	}
}

func TestUnbufferedCloseWakesParkedSenders(t *testing.T) {
	ch := NewUnbuffered[int]()
	result := make(chan bool, 1)
	go func() {
		result <- ch.Send(1)
	}()

	time.Sleep(10 * time.Millisecond) // let the sender park first, with no receiver present
	ch.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("Send parked with no receiver, woken by Close, reported true")
		}
	case <-time.After(time.Second):
		t.Fatal("Send never woke after Close")
	}
}

func TestUnbufferedTryOperationsDoNotBlock(t *testing.T) {
	ch := NewUnbuffered[int]()
	if kind := ch.TrySend(1); kind != ResultFailure {
		t.Errorf("TrySend with no receiver = %v, want ResultFailure", kind)
	}
	if _, kind := ch.TryRecv(); kind != ResultFailure {
		t.Errorf("TryRecv with no sender = %v, want ResultFailure", kind)
	}

	ch.Close()
	if kind := ch.TrySend(1); kind != ResultClosed {
		t.Errorf("TrySend on closed = %v, want ResultClosed", kind)
	}
	if _, kind := ch.TryRecv(); kind != ResultClosed {
		t.Errorf("TryRecv on closed, empty = %v, want ResultClosed", kind)
	}
}

func TestUnbufferedClosedIsIdempotent(t *testing.T) {
	ch := NewUnbuffered[int]()
	ch.Close()
	ch.Close()
	if !ch.Closed() {
		t.Error("Closed() false after Close")
	}
}

func TestUnbufferedTryYieldsWithinCoroutine(t *testing.T) {
	ch := NewUnbuffered[int]()
	s := NewScheduler()
	done := make(chan struct{})
	s.Schedule(func() {
		ch.TryRecv()
		close(done) // only reached if TryRecv's mandatory yield returned control here
	})

	go s.Run()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coroutine never resumed after TryRecv's yield")
	}
	s.Halt()
}
