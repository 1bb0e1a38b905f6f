package corovm

import (
	"testing"
	"time"
)

func TestAwaitRunsInlineOutsideScheduler(t *testing.T) {
	ran := false
	got := Await(func() int {
		ran = true
		return 9
	})
	if !ran || got != 9 {
		t.Errorf("ran=%v got=%v, want ran=true got=9", ran, got)
	}
}

func TestAwaitBridgesBlockingCallWithoutBlockingScheduler(t *testing.T) {
	s := NewScheduler()
	var order []string
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}

	lock := func() { <-mu }
	unlock := func() { mu <- struct{}{} }

	record := func(v string) {
		lock()
		order = append(order, v)
		unlock()
	}

	release := make(chan struct{})
	s.Schedule(func() {
		record("a-start")
		Await(func() int {
			<-release
			return 0
		})
		record("a-end")
	})
	s.Schedule(func() {
		record("b")
	})

	go s.Run()

	deadline := time.Now().Add(time.Second)
	for {
		lock()
		n := len(order)
		unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second coroutine never ran while the first was awaiting")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	deadline = time.Now().Add(time.Second)
	for {
		lock()
		n := len(order)
		unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("awaiting coroutine never resumed after its blocking call returned")
		}
		time.Sleep(time.Millisecond)
	}
	s.Halt()

	lock()
	defer unlock()
	if order[0] != "a-start" || order[1] != "b" || order[2] != "a-end" {
		t.Errorf("order = %v, want [a-start b a-end]", order)
	}
}

func TestAwaitPreservesSchedulerIdentityInsideCall(t *testing.T) {
	s := NewScheduler()
	var sawScheduler *Scheduler
	done := make(chan struct{})
	s.Schedule(func() {
		Await(func() int {
			sawScheduler = ThisScheduler()
			return 0
		})
		close(done)
	})

	go s.Run()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("awaited call never completed")
	}
	s.Halt()

	if sawScheduler != s {
		t.Errorf("ThisScheduler() inside Await call = %v, want %v", sawScheduler, s)
	}
}

func TestNestedAwaitRunsInline(t *testing.T) {
	s := NewScheduler()
	var innerRan bool
	done := make(chan struct{})
	s.Schedule(func() {
		Await(func() int {
			if !IsAwait() {
				t.Error("IsAwait() false while inside an Await call")
			}
			Await(func() int {
				innerRan = true
				return 0
			})
			return 0
		})
		close(done)
	})

	go s.Run()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("outer awaited call never completed")
	}
	s.Halt()

	if !innerRan {
		t.Error("nested Await never ran its function")
	}
}
