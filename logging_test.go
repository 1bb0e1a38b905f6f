package corovm

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestLogger builds a Logger backed by a buffer at debug level, since
// the package default discards everything and these tests assert on
// info-level lifecycle events.
func newTestLogger(buf *bytes.Buffer) Logger {
	l := zerolog.New(buf).Level(zerolog.DebugLevel)
	return zerologAdapter{&l}
}

func TestSchedulerLogsSuspendResumeHalt(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(WithLogger(newTestLogger(&buf)))

	if !s.Suspend() {
		t.Fatal("Suspend on a fresh scheduler should succeed")
	}
	s.Resume()
	s.Halt()

	out := buf.String()
	for _, want := range []string{"scheduler suspended", "scheduler resumed", "scheduler halted"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got:\n%s", want, out)
		}
	}
}

func TestThreadpoolLogsWorkerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	tp := NewThreadpool(2, WithThreadpoolLogger(newTestLogger(&buf)))
	tp.Halt()

	out := buf.String()
	for _, want := range []string{"threadpool worker spawned", "threadpool worker stopped", "threadpool halted and joined"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got:\n%s", want, out)
		}
	}
}

func TestSchedulerRunLogsAndRepanicsOnCoroutinePanic(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(WithLogger(newTestLogger(&buf)))
	s.Schedule(func() { panic("boom") })

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		s.Run()
	}()

	select {
	case r := <-done:
		if r == nil {
			t.Fatal("Run should have propagated the coroutine's panic")
		}
		if r != "boom" {
			t.Errorf("recovered panic = %v, want \"boom\"", r)
		}
	case <-time.After(time.Second):
		t.Fatal("Run never returned after the scheduled coroutine panicked")
	}

	if !strings.Contains(buf.String(), "coroutine panic recovered") {
		t.Errorf("log output missing panic-recovery event, got:\n%s", buf.String())
	}
	if got := s.Scheduled(); got != 0 {
		t.Errorf("Scheduled() after a panicking coroutine retired = %d, want 0", got)
	}
}
