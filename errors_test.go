package corovm

import (
	"errors"
	"testing"
)

func TestNewRuntimeErrorWrapsSentinel(t *testing.T) {
	err := newRuntimeError("bad state %d", 7)
	if !errors.Is(err, ErrRuntime) {
		t.Error("newRuntimeError's result should satisfy errors.Is(err, ErrRuntime)")
	}
	if got := err.Error(); got == "" {
		t.Error("error message should not be empty")
	}
}

func TestPanicfPanicsWithWrappedError(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recovered value %v is not an error", r)
		}
		if !errors.Is(err, ErrRuntime) {
			t.Error("panicked error should satisfy errors.Is(err, ErrRuntime)")
		}
	}()
	panicf("something went wrong: %s", "detail")
}

func TestResultKindString(t *testing.T) {
	cases := map[ResultKind]string{
		ResultSuccess: "success",
		ResultClosed:  "closed",
		ResultFailure: "failure",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(kind), got, want)
		}
	}
}
