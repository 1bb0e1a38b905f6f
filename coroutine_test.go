package corovm

import "testing"

func TestCoroutineResumeUntilComplete(t *testing.T) {
	var steps []string
	c := newCoroutine(1, func() {
		steps = append(steps, "one")
		Yield()
		steps = append(steps, "two")
	}, nil, nil)

	if alive := c.Resume(); !alive {
		t.Fatal("Resume before the coroutine's first Yield should report alive")
	}
	if len(steps) != 1 || steps[0] != "one" {
		t.Fatalf("steps = %v, want [one]", steps)
	}
	if alive := c.Resume(); alive {
		t.Error("Resume after the coroutine returns should report not alive")
	}
	if len(steps) != 2 || steps[1] != "two" {
		t.Fatalf("steps = %v, want [one two]", steps)
	}
	if !c.Complete() {
		t.Error("Complete() should be true once the body has returned")
	}
}

func TestCoroutinePanicPropagatesOutOfResume(t *testing.T) {
	c := newCoroutine(1, func() {
		panic("boom")
	}, nil, nil)

	defer func() {
		r := recover()
		if r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
		if !c.Complete() {
			t.Error("a panicking coroutine should still be marked complete")
		}
	}()
	c.Resume()
}

func TestCoroutineResumeAfterCompleteIsFalse(t *testing.T) {
	c := newCoroutine(1, func() {}, nil, nil)
	c.Resume()
	if c.Resume() {
		t.Error("Resume on an already-complete coroutine should return false")
	}
}

func TestYieldOutsideCoroutinePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Yield called outside any coroutine did not panic")
		}
	}()
	Yield()
}
