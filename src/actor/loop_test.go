package actor

import (
	"sync"
	"testing"

	"github.com/mosaicnetworks/relayfold/src/common"
	"go.uber.org/goleak"
)

func TestLoopOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(common.NewTestEntry(t, "loop"))
	l.RunAsync()
	defer l.Shutdown()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Submit(func() { got = append(got, i) })
	}
	l.Flush()

	if len(got) != 100 {
		t.Fatalf("expected 100 tasks to run, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoopConcurrentSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(common.NewTestEntry(t, "loop"))
	l.RunAsync()

	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				l.Submit(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	l.Shutdown()

	if counter != 2000 {
		t.Fatalf("counter should be 2000, not %d", counter)
	}
}

func TestLoopNestedSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(common.NewTestEntry(t, "loop"))
	l.RunAsync()
	defer l.Shutdown()

	var order []string
	l.Submit(func() {
		order = append(order, "outer")
		l.Submit(func() { order = append(order, "inner") })
	})
	l.Submit(func() { order = append(order, "second") })
	l.Flush()
	l.Flush()

	if len(order) != 3 || order[0] != "outer" || order[1] != "second" || order[2] != "inner" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestLoopPanicIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(common.NewTestEntry(t, "loop"))
	l.RunAsync()
	defer l.Shutdown()

	ran := false
	l.Submit(func() { panic("boom") })
	l.Submit(func() { ran = true })
	l.Flush()

	if !ran {
		t.Fatalf("a panicking task should not stop the loop")
	}
}

func TestLoopShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(common.NewTestEntry(t, "loop"))
	l.RunAsync()

	l.Shutdown()
	l.Shutdown()

	if l.Submit(func() {}) {
		t.Fatalf("Submit should fail after Shutdown")
	}
	l.Flush()

	select {
	case <-l.Done():
	default:
		t.Fatalf("Done should be closed after Shutdown")
	}
}
