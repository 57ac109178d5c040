package projection

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/relayfold/src/actor"
	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
	"go.uber.org/goleak"
)

func newTestRegistry(t *testing.T) (*Registry, *actor.Loop) {
	loop := actor.NewLoop(common.NewTestEntry(t, "loop"))
	loop.RunAsync()
	t.Cleanup(loop.Shutdown)

	return NewRegistry(context.Background(), loop, common.NewTestEntry(t, "projection")), loop
}

// push dispatches e on the loop and waits for it, continuations included.
func push(r *Registry, loop *actor.Loop, e *event.Event) {
	loop.Submit(func() { r.Push(e) })
	loop.Flush()
	r.Wait()
}

func TestRegistryOrderAndIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, loop := newTestRegistry(t)

	var calls []string
	r.AddHandler(1, HandlerFunc(func(e *event.Event) error {
		calls = append(calls, "first")
		return nil
	}))
	r.AddHandler(1, HandlerFunc(func(e *event.Event) error {
		panic("broken handler")
	}))
	r.AddHandler(1, HandlerFunc(func(e *event.Event) error {
		calls = append(calls, "third")
		return errors.New("failed")
	}))
	r.AddHandler(1, HandlerFunc(func(e *event.Event) error {
		calls = append(calls, "fourth")
		return nil
	}))

	push(r, loop, &event.Event{ID: "a", Kind: 1})
	push(r, loop, &event.Event{ID: "b", Kind: 2})
	push(r, loop, &event.Event{ID: "c", Kind: 1})

	expected := []string{"first", "third", "fourth", "first", "third", "fourth"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("calls should be %v, not %v", expected, calls)
	}

	loop.Shutdown()
}

func TestRegistryArbitraryKinds(t *testing.T) {
	r := NewRegistry(context.Background(), nil, common.NewTestEntry(t, "projection"))

	var seen []event.Kind
	for _, k := range []event.Kind{31990, 0, 65535} {
		r.AddHandler(k, HandlerFunc(func(e *event.Event) error {
			seen = append(seen, e.Kind)
			return nil
		}))
	}

	r.Push(&event.Event{Kind: 65535})
	r.Push(&event.Event{Kind: 0})
	r.Push(&event.Event{Kind: 7})

	if !reflect.DeepEqual(seen, []event.Kind{65535, 0}) {
		t.Fatalf("unexpected dispatch %v", seen)
	}
	if !reflect.DeepEqual(r.Kinds(), []event.Kind{0, 31990, 65535}) {
		t.Fatalf("unexpected kinds %v", r.Kinds())
	}
}

func TestAsyncHandlerDoesNotBlockDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, loop := newTestRegistry(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var applied []string

	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		close(started)
		<-release
		return func() error {
			applied = append(applied, "async "+e.ID)
			return nil
		}, nil
	}))
	r.AddHandler(6, HandlerFunc(func(e *event.Event) error {
		applied = append(applied, "sync "+e.ID)
		return nil
	}))

	loop.Submit(func() { r.Push(&event.Event{ID: "slow", Kind: 5}) })
	<-started

	loop.Submit(func() { r.Push(&event.Event{ID: "fast", Kind: 6}) })
	loop.Flush()

	if !reflect.DeepEqual(applied, []string{"sync fast"}) {
		t.Fatalf("sync handler should run while the async one is suspended, got %v", applied)
	}

	close(release)
	r.Wait()

	if !reflect.DeepEqual(applied, []string{"sync fast", "async slow"}) {
		t.Fatalf("continuation should run after release, got %v", applied)
	}

	loop.Shutdown()
}

func TestAsyncHandlerFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, loop := newTestRegistry(t)

	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		return nil, errors.New("start failed")
	}))
	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		panic("start panicked")
	}))
	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		return func() error { panic("continuation panicked") }, nil
	}))

	ran := false
	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		return func() error {
			ran = true
			return nil
		}, nil
	}))

	push(r, loop, &event.Event{ID: "x", Kind: 5})

	if !ran {
		t.Fatalf("healthy async handler should have applied")
	}

	loop.Shutdown()
}

func TestContinuationDroppedAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, loop := newTestRegistry(t)

	release := make(chan struct{})
	ran := false
	r.AddAsyncHandler(5, AsyncHandlerFunc(func(ctx context.Context, e *event.Event) (Continuation, error) {
		<-release
		return func() error {
			ran = true
			return nil
		}, nil
	}))

	loop.Submit(func() { r.Push(&event.Event{ID: "x", Kind: 5}) })
	loop.Flush()
	loop.Shutdown()

	close(release)
	r.Wait()

	if ran {
		t.Fatalf("continuation should not run once the loop is shut down")
	}
}
