package engine

import (
	"sync"

	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/subscription"
)

// fakeTransport hands every executor to the test through a channel.
type fakeTransport struct {
	executors chan *fakeExecutor
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{executors: make(chan *fakeExecutor, 64)}
}

func (t *fakeTransport) Executor(relays []string) subscription.Executor {
	e := &fakeExecutor{relays: relays}
	t.executors <- e
	return e
}

type fakeExecutor struct {
	relays []string

	mu       sync.Mutex
	filters  []event.Filter
	cb       subscription.Callbacks
	cleanups int
}

func (e *fakeExecutor) Subscribe(filters []event.Filter, cb subscription.Callbacks) subscription.Unsubscriber {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters = filters
	e.cb = cb
	return subscription.UnsubscribeFunc(func() {})
}

func (e *fakeExecutor) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanups++
}

func (e *fakeExecutor) deliver(relay string, events ...*event.Event) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()

	for _, ev := range events {
		c := *ev
		c.SeenOn = nil
		cb.OnEvent(relay, &c)
	}
}

func (e *fakeExecutor) eose() {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()

	for _, r := range e.relays {
		cb.OnEOSE(r)
	}
}

func (e *fakeExecutor) requested() []event.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters
}
