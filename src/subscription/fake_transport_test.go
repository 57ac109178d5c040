package subscription

import (
	"sync"

	"github.com/mosaicnetworks/relayfold/src/event"
)

type fakeTransport struct {
	executors chan *fakeExecutor
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{executors: make(chan *fakeExecutor, 16)}
}

func (t *fakeTransport) Executor(relays []string) Executor {
	e := &fakeExecutor{relays: relays}
	t.executors <- e
	return e
}

type fakeExecutor struct {
	relays []string

	mu           sync.Mutex
	filters      []event.Filter
	cb           Callbacks
	subscribed   int
	unsubscribed int
	cleanups     int
}

func (e *fakeExecutor) Subscribe(filters []event.Filter, cb Callbacks) Unsubscriber {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.filters = filters
	e.cb = cb
	e.subscribed++

	return UnsubscribeFunc(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.unsubscribed++
	})
}

func (e *fakeExecutor) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanups++
}

// deliver sends a copy of ev, as a relay would after decoding it.
func (e *fakeExecutor) deliver(relay string, ev *event.Event) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()

	c := *ev
	c.SeenOn = nil
	cb.OnEvent(relay, &c)
}

func (e *fakeExecutor) sendEOSE(relay string) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()

	cb.OnEOSE(relay)
}

func (e *fakeExecutor) counts() (unsubscribed, cleanups int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsubscribed, e.cleanups
}

func (e *fakeExecutor) requested() []event.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters
}

type countingProjector struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *countingProjector) Push(e *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *countingProjector) pushed() []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.Event(nil), p.events...)
}
