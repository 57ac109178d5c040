package subscription

import "github.com/mosaicnetworks/relayfold/src/event"

// Callbacks receive what relays send for one request. They may be called
// from any goroutine.
type Callbacks struct {
	OnEvent func(relay string, e *event.Event)
	OnEOSE  func(relay string)
}

// Unsubscriber cancels a request.
type Unsubscriber interface {
	Unsubscribe()
}

// UnsubscribeFunc adapts a function to the Unsubscriber interface.
type UnsubscribeFunc func()

// Unsubscribe implements Unsubscriber.
func (f UnsubscribeFunc) Unsubscribe() {
	f()
}

// Executor issues requests to a fixed set of relays.
type Executor interface {
	Subscribe(filters []event.Filter, cb Callbacks) Unsubscriber
	// Cleanup releases what the executor holds for its relays. Connections
	// shared with other executors are reference counted by the transport.
	Cleanup()
}

// Transport hands out executors. relay.Pool is the websocket
// implementation.
type Transport interface {
	Executor(relays []string) Executor
}

// Scheduler runs functions on the goroutine that owns subscription state.
type Scheduler interface {
	Submit(fn func()) bool
}

// Projector receives accepted events. projection.Registry implements it.
type Projector interface {
	Push(e *event.Event)
}
