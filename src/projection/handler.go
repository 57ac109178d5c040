package projection

import (
	"context"

	"github.com/mosaicnetworks/relayfold/src/event"
)

// Handler folds an event into projection state. Apply must be idempotent:
// the same event may be applied more than once.
type Handler interface {
	Apply(e *event.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e *event.Event) error

// Apply implements Handler.
func (f HandlerFunc) Apply(e *event.Event) error {
	return f(e)
}

// Continuation is the part of an asynchronous handler that mutates state. It
// runs on the loop that dispatched the event.
type Continuation func() error

// AsyncHandler is a handler that must suspend before it can update state.
// Start runs on its own goroutine; a nil Continuation means there is nothing
// to apply.
type AsyncHandler interface {
	Start(ctx context.Context, e *event.Event) (Continuation, error)
}

// AsyncHandlerFunc adapts a function to the AsyncHandler interface.
type AsyncHandlerFunc func(ctx context.Context, e *event.Event) (Continuation, error)

// Start implements AsyncHandler.
func (f AsyncHandlerFunc) Start(ctx context.Context, e *event.Event) (Continuation, error) {
	return f(ctx, e)
}

// Scheduler runs functions on the single writer goroutine. actor.Loop
// implements it.
type Scheduler interface {
	Submit(fn func()) bool
}

// Decrypter decrypts content addressed to the session user. A nil Decrypter
// means the capability is unavailable.
type Decrypter interface {
	DecryptAsUser(ctx context.Context, ciphertext string, authorPubKey string) (string, error)
}
