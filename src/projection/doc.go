// Package projection folds verified events into keyed reactive state.
//
// A Registry maps event kinds to handlers. Every event a subscription accepts
// is pushed through the registry, which runs the handlers registered for its
// kind in registration order. Handlers are isolated from each other: an error
// or a panic in one is logged and does not stop the others.
//
// Synchronous handlers run on the caller's goroutine, which in relayfold is
// the engine loop. Asynchronous handlers, those that must decrypt content
// first, start on their own goroutine and hand a continuation back to the
// loop. A continuation runs later, interleaved with other dispatches, so it
// must re-read the store rather than rely on what it saw before suspending.
//
// The channel projections (NIP-28 public chat plus the session user's
// encrypted application data) are built on top of the registry in
// channels.go and app_data.go.
package projection
