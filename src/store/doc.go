// Package store implements keyed reactive state.
//
// A Store maps keys to values. Key returns a Cell, an accessor for one entry
// that supports Get, Set, Update, Merge and Subscribe. Derive builds read-only
// views that recompute whenever their source changes, and that can
// themselves be derived from.
//
// Reads are safe from any goroutine. Writes are expected to come from a single
// writer at a time (in relayfold, the projection handlers running on the
// engine loop); subscribers are notified synchronously on the writer's
// goroutine, after the store lock has been released.
package store
