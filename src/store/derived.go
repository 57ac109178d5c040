package store

import "sync"

// Derived is a read-only view computed from another Readable. It recomputes
// eagerly whenever its source changes and implements Readable itself, so
// views compose.
type Derived[T any] struct {
	mu      sync.RWMutex
	value   T
	ok      bool
	subs    listeners[T]
	release func()
}

// Derive creates a view of src transformed by fn. fn receives the source
// value and whether it is defined, and returns the derived value and whether
// that is defined.
func Derive[S, T any](src Readable[S], fn func(S, bool) (T, bool)) *Derived[T] {
	d := &Derived[T]{}

	// Subscribe before the first computation so that no write is missed.
	// Notifications may arrive out of order, so every computation reads the
	// source under d.mu instead of trusting the notified value.
	d.release = src.Subscribe(func(S, bool) {
		d.mu.Lock()
		next, nextOK := fn(src.Get())
		d.value, d.ok = next, nextOK
		subs := d.subs.snapshot()
		d.mu.Unlock()

		for _, sub := range subs {
			sub(next, nextOK)
		}
	})

	d.mu.Lock()
	d.value, d.ok = fn(src.Get())
	d.mu.Unlock()

	return d
}

// Get implements Readable.
func (d *Derived[T]) Get() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.ok
}

// Subscribe implements Readable.
func (d *Derived[T]) Subscribe(fn func(T, bool)) func() {
	d.mu.Lock()
	id := d.subs.add(fn)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.subs.remove(id)
		})
	}
}

// Close detaches the view from its source. The last computed value remains
// readable.
func (d *Derived[T]) Close() {
	d.release()
}
