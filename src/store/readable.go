package store

// Readable is a value that can be read and observed.
type Readable[T any] interface {
	// Get returns the current value and whether it is defined.
	Get() (T, bool)
	// Subscribe registers fn to be called after every change. The returned
	// function cancels the registration.
	Subscribe(fn func(T, bool)) (cancel func())
}

// listeners is a registry of change callbacks. It is not safe for concurrent
// use; owners guard it with their own lock.
type listeners[T any] struct {
	next int
	fns  map[int]func(T, bool)
}

func (l *listeners[T]) add(fn func(T, bool)) int {
	if l.fns == nil {
		l.fns = make(map[int]func(T, bool))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return id
}

func (l *listeners[T]) remove(id int) {
	delete(l.fns, id)
}

// snapshot returns the callbacks in registration order.
func (l *listeners[T]) snapshot() []func(T, bool) {
	res := make([]func(T, bool), 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			res = append(res, fn)
		}
	}
	return res
}
