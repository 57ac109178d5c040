package store

import (
	"sort"
	"sync"
)

// MergeFunc shallow-merges patch into the current value. ok is false when the
// key has no value yet.
type MergeFunc[V any] func(current V, ok bool, patch V) V

// Option configures a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithMerge sets the function used by Cell.Merge. Without it, Merge
// replaces the value.
func WithMerge[K comparable, V any](fn MergeFunc[V]) Option[K, V] {
	return func(s *Store[K, V]) {
		s.merge = fn
	}
}

// Store is a keyed collection of reactive values.
type Store[K comparable, V any] struct {
	mu       sync.RWMutex
	values   map[K]V
	keyed    map[K]*listeners[V]
	all      listeners[map[K]V]
	merge    MergeFunc[V]
	versions uint64
}

// New creates an empty Store.
func New[K comparable, V any](opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		values: make(map[K]V),
		keyed:  make(map[K]*listeners[V]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the accessor for key k. The entry itself is created lazily on
// the first write.
func (s *Store[K, V]) Key(k K) *Cell[K, V] {
	return &Cell[K, V]{store: s, key: k}
}

// Len returns the number of defined keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Version is incremented on every write; readers can use it to detect
// changes cheaply.
func (s *Store[K, V]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions
}

// Snapshot returns a copy of the whole store.
func (s *Store[K, V]) Snapshot() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store[K, V]) snapshotLocked() map[K]V {
	res := make(map[K]V, len(s.values))
	for k, v := range s.values {
		res[k] = v
	}
	return res
}

// Keys returns the defined keys, sorted when less is given.
func (s *Store[K, V]) Keys(less func(a, b K) bool) []K {
	s.mu.RLock()
	res := make([]K, 0, len(s.values))
	for k := range s.values {
		res = append(res, k)
	}
	s.mu.RUnlock()

	if less != nil {
		sort.Slice(res, func(i, j int) bool { return less(res[i], res[j]) })
	}
	return res
}

// All returns a Readable view over the whole store.
func (s *Store[K, V]) All() Readable[map[K]V] {
	return storeView[K, V]{s}
}

// write applies fn to the entry for k under the lock, then notifies
// subscribers of k and of the whole store.
func (s *Store[K, V]) write(k K, fn func(current V, ok bool) V) V {
	s.mu.Lock()
	current, ok := s.values[k]
	next := fn(current, ok)
	s.values[k] = next
	s.versions++

	var keyed []func(V, bool)
	if l, ok := s.keyed[k]; ok {
		keyed = l.snapshot()
	}
	all := s.all.snapshot()
	var snapshot map[K]V
	if len(all) > 0 {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	for _, fn := range keyed {
		fn(next, true)
	}
	for _, fn := range all {
		fn(snapshot, true)
	}

	return next
}

func (s *Store[K, V]) get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[k]
	return v, ok
}

func (s *Store[K, V]) subscribeKey(k K, fn func(V, bool)) func() {
	s.mu.Lock()
	l, ok := s.keyed[k]
	if !ok {
		l = &listeners[V]{}
		s.keyed[k] = l
	}
	id := l.add(fn)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			l.remove(id)
			if len(l.fns) == 0 {
				delete(s.keyed, k)
			}
		})
	}
}

type storeView[K comparable, V any] struct {
	s *Store[K, V]
}

func (v storeView[K, V]) Get() (map[K]V, bool) {
	return v.s.Snapshot(), true
}

func (v storeView[K, V]) Subscribe(fn func(map[K]V, bool)) func() {
	v.s.mu.Lock()
	id := v.s.all.add(fn)
	v.s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.s.mu.Lock()
			defer v.s.mu.Unlock()
			v.s.all.remove(id)
		})
	}
}
