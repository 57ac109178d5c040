package store

// Cell is the accessor for a single key of a Store. It implements Readable.
type Cell[K comparable, V any] struct {
	store *Store[K, V]
	key   K
}

// Key returns the key this cell accesses.
func (c *Cell[K, V]) Key() K {
	return c.key
}

// Get returns the current value, and false if the key is undefined.
func (c *Cell[K, V]) Get() (V, bool) {
	return c.store.get(c.key)
}

// Set replaces the value.
func (c *Cell[K, V]) Set(v V) {
	c.store.write(c.key, func(V, bool) V { return v })
}

// Update stores the result of applying fn to the current value. ok is false
// when the key is undefined.
func (c *Cell[K, V]) Update(fn func(current V, ok bool) V) V {
	return c.store.write(c.key, fn)
}

// Merge shallow-merges patch into the current value, creating it if absent.
func (c *Cell[K, V]) Merge(patch V) V {
	merge := c.store.merge
	return c.store.write(c.key, func(current V, ok bool) V {
		if merge == nil {
			return patch
		}
		return merge(current, ok, patch)
	})
}

// Subscribe implements Readable.
func (c *Cell[K, V]) Subscribe(fn func(V, bool)) func() {
	return c.store.subscribeKey(c.key, fn)
}
