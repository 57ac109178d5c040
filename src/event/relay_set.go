package event

import "sync"

// RelaySet is the ordered, append-only set of relays an event was delivered
// by. It is written by the goroutine that owns the subscription and may be
// read concurrently by anyone holding the event.
type RelaySet struct {
	mu   sync.RWMutex
	urls []string
}

// NewRelaySet returns a RelaySet holding urls, in order, without duplicates.
func NewRelaySet(urls ...string) *RelaySet {
	s := &RelaySet{}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add appends url unless it is already present. It reports whether the set
// grew.
func (s *RelaySet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.urls {
		if u == url {
			return false
		}
	}
	s.urls = append(s.urls, url)
	return true
}

// Has reports whether url is in the set.
func (s *RelaySet) Has(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.urls {
		if u == url {
			return true
		}
	}
	return false
}

// URLs returns a copy of the relays in insertion order.
func (s *RelaySet) URLs() []string {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]string, len(s.urls))
	copy(res, s.urls)
	return res
}

// Len returns the number of relays in the set.
func (s *RelaySet) Len() int {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.urls)
}
