package projection

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/relayfold/src/event"
)

// MessageSet is a grow-only set of events, unique by id. It is written by the
// projection handlers and may be read concurrently.
type MessageSet struct {
	mu     sync.RWMutex
	events map[string]*event.Event
}

// NewMessageSet returns an empty MessageSet.
func NewMessageSet() *MessageSet {
	return &MessageSet{events: make(map[string]*event.Event)}
}

// Add inserts e unless an event with the same id is present. It reports
// whether the set grew.
func (s *MessageSet) Add(e *event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return false
	}
	s.events[e.ID] = e
	return true
}

// Get returns the event with the given id.
func (s *MessageSet) Get(id string) (*event.Event, bool) {
	if s == nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	return e, ok
}

// Len returns the number of events in the set.
func (s *MessageSet) Len() int {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}

// Sorted returns the events ordered by created_at, ties broken by id.
func (s *MessageSet) Sorted() []*event.Event {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	res := make([]*event.Event, 0, len(s.events))
	for _, e := range s.events {
		res = append(res, e)
	}
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt != res[j].CreatedAt {
			return res[i].CreatedAt < res[j].CreatedAt
		}
		return res[i].ID < res[j].ID
	})
	return res
}
