package relays

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/relayfold/src/common"
)

// RelayList is a set of relays keyed by normalized URL.
type RelayList struct {
	sync.RWMutex
	Sorted []*Relay
	ByURL  map[string]*Relay
}

// NewRelayList creates an empty RelayList.
func NewRelayList() *RelayList {
	return &RelayList{
		ByURL: make(map[string]*Relay),
	}
}

// NewRelayListFromSlice builds a RelayList from source, skipping entries
// whose URL cannot be normalized. Duplicate URLs are merged: the result reads
// or writes if any duplicate does.
func NewRelayListFromSlice(source []*Relay) *RelayList {
	list := NewRelayList()

	for _, r := range source {
		list.addRaw(r)
	}

	list.internalSort()

	return list
}

// addRaw adds a relay without sorting and without locking.
func (l *RelayList) addRaw(r *Relay) bool {
	if r == nil {
		return false
	}

	url, err := common.NormalizeURL(r.URL)
	if err != nil {
		return false
	}

	if existing, ok := l.ByURL[url]; ok {
		existing.Read = existing.Read || r.Read
		existing.Write = existing.Write || r.Write
		return false
	}

	l.ByURL[url] = &Relay{URL: url, Read: r.Read, Write: r.Write}
	return true
}

// Add inserts or merges a relay. It reports whether the list grew.
func (l *RelayList) Add(r *Relay) bool {
	l.Lock()
	defer l.Unlock()

	added := l.addRaw(r)
	l.internalSort()
	return added
}

// Merge adds every relay of other.
func (l *RelayList) Merge(other *RelayList) {
	if other == nil {
		return
	}

	other.RLock()
	source := append([]*Relay(nil), other.Sorted...)
	other.RUnlock()

	l.Lock()
	defer l.Unlock()

	for _, r := range source {
		l.addRaw(r)
	}
	l.internalSort()
}

// Remove deletes the relay with the given URL.
func (l *RelayList) Remove(url string) {
	norm, err := common.NormalizeURL(url)
	if err != nil {
		return
	}

	l.Lock()
	defer l.Unlock()

	if _, ok := l.ByURL[norm]; !ok {
		return
	}
	delete(l.ByURL, norm)
	l.internalSort()
}

func (l *RelayList) internalSort() {
	res := make([]*Relay, 0, len(l.ByURL))
	for _, r := range l.ByURL {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].URL < res[j].URL })
	l.Sorted = res
}

// Len returns the number of relays.
func (l *RelayList) Len() int {
	l.RLock()
	defer l.RUnlock()
	return len(l.Sorted)
}

// Relays returns a copy of the sorted relays.
func (l *RelayList) Relays() []*Relay {
	l.RLock()
	defer l.RUnlock()

	res := make([]*Relay, len(l.Sorted))
	for i, r := range l.Sorted {
		c := *r
		res[i] = &c
	}
	return res
}

// ReadURLs returns the URLs of the relays subscriptions should query.
func (l *RelayList) ReadURLs() []string {
	l.RLock()
	defer l.RUnlock()

	res := []string{}
	for _, r := range l.Sorted {
		if r.Read {
			res = append(res, r.URL)
		}
	}
	return res
}

// WriteURLs returns the URLs of the relays that accept the user's events.
func (l *RelayList) WriteURLs() []string {
	l.RLock()
	defer l.RUnlock()

	res := []string{}
	for _, r := range l.Sorted {
		if r.Write {
			res = append(res, r.URL)
		}
	}
	return res
}
