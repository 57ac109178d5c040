package event

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidFilter is wrapped by every error returned from Filter.Validate.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter describes a set of events, both to request them from relays and to
// re-check locally what relays actually delivered. Empty fields do not
// constrain. Tags maps a single-letter tag name to the accepted values of
// its first value, e.g. {"e": ["<channel id>"]}.
type Filter struct {
	IDs     []string
	Kinds   []Kind
	Authors []string
	Tags    map[string][]string
	Since   *Timestamp
	Until   *Timestamp
	Limit   int
}

// Validate reports malformed filters. A malformed filter is a protocol
// violation and is rejected before anything is sent to a relay.
func (f Filter) Validate() error {
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}

	if f.Since != nil && f.Until != nil && *f.Since > *f.Until {
		return fmt.Errorf("%w: since %d is after until %d", ErrInvalidFilter, *f.Since, *f.Until)
	}

	for _, k := range f.Kinds {
		if k < 0 {
			return fmt.Errorf("%w: negative kind %d", ErrInvalidFilter, k)
		}
	}

	for _, id := range f.IDs {
		if !isHex64(id) {
			return fmt.Errorf("%w: malformed id %q", ErrInvalidFilter, id)
		}
	}

	for _, a := range f.Authors {
		if !isHex64(a) {
			return fmt.Errorf("%w: malformed author %q", ErrInvalidFilter, a)
		}
	}

	for name, values := range f.Tags {
		if len(name) != 1 {
			return fmt.Errorf("%w: tag name %q is not a single letter", ErrInvalidFilter, name)
		}
		if len(values) == 0 {
			return fmt.Errorf("%w: tag #%s has no values", ErrInvalidFilter, name)
		}
	}

	return nil
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Matches reports whether e satisfies every constraint of the filter. Limit
// is a request-side hint and is not checked.
func (f Filter) Matches(e *Event) bool {
	if e == nil {
		return false
	}

	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}

	if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
		return false
	}

	if len(f.Authors) > 0 && !containsString(f.Authors, e.PubKey) {
		return false
	}

	for name, values := range f.Tags {
		if !e.Tags.ContainsAny(name, values) {
			return false
		}
	}

	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}

	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}

	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsKind(list []Kind, k Kind) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}

// WithSince returns a copy of the filter whose Since cursor is set to ts.
func (f Filter) WithSince(ts Timestamp) Filter {
	res := f.Clone()
	res.Since = &ts
	return res
}

// Clone returns a deep copy of the filter.
func (f Filter) Clone() Filter {
	res := Filter{
		Limit: f.Limit,
	}
	if f.IDs != nil {
		res.IDs = append([]string(nil), f.IDs...)
	}
	if f.Kinds != nil {
		res.Kinds = append([]Kind(nil), f.Kinds...)
	}
	if f.Authors != nil {
		res.Authors = append([]string(nil), f.Authors...)
	}
	if f.Tags != nil {
		res.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			res.Tags[k] = append([]string(nil), v...)
		}
	}
	if f.Since != nil {
		s := *f.Since
		res.Since = &s
	}
	if f.Until != nil {
		u := *f.Until
		res.Until = &u
	}
	return res
}

// Map returns the wire form of the filter, with tag constraints under
// "#<letter>" keys.
func (f Filter) Map() map[string]interface{} {
	m := make(map[string]interface{})

	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	for name, values := range f.Tags {
		m["#"+name] = values
	}
	if f.Since != nil {
		m["since"] = *f.Since
	}
	if f.Until != nil {
		m["until"] = *f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}

	return m
}

// MarshalJSON implements json.Marshaler with the wire form of Map.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}

// String is used in logs.
func (f Filter) String() string {
	m := f.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%v", k, m[k])
	}
	return s + "}"
}

// ValidateAll validates every filter of a request.
func ValidateAll(filters []Filter) error {
	for i, f := range filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}
