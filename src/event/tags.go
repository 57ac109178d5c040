package event

// Tag is a single tag: a name followed by its values, e.g.
// ["e", "<event id>", "<relay hint>", "root"].
type Tag []string

// Key returns the tag name.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the first value of the tag.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is the ordered tag list of an Event.
type Tags []Tag

// Find returns the first tag named key, or nil.
func (tags Tags) Find(key string) Tag {
	for _, t := range tags {
		if t.Key() == key && len(t) > 1 {
			return t
		}
	}
	return nil
}

// FindMarked returns the first tag named key whose marker (fourth element)
// equals marker, or nil.
func (tags Tags) FindMarked(key, marker string) Tag {
	for _, t := range tags {
		if t.Key() == key && len(t) > 3 && t[3] == marker {
			return t
		}
	}
	return nil
}

// Values returns the first value of every tag named key.
func (tags Tags) Values(key string) []string {
	var res []string
	for _, t := range tags {
		if t.Key() == key && len(t) > 1 {
			res = append(res, t[1])
		}
	}
	return res
}

// ContainsAny reports whether some tag named key has a first value in values.
func (tags Tags) ContainsAny(key string, values []string) bool {
	for _, t := range tags {
		if t.Key() != key || len(t) < 2 {
			continue
		}
		for _, v := range values {
			if t[1] == v {
				return true
			}
		}
	}
	return false
}
