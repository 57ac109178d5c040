package event

import "time"

// Timestamp is a unix time in seconds, as carried by created_at, since and
// until.
type Timestamp int64

// Now returns the current Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime truncates t to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// Time converts the Timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// Max returns the later of two timestamps.
func Max(a, b Timestamp) Timestamp {
	if a > b {
		return a
	}
	return b
}
