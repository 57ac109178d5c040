package subscription

import (
	"time"

	"github.com/mosaicnetworks/relayfold/src/event"
)

// Options configure a Subscription. The zero value has no timeout and
// projects every accepted event.
type Options struct {
	// Timeout closes the subscription once elapsed. With a timeout, the
	// subscription also closes as soon as every relay has sent EOSE. Without
	// one, it stays open until Close is called.
	Timeout time.Duration

	// SkipProjection keeps accepted events away from the projections. They
	// are still emitted to listeners.
	SkipProjection bool
}

// Topic selects the notifications a Listener receives.
type Topic int

const (
	// TopicEvent is notified for every accepted event.
	TopicEvent Topic = iota
	// TopicEOSE is notified when a relay sends end of stored events.
	TopicEOSE
	// TopicClose is notified once, when the subscription closes.
	TopicClose
)

func (t Topic) String() string {
	switch t {
	case TopicEvent:
		return "event"
	case TopicEOSE:
		return "eose"
	case TopicClose:
		return "close"
	default:
		return "unknown"
	}
}

// Notification is what a Listener receives. Event is set for TopicEvent,
// Relay for TopicEOSE and Events, the accepted events, for TopicClose.
type Notification struct {
	Topic  Topic
	Relay  string
	Event  *event.Event
	Events []*event.Event
}

// Listener is called on the loop goroutine. It must not block.
type Listener func(n Notification)
