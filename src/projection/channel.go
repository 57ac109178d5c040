package projection

import (
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/store"
)

// Meta is the channel metadata carried as JSON in the content of channel
// creation and metadata events.
type Meta struct {
	Name    string   `json:"name,omitempty"`
	About   string   `json:"about,omitempty"`
	Picture string   `json:"picture,omitempty"`
	Relays  []string `json:"relays,omitempty"`
}

// Channel is the projected state of one public chat channel, keyed by the id
// of its creation event.
//
// Relays and Messages are shared, grow-only sets: copies of a Channel value
// observe the same sets. Zero timestamps mean unknown.
type Channel struct {
	ID      string
	Creator string

	Meta          Meta
	MetaUpdatedAt event.Timestamp
	MetaEventID   string

	Relays   *event.RelaySet
	Messages *MessageSet

	LastSent     event.Timestamp
	LastReceived event.Timestamp
	LastChecked  event.Timestamp

	Joined          bool
	JoinedUpdatedAt event.Timestamp
}

// NewChannel returns an empty Channel.
func NewChannel(id string) Channel {
	return Channel{
		ID:       id,
		Relays:   event.NewRelaySet(),
		Messages: NewMessageSet(),
	}
}

// Unread reports whether a message was received after the channel was last
// checked.
func (c Channel) Unread() bool {
	return c.LastReceived > c.LastChecked
}

// setMeta applies meta if it is newer than the current metadata. Equal
// timestamps are broken by the smaller event id so that the outcome does not
// depend on arrival order.
func (c *Channel) setMeta(meta Meta, e *event.Event) bool {
	if c.MetaEventID != "" {
		if e.CreatedAt < c.MetaUpdatedAt {
			return false
		}
		if e.CreatedAt == c.MetaUpdatedAt && e.ID >= c.MetaEventID {
			return false
		}
	}
	c.Meta = meta
	c.MetaUpdatedAt = e.CreatedAt
	c.MetaEventID = e.ID
	return true
}

// mergeChannel folds patch into current. Timestamps keep their maximum, sets
// are unioned, and metadata and Joined are last-write-wins, so merging is
// idempotent and order-tolerant. The creator is set once.
func mergeChannel(current Channel, ok bool, patch Channel) Channel {
	if !ok {
		current = NewChannel(patch.ID)
	}
	if current.Creator == "" {
		current.Creator = patch.Creator
	}

	if patch.MetaEventID != "" {
		current.setMeta(patch.Meta, &event.Event{ID: patch.MetaEventID, CreatedAt: patch.MetaUpdatedAt})
	}

	for _, url := range patch.Relays.URLs() {
		current.Relays.Add(url)
	}
	for _, m := range patch.Messages.Sorted() {
		current.Messages.Add(m)
	}

	current.LastSent = event.Max(current.LastSent, patch.LastSent)
	current.LastReceived = event.Max(current.LastReceived, patch.LastReceived)
	current.LastChecked = event.Max(current.LastChecked, patch.LastChecked)
	if patch.JoinedUpdatedAt != 0 && patch.JoinedUpdatedAt >= current.JoinedUpdatedAt {
		current.Joined = patch.Joined
		current.JoinedUpdatedAt = patch.JoinedUpdatedAt
	}

	return current
}

// ChannelView is a plain snapshot of a Channel, suitable for encoding and
// comparison.
type ChannelView struct {
	ID            string          `json:"id"`
	Creator       string          `json:"creator,omitempty"`
	Meta          Meta            `json:"meta"`
	MetaUpdatedAt event.Timestamp `json:"meta_updated_at,omitempty"`
	Relays        []string        `json:"relays"`
	MessageIDs    []string        `json:"messages"`
	LastSent      event.Timestamp `json:"last_sent,omitempty"`
	LastReceived  event.Timestamp `json:"last_received,omitempty"`
	LastChecked   event.Timestamp `json:"last_checked,omitempty"`
	Joined        bool            `json:"joined"`
	Unread        bool            `json:"unread"`
}

// View snapshots the channel.
func (c Channel) View() ChannelView {
	// Attribution of a message can grow after it was projected, so the
	// relays of the messages are folded in at read time.
	relays := event.NewRelaySet(c.Relays.URLs()...)
	ids := []string{}
	for _, m := range c.Messages.Sorted() {
		ids = append(ids, m.ID)
		for _, url := range m.Relays() {
			relays.Add(url)
		}
	}
	return ChannelView{
		ID:            c.ID,
		Creator:       c.Creator,
		Meta:          c.Meta,
		MetaUpdatedAt: c.MetaUpdatedAt,
		Relays:        append([]string{}, relays.URLs()...),
		MessageIDs:    ids,
		LastSent:      c.LastSent,
		LastReceived:  c.LastReceived,
		LastChecked:   c.LastChecked,
		Joined:        c.Joined,
		Unread:        c.Unread(),
	}
}

// Channels is the store of channel projections.
type Channels = store.Store[string, Channel]

// NewChannels returns an empty channel store whose Merge is mergeChannel.
func NewChannels() *Channels {
	return store.New(store.WithMerge[string, Channel](mergeChannel))
}
