package projection

import (
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/sirupsen/logrus"
)

// Session identifies the local user. An empty PubKey means nobody is logged
// in; a nil Decrypter means encrypted content cannot be read.
type Session struct {
	PubKey    string
	Decrypter Decrypter
}

// ChannelProjector maintains the channel store from channel creation,
// metadata and message events and from the session user's application data.
//
// Its own state is only touched from the registry's scheduler.
type ChannelProjector struct {
	channels *Channels
	session  Session

	// metadata seen before the creation of its channel, by channel id and
	// author
	orphans map[string]map[string]*event.Event

	// the joined channels list currently applied
	joinedAt event.Timestamp
	joinedID string

	logger *logrus.Entry
}

// NewChannelProjector creates a ChannelProjector writing to channels.
func NewChannelProjector(channels *Channels, session Session, logger *logrus.Entry) *ChannelProjector {
	if logger == nil {
		logger = logrus.New().WithField("prefix", "channels")
	}
	return &ChannelProjector{
		channels: channels,
		session:  session,
		orphans:  make(map[string]map[string]*event.Event),
		logger:   logger,
	}
}

// Register adds the projector's handlers to r.
func (p *ChannelProjector) Register(r *Registry) {
	r.AddHandler(event.KindChannelCreation, HandlerFunc(p.applyCreation))
	r.AddHandler(event.KindChannelMetadata, HandlerFunc(p.applyMetadata))
	r.AddHandler(event.KindChannelMessage, HandlerFunc(p.applyMessage))
	r.AddAsyncHandler(event.KindApplicationData, AsyncHandlerFunc(p.startApplicationData))
}

// Channels returns the store the projector writes to.
func (p *ChannelProjector) Channels() *Channels {
	return p.channels
}

// ChannelRef returns the id of the channel an event refers to: the e tag
// marked root, or the first e tag.
func ChannelRef(e *event.Event) string {
	if t := e.Tags.FindMarked("e", "root"); t != nil {
		return t.Value()
	}
	return e.Tags.Find("e").Value()
}

func (p *ChannelProjector) applyCreation(e *event.Event) error {
	var meta Meta
	if err := decodeObject(e.Content, &meta); err != nil {
		p.logger.WithError(err).WithField("id", e.ID).Debug("Ignoring channel with malformed metadata")
		return nil
	}

	c := p.channels.Key(e.ID).Merge(Channel{
		ID:            e.ID,
		Creator:       e.PubKey,
		Meta:          meta,
		MetaUpdatedAt: e.CreatedAt,
		MetaEventID:   e.ID,
		Relays:        event.NewRelaySet(e.Relays()...),
	})

	orphans := p.orphans[e.ID]
	delete(p.orphans, e.ID)
	if m, ok := orphans[c.Creator]; ok {
		return p.applyMetadata(m)
	}

	return nil
}

// applyMetadata only accepts updates signed by the channel creator. Updates
// for a channel whose creation has not been seen yet are held back, keeping
// the latest one per author.
func (p *ChannelProjector) applyMetadata(e *event.Event) error {
	id := ChannelRef(e)
	if id == "" {
		return nil
	}

	var meta Meta
	if err := decodeObject(e.Content, &meta); err != nil {
		p.logger.WithError(err).WithField("id", e.ID).Debug("Ignoring malformed channel metadata")
		return nil
	}

	c, _ := p.channels.Key(id).Get()
	if c.Creator == "" {
		p.holdMetadata(id, e)
		return nil
	}
	if e.PubKey != c.Creator {
		p.logger.WithFields(logrus.Fields{
			"id":      e.ID,
			"channel": id,
		}).Debug("Ignoring channel metadata not signed by the creator")
		return nil
	}

	p.channels.Key(id).Merge(Channel{
		ID:            id,
		Meta:          meta,
		MetaUpdatedAt: e.CreatedAt,
		MetaEventID:   e.ID,
		Relays:        event.NewRelaySet(e.Relays()...),
	})

	return nil
}

func (p *ChannelProjector) holdMetadata(id string, e *event.Event) {
	byAuthor, ok := p.orphans[id]
	if !ok {
		byAuthor = make(map[string]*event.Event)
		p.orphans[id] = byAuthor
	}

	if held, ok := byAuthor[e.PubKey]; ok {
		if e.CreatedAt < held.CreatedAt || (e.CreatedAt == held.CreatedAt && e.ID >= held.ID) {
			return
		}
	}
	byAuthor[e.PubKey] = e
}

func (p *ChannelProjector) applyMessage(e *event.Event) error {
	id := ChannelRef(e)
	if id == "" {
		return nil
	}

	patch := Channel{
		ID:       id,
		Relays:   event.NewRelaySet(e.Relays()...),
		Messages: NewMessageSet(),
	}
	patch.Messages.Add(e)

	if p.session.PubKey != "" && e.PubKey == p.session.PubKey {
		patch.LastSent = e.CreatedAt
	} else {
		patch.LastReceived = e.CreatedAt
	}

	p.channels.Key(id).Merge(patch)

	return nil
}

// ChannelFilters requests everything the projector folds for the given
// channels: their creation events, metadata updates and messages, plus the
// application data of the session user when pubKey is set.
func ChannelFilters(channelIDs []string, pubKey string) []event.Filter {
	var filters []event.Filter

	if len(channelIDs) > 0 {
		ids := append([]string(nil), channelIDs...)
		filters = append(filters,
			event.Filter{
				IDs:   ids,
				Kinds: []event.Kind{event.KindChannelCreation},
			},
			event.Filter{
				Kinds: []event.Kind{event.KindChannelMetadata, event.KindChannelMessage},
				Tags:  map[string][]string{"e": ids},
			},
		)
	}

	if pubKey != "" {
		filters = append(filters, event.Filter{
			Kinds:   []event.Kind{event.KindApplicationData},
			Authors: []string{pubKey},
			Tags:    map[string][]string{"d": {LastCheckedTag, ChannelsJoinedTag}},
		})
	}

	return filters
}
