package projection

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/relayfold/src/event"
)

// Identifiers (d tags) of the application data the channel projector reads.
const (
	LastCheckedTag    = "relayfold/last_checked/v1"
	ChannelsJoinedTag = "relayfold/channels_joined/v1"
)

// startApplicationData decrypts the session user's application data off the
// loop. The continuation it returns merges the result into the store.
func (p *ChannelProjector) startApplicationData(ctx context.Context, e *event.Event) (Continuation, error) {
	if p.session.Decrypter == nil || p.session.PubKey == "" {
		return nil, nil
	}
	if e.PubKey != p.session.PubKey {
		return nil, nil
	}

	d := e.Tags.Find("d").Value()
	if d != LastCheckedTag && d != ChannelsJoinedTag {
		return nil, nil
	}

	plaintext, err := p.session.Decrypter.DecryptAsUser(ctx, e.Content, e.PubKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", d, err)
	}

	switch d {
	case LastCheckedTag:
		return p.lastChecked(e, plaintext), nil
	default:
		return p.channelsJoined(e, plaintext), nil
	}
}

// lastChecked parses {"<channel id>": <timestamp>}. Malformed payloads are
// ignored.
func (p *ChannelProjector) lastChecked(e *event.Event, plaintext string) Continuation {
	var checked map[string]int64
	if err := decodeObject(plaintext, &checked); err != nil {
		p.logger.WithError(err).WithField("id", e.ID).Debug("Ignoring malformed last checked data")
		return nil
	}

	return func() error {
		for id, ts := range checked {
			if id == "" {
				continue
			}
			p.channels.Key(id).Merge(Channel{ID: id, LastChecked: event.Timestamp(ts)})
		}
		return nil
	}
}

// channelsJoined parses ["<channel id>", ...]. A payload that is not an
// array is ignored, and so are entries that are not strings.
//
// The list is replaceable: the newest one by created_at, ties going to the
// smaller event id, decides which channels are joined. Older lists are
// ignored, and channels missing from the applied list are marked as left.
func (p *ChannelProjector) channelsJoined(e *event.Event, plaintext string) Continuation {
	var joined []interface{}
	if err := decodeArray(plaintext, &joined); err != nil {
		p.logger.WithError(err).WithField("id", e.ID).Debug("Ignoring malformed joined channels data")
		return nil
	}

	listed := make(map[string]bool, len(joined))
	for _, v := range joined {
		if id, ok := v.(string); ok && id != "" {
			listed[id] = true
		}
	}

	return func() error {
		if p.joinedID != "" {
			if e.CreatedAt < p.joinedAt || (e.CreatedAt == p.joinedAt && e.ID >= p.joinedID) {
				p.logger.WithField("id", e.ID).Debug("Ignoring outdated joined channels data")
				return nil
			}
		}
		p.joinedAt, p.joinedID = e.CreatedAt, e.ID

		for id := range listed {
			p.channels.Key(id).Merge(Channel{ID: id, Joined: true, JoinedUpdatedAt: e.CreatedAt})
		}
		for id, c := range p.channels.Snapshot() {
			if c.Joined && !listed[id] {
				p.channels.Key(id).Merge(Channel{ID: id, JoinedUpdatedAt: e.CreatedAt})
			}
		}
		return nil
	}
}
