package event

import "strconv"

// Kind is the numeric event-kind namespace of the wire protocol. Only the
// kinds this module projects are named; any other value is legal.
type Kind int

const (
	// KindChannelCreation creates a public chat channel. The channel is
	// identified by the ID of this event.
	KindChannelCreation Kind = 40
	// KindChannelMetadata replaces the metadata of an existing channel.
	KindChannelMetadata Kind = 41
	// KindChannelMessage is a message posted to a channel.
	KindChannelMessage Kind = 42
	// KindApplicationData is an addressable, application specific record,
	// identified by its "d" tag.
	KindApplicationData Kind = 30078
)

var kindNames = map[Kind]string{
	KindChannelCreation: "ChannelCreation",
	KindChannelMetadata: "ChannelMetadata",
	KindChannelMessage:  "ChannelMessage",
	KindApplicationData: "ApplicationData",
}

// String returns the name of well-known kinds and the number otherwise.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return strconv.Itoa(int(k))
}
