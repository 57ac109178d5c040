package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/relayfold/src/event"
)

// Message labels.
const (
	labelREQ    = "REQ"
	labelCLOSE  = "CLOSE"
	labelEVENT  = "EVENT"
	labelEOSE   = "EOSE"
	labelNOTICE = "NOTICE"
	labelCLOSED = "CLOSED"
	labelOK     = "OK"
	labelAUTH   = "AUTH"
)

var errMalformedEnvelope = errors.New("malformed relay message")

// envelope is a decoded relay to client message.
type envelope struct {
	Label   string
	SubID   string
	Event   *event.Event
	Message string
}

// formatREQ builds a REQ message.
func formatREQ(subID string, filters []event.Filter) ([]byte, error) {
	msg := make([]interface{}, 0, len(filters)+2)
	msg = append(msg, labelREQ, subID)
	for _, f := range filters {
		msg = append(msg, f)
	}
	return json.Marshal(msg)
}

// formatCLOSE builds a CLOSE message.
func formatCLOSE(subID string) []byte {
	b, _ := json.Marshal([]string{labelCLOSE, subID})
	return b
}

// parseEnvelope decodes a relay message. Unknown labels are returned with no
// other field set.
func parseEnvelope(data []byte) (*envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEnvelope, err)
	}
	if len(parts) == 0 {
		return nil, errMalformedEnvelope
	}

	env := &envelope{}
	if err := json.Unmarshal(parts[0], &env.Label); err != nil {
		return nil, fmt.Errorf("%w: label: %v", errMalformedEnvelope, err)
	}

	str := func(i int, dst *string) error {
		if len(parts) <= i {
			return fmt.Errorf("%w: %s has %d elements", errMalformedEnvelope, env.Label, len(parts))
		}
		if err := json.Unmarshal(parts[i], dst); err != nil {
			return fmt.Errorf("%w: %s element %d: %v", errMalformedEnvelope, env.Label, i, err)
		}
		return nil
	}

	switch env.Label {
	case labelEVENT:
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: EVENT without event", errMalformedEnvelope)
		}
		ev := &event.Event{}
		if err := ev.Unmarshal(parts[2]); err != nil {
			return nil, fmt.Errorf("%w: event: %v", errMalformedEnvelope, err)
		}
		env.Event = ev
	case labelEOSE:
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
	case labelCLOSED:
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
		if len(parts) > 2 {
			_ = str(2, &env.Message)
		}
	case labelNOTICE:
		if err := str(1, &env.Message); err != nil {
			return nil, err
		}
	}

	return env, nil
}
