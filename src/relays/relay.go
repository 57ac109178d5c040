package relays

import "github.com/mosaicnetworks/relayfold/src/common"

// Relay is an entry of the relay list. Read relays are queried by
// subscriptions; Write relays would receive what the user publishes.
type Relay struct {
	URL   string `json:"url"`
	Read  bool   `json:"read"`
	Write bool   `json:"write"`
}

// NewRelay creates a read and write Relay with a normalized URL.
func NewRelay(url string) (*Relay, error) {
	norm, err := common.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	return &Relay{URL: norm, Read: true, Write: true}, nil
}

// Shareable reports whether the relay is a public websocket endpoint.
func (r *Relay) Shareable() bool {
	return common.IsShareableRelay(r.URL)
}
