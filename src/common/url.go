package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical form of a relay URL so that equivalent
// spellings ("WSS://Relay.example.com/", "wss://relay.example.com") compare
// equal. A bare host is assumed to be a wss endpoint.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty relay url")
	}

	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing relay url %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Host == "" {
		return "", fmt.Errorf("relay url %q has no host", raw)
	}

	// default ports carry no information
	switch {
	case u.Scheme == "wss" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	case u.Scheme == "ws" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.Fragment = ""
	u.User = nil

	return u.String(), nil
}

// IsShareableRelay reports whether url names a public websocket relay. Only
// such relays are recorded as the place an event was seen; local caches and
// other pseudo-relays are not.
func IsShareableRelay(url string) bool {
	return strings.HasPrefix(url, "wss://") || strings.HasPrefix(url, "ws://")
}
