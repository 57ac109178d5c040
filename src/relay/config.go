package relay

import "time"

// Default connection settings.
const (
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultReadLimit    = 4 * 1024 * 1024
)

// Config holds the connection settings of a Pool.
type Config struct {
	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration
	// WriteTimeout bounds every write, pings included.
	WriteTimeout time.Duration
	// PingInterval is the keepalive period. A relay that sends nothing, not
	// even a pong, for two intervals is disconnected.
	PingInterval time.Duration
	// ReadLimit is the largest message accepted from a relay.
	ReadLimit int64
}

// DefaultConfig returns the default connection settings.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  DefaultDialTimeout,
		WriteTimeout: DefaultWriteTimeout,
		PingInterval: DefaultPingInterval,
		ReadLimit:    DefaultReadLimit,
	}
}
