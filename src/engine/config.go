package engine

import (
	"time"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config gathers what an Engine is built from. Transport is required.
type Config struct {
	// Transport opens requests on relays. relay.Pool is the websocket
	// implementation.
	Transport subscription.Transport

	// Relays are used when a request names none.
	Relays []string

	// Session is the local user. The zero value means nobody is logged in.
	Session projection.Session

	// Timeout is the default timeout of subscriptions opened with a zero
	// Options.Timeout by SubscribePersistent.
	Timeout time.Duration

	// Clock defaults to the real clock.
	Clock common.Clock

	// Registry receives the metrics. A private registry is created when nil.
	Registry *prometheus.Registry

	Logger *logrus.Entry
}

// DefaultTimeout bounds each epoch of a persistent subscription.
const DefaultTimeout = 10 * time.Second

// NewDefaultConfig returns a Config with default values and no transport.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout: DefaultTimeout,
		Clock:   common.RealClock(),
	}
}
