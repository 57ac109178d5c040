package subscription

import (
	"errors"

	"github.com/mosaicnetworks/relayfold/src/event"
)

var (
	// ErrNoRelays means no usable relay was given.
	ErrNoRelays = errors.New("no relays")
	// ErrNoFilters means the filter list was empty.
	ErrNoFilters = errors.New("no filters")
	// ErrInvalidFilter means a filter failed validation.
	ErrInvalidFilter = event.ErrInvalidFilter
	// ErrStopped means the loop that runs subscriptions has shut down.
	ErrStopped = errors.New("subscription loop stopped")
)

// OpenError is returned by Open when a request is rejected before anything is
// sent to a relay.
type OpenError struct {
	Err error
}

func (e *OpenError) Error() string {
	return "cannot open subscription: " + e.Err.Error()
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// IsOpenError reports whether err was returned for a rejected request.
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}
