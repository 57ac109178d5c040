package subscription

import (
	"context"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
)

// OpenFunc opens one epoch of a persistent subscription.
type OpenFunc func(filters []event.Filter) (*Subscription, error)

// Persistent runs a live feed as a sequence of bounded subscriptions. After
// each epoch closes, the next one is opened with every filter's Since set to
// the clock's current time, so history is not requested again. Epochs never
// overlap.
//
// Persistent returns ctx.Err() once ctx is done, closing the live epoch
// first. It returns early if open fails, and returns nil when every filter's
// Until has passed.
func Persistent(ctx context.Context, open OpenFunc, filters []event.Filter, clock common.Clock) error {
	if clock == nil {
		clock = common.RealClock()
	}

	current := make([]event.Filter, len(filters))
	for i, f := range filters {
		current[i] = f.Clone()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sub, err := open(current)
		if err != nil {
			return err
		}

		select {
		case <-sub.Done():
		case <-ctx.Done():
			sub.Close()
			<-sub.Done()
			return ctx.Err()
		}

		current = advance(current, event.FromTime(clock.Now()))
		if len(current) == 0 {
			return nil
		}
	}
}

// advance moves every filter's Since forward to now. Filters whose Until is before
// now can match nothing new and are dropped.
func advance(filters []event.Filter, now event.Timestamp) []event.Filter {
	res := make([]event.Filter, 0, len(filters))
	for _, f := range filters {
		if f.Until != nil && *f.Until < now {
			continue
		}
		since := now
		if f.Since != nil && *f.Since > since {
			since = *f.Since
		}
		res = append(res, f.WithSince(since))
	}
	return res
}
