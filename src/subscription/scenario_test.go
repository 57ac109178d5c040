package subscription

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"go.uber.org/goleak"
)

// Two relays deliver the same channel message; both then signal EOSE well
// before the timeout.
func TestTwoRelayChannelScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	defer f.shutdown()

	registry := projection.NewRegistry(context.Background(), f.loop, common.NewTestEntry(t, "projection"))
	channels := projection.NewChannels()
	projection.NewChannelProjector(channels, projection.Session{}, common.NewTestEntry(t, "channels")).Register(registry)

	deps := f.deps()
	deps.Projector = registry

	s, err := Open(deps, []string{r1, r2}, []event.Filter{channelFilter("channel-X")}, Options{Timeout: 5000 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	f.loop.Flush()
	ex := <-f.transport.executors

	e1 := f.event(event.KindChannelMessage, 100, "hello", event.Tags{{"e", "channel-X", "", "root"}})

	ex.deliver(r1, e1)
	ex.deliver(r2, e1)
	ex.sendEOSE(r1)
	ex.sendEOSE(r2)

	events, err := s.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if f.clock.Pending() != 0 {
		t.Fatalf("the timeout should have been cancelled by the early close")
	}
	if !s.ClosedAt().Equal(time.Unix(1000, 0)) {
		t.Fatalf("subscription should close before the timeout, closed at %v", s.ClosedAt())
	}

	if len(events) != 1 || events[0].ID != e1.ID {
		t.Fatalf("completion value should be [e1], got %d events", len(events))
	}

	channel, ok := channels.Key("channel-X").Get()
	if !ok {
		t.Fatalf("channel-X should exist")
	}
	view := channel.View()
	if !reflect.DeepEqual(view.MessageIDs, []string{e1.ID}) {
		t.Fatalf("messages should be {A}, got %v", view.MessageIDs)
	}

	stored, _ := channel.Messages.Get(e1.ID)
	if !reflect.DeepEqual(stored.Relays(), []string{r1, r2}) {
		t.Fatalf("seen on should be [R1 R2], got %v", stored.Relays())
	}
}

func TestPersistentAdvancesCursor(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	defer f.shutdown()

	since := event.Timestamp(10)
	filters := []event.Filter{{
		Kinds: []event.Kind{event.KindChannelMessage},
		Tags:  map[string][]string{"e": {"channel-X"}},
		Since: &since,
	}}

	epochs := make(chan *Subscription, 4)
	open := func(filters []event.Filter) (*Subscription, error) {
		s, err := Open(f.deps(), []string{r1, r2}, filters, Options{Timeout: 5 * time.Second})
		if err == nil {
			epochs <- s
		}
		return s, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() {
		res <- Persistent(ctx, open, filters, f.clock)
	}()

	first := <-f.transport.executors
	firstSub := <-epochs
	if got := *first.requested()[0].Since; got != 10 {
		t.Fatalf("first epoch should use the original cursor, got %d", got)
	}

	f.clock.Advance(2 * time.Second)
	first.sendEOSE(r1)
	first.sendEOSE(r2)

	second := <-f.transport.executors

	closedAt := event.FromTime(firstSub.ClosedAt())
	if closedAt != 1002 {
		t.Fatalf("first epoch should close at 1002, not %d", closedAt)
	}
	if got := *second.requested()[0].Since; got < closedAt {
		t.Fatalf("second epoch cursor %d should not be before the first close %d", got, closedAt)
	}
	if u, _ := first.counts(); u != 1 {
		t.Fatalf("first epoch should be released before the second opens")
	}
	if filters[0].Since == nil || *filters[0].Since != 10 {
		t.Fatalf("caller filters should not be modified")
	}

	cancel()
	if err := <-res; err != context.Canceled {
		t.Fatalf("Persistent should return context.Canceled, got %v", err)
	}

	if u, c := second.counts(); u != 1 || c != 1 {
		t.Fatalf("the live epoch should be closed on cancel, got %d/%d", u, c)
	}
}

func TestPersistentTimeoutEpochs(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	defer f.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open := func(filters []event.Filter) (*Subscription, error) {
		return Open(f.deps(), []string{r1}, filters, Options{Timeout: time.Minute})
	}

	res := make(chan error, 1)
	go func() {
		res <- Persistent(ctx, open, []event.Filter{channelFilter("channel-X")}, f.clock)
	}()

	var sinces []event.Timestamp
	for i := 0; i < 3; i++ {
		ex := <-f.transport.executors
		if s := ex.requested()[0].Since; s != nil {
			sinces = append(sinces, *s)
		}
		// wait for the epoch's timer before firing it
		for f.clock.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		f.clock.Advance(time.Minute)
	}

	<-f.transport.executors
	cancel()
	<-res

	if !reflect.DeepEqual(sinces, []event.Timestamp{1060, 1120}) {
		t.Fatalf("cursors should follow the epochs, got %v", sinces)
	}
}

func TestPersistentStopsOnOpenError(t *testing.T) {
	open := func(filters []event.Filter) (*Subscription, error) {
		return nil, &OpenError{Err: ErrNoRelays}
	}

	err := Persistent(context.Background(), open, []event.Filter{channelFilter("x")}, nil)
	if !IsOpenError(err) {
		t.Fatalf("expected the open error, got %v", err)
	}
}

func TestPersistentExhaustedFilters(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	defer f.shutdown()

	until := event.Timestamp(1001)
	filters := []event.Filter{{Kinds: []event.Kind{1}, Until: &until}}

	open := func(filters []event.Filter) (*Subscription, error) {
		return Open(f.deps(), []string{r1}, filters, Options{Timeout: time.Second})
	}

	res := make(chan error, 1)
	go func() {
		res <- Persistent(context.Background(), open, filters, f.clock)
	}()

	ex := <-f.transport.executors
	f.clock.Advance(2 * time.Second)
	ex.sendEOSE(r1)

	if err := <-res; err != nil {
		t.Fatalf("feed past its until should end cleanly, got %v", err)
	}
}
