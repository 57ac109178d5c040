package relay

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/crypto/keys"
	"github.com/mosaicnetworks/relayfold/src/engine"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"go.uber.org/goleak"
)

// Two websocket relays serve overlapping channel history to an engine.
func TestEngineOverWebsockets(t *testing.T) {
	defer goleak.VerifyNone(t)

	author, _ := keys.GenerateKey()
	sign := func(kind event.Kind, createdAt event.Timestamp, content string, tags event.Tags) *event.Event {
		e := &event.Event{CreatedAt: createdAt, Kind: kind, Tags: tags, Content: content}
		if err := e.Sign(author); err != nil {
			t.Fatal(err)
		}
		return e
	}

	creation := sign(event.KindChannelCreation, 10, `{"name":"general"}`, nil)
	first := sign(event.KindChannelMessage, 20, "first", event.Tags{{"e", creation.ID, "", "root"}})
	second := sign(event.KindChannelMessage, 30, "second", event.Tags{{"e", creation.ID, "", "root"}})

	forged := *second
	forged.Content = "tampered"
	forged.ID = forged.ComputeID()

	r1 := newFakeRelay(t, creation, first)
	defer r1.Close()
	r2 := newFakeRelay(t, first, second, &forged)
	defer r2.Close()

	pool := NewPool(DefaultConfig(), common.NewTestEntry(t, "relay"))
	defer pool.Close()

	eng, err := engine.New(engine.Config{
		Transport: pool,
		Relays:    []string{r1.URL(), r2.URL()},
		Logger:    common.NewTestEntry(t, "engine"),
	})
	if err != nil {
		t.Fatal(err)
	}
	eng.Run()
	defer eng.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := eng.Query(ctx, nil, projection.ChannelFilters([]string{creation.ID}, ""), subscription.Options{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("creation and two messages should be accepted, got %d", len(events))
	}

	eng.Flush()

	channel, ok := eng.Channels().Key(creation.ID).Get()
	if !ok {
		t.Fatalf("channel should be projected")
	}
	view := channel.View()
	if !reflect.DeepEqual(view.MessageIDs, []string{first.ID, second.ID}) {
		t.Fatalf("unexpected messages %v", view.MessageIDs)
	}

	stored, _ := channel.Messages.Get(first.ID)
	relays := stored.Relays()
	if len(relays) != 2 {
		t.Fatalf("the shared message should be attributed to both relays, got %v", relays)
	}

	if stats := eng.GetStats(); stats["events_rejected"] != "1" {
		t.Fatalf("the forged event should be rejected, got %s", stats["events_rejected"])
	}
}
