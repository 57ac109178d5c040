package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/crypto/keys"
	"github.com/mosaicnetworks/relayfold/src/engine"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/subscription"
)

const relayURL = "wss://relay.example.com"

// staticTransport answers every request with the same events, then EOSE.
type staticTransport struct {
	events []*event.Event
}

func (t *staticTransport) Executor(relays []string) subscription.Executor {
	return &staticExecutor{relays: relays, events: t.events}
}

type staticExecutor struct {
	relays []string
	events []*event.Event
}

func (e *staticExecutor) Subscribe(filters []event.Filter, cb subscription.Callbacks) subscription.Unsubscriber {
	for _, ev := range e.events {
		c := *ev
		c.SeenOn = nil
		cb.OnEvent(e.relays[0], &c)
	}
	for _, r := range e.relays {
		cb.OnEOSE(r)
	}
	return subscription.UnsubscribeFunc(func() {})
}

func (e *staticExecutor) Cleanup() {}

func newTestService(t *testing.T) (*Service, *engine.Engine, string) {
	author, _ := keys.GenerateKey()

	sign := func(kind event.Kind, createdAt event.Timestamp, content string, tags event.Tags) *event.Event {
		e := &event.Event{CreatedAt: createdAt, Kind: kind, Tags: tags, Content: content}
		if err := e.Sign(author); err != nil {
			t.Fatal(err)
		}
		return e
	}

	creation := sign(event.KindChannelCreation, 10, `{"name":"general","about":"chat"}`, nil)
	message := sign(event.KindChannelMessage, 20, "hi", event.Tags{{"e", creation.ID, "", "root"}})

	eng, err := engine.New(engine.Config{
		Transport: &staticTransport{events: []*event.Event{creation, message}},
		Relays:    []string{relayURL},
		Logger:    common.NewTestEntry(t, "engine"),
	})
	if err != nil {
		t.Fatal(err)
	}
	eng.Run()

	service := NewService("127.0.0.1:0", eng, common.NewTestEntry(t, "service"))

	_, err = eng.Query(context.Background(), nil, projection.ChannelFilters([]string{creation.ID}, ""), subscription.Options{Timeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	eng.Flush()

	return service, eng, creation.ID
}

func get(t *testing.T, server *httptest.Server, path string, v interface{}) *http.Response {
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp
}

func TestServiceChannels(t *testing.T) {
	service, eng, id := newTestService(t)
	defer eng.Shutdown()
	defer service.Shutdown(context.Background())

	server := httptest.NewServer(service.Handler())
	defer server.Close()

	var channels []projection.ChannelView
	resp := get(t, server, "/channels", &channels)
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS header should be set")
	}
	if len(channels) != 1 || channels[0].ID != id {
		t.Fatalf("expected one channel %s, got %+v", id, channels)
	}
	if channels[0].Meta.Name != "general" || len(channels[0].MessageIDs) != 1 {
		t.Fatalf("unexpected channel %+v", channels[0])
	}
	if !reflect.DeepEqual(channels[0].Relays, []string{relayURL}) {
		t.Fatalf("unexpected relays %v", channels[0].Relays)
	}

	var joined []projection.ChannelView
	get(t, server, "/channels?joined=true", &joined)
	if len(joined) != 0 {
		t.Fatalf("no channel is joined, got %d", len(joined))
	}

	var channel projection.ChannelView
	get(t, server, "/channels/"+id, &channel)
	if channel.Meta.About != "chat" {
		t.Fatalf("unexpected channel %+v", channel)
	}

	resp = get(t, server, "/channels/unknown", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown channel should be 404, got %d", resp.StatusCode)
	}
}

func TestServiceStats(t *testing.T) {
	service, eng, _ := newTestService(t)
	defer eng.Shutdown()
	defer service.Shutdown(context.Background())

	server := httptest.NewServer(service.Handler())
	defer server.Close()

	var stats map[string]string
	get(t, server, "/stats", &stats)
	if stats["events_accepted"] != "2" || stats["channels"] != "1" {
		t.Fatalf("unexpected stats %v", stats)
	}

	var subs []string
	get(t, server, "/subscriptions", &subs)
	if len(subs) != 0 {
		t.Fatalf("the query should be closed, got %v", subs)
	}

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "relayfold_events_accepted_total 2") {
		t.Fatalf("metrics should expose accepted events, got %s", body)
	}
}
