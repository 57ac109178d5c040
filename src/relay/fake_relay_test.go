package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/relayfold/src/event"
)

// fakeRelay answers every REQ with its stored events followed by EOSE.
type fakeRelay struct {
	server *httptest.Server

	mu          sync.Mutex
	events      []*event.Event
	extra       [][]byte
	connections int
	open        int
	reqs        []string
	closes      []string
	closedCh    chan struct{}
}

func newFakeRelay(t *testing.T, events ...*event.Event) *fakeRelay {
	t.Helper()

	r := &fakeRelay{events: events, closedCh: make(chan struct{}, 16)}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	return r
}

// setExtra makes the relay send msgs before answering each REQ.
func (r *fakeRelay) setExtra(msgs ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extra = msgs
}

func (r *fakeRelay) URL() string {
	return "ws://" + strings.TrimPrefix(r.server.URL, "http://")
}

func (r *fakeRelay) Close() {
	r.server.Close()
}

func (r *fakeRelay) stats() (connections, open int, reqs, closes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections, r.open, append([]string(nil), r.reqs...), append([]string(nil), r.closes...)
}

func (r *fakeRelay) serve(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	r.mu.Lock()
	r.connections++
	r.open++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.open--
		r.mu.Unlock()
		r.closedCh <- struct{}{}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg []json.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil || len(msg) < 2 {
			continue
		}
		var label, subID string
		json.Unmarshal(msg[0], &label)
		json.Unmarshal(msg[1], &subID)

		switch label {
		case "REQ":
			r.mu.Lock()
			r.reqs = append(r.reqs, string(data))
			events := r.events
			extra := r.extra
			r.mu.Unlock()

			for _, m := range extra {
				ws.WriteMessage(websocket.TextMessage, m)
			}
			for _, e := range events {
				body, _ := e.Marshal()
				ws.WriteMessage(websocket.TextMessage, []byte(`["EVENT",`+quote(subID)+`,`+string(body)+`]`))
			}
			ws.WriteMessage(websocket.TextMessage, []byte(`["EOSE",`+quote(subID)+`]`))
		case "CLOSE":
			r.mu.Lock()
			r.closes = append(r.closes, subID)
			r.mu.Unlock()
		}
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
