package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"github.com/sirupsen/logrus"
)

// conn is the shared connection to one relay. Outgoing messages are queued
// and written by run, so callers never block on the network.
type conn struct {
	url  string
	pool *Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	refs      int
	subs      map[string]subscription.Callbacks
	queue     [][]byte
	closing   bool
	connected bool
	wakeCh    chan struct{}

	doneCh chan struct{}

	logger *logrus.Entry
}

func newConn(p *Pool, url string) *conn {
	ctx, cancel := context.WithCancel(p.ctx)
	return &conn{
		url:    url,
		pool:   p,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]subscription.Callbacks),
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		logger: p.logger.WithField("relay", url),
	}
}

func (c *conn) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// subscribe registers cb for subID and queues the request.
func (c *conn) subscribe(subID string, req []byte, cb subscription.Callbacks) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.subs[subID] = cb
	c.queue = append(c.queue, req)
	c.mu.Unlock()

	c.wake()
}

// unsubscribe forgets subID and tells the relay.
func (c *conn) unsubscribe(subID string) {
	c.mu.Lock()
	if _, ok := c.subs[subID]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, subID)
	if !c.closing {
		c.queue = append(c.queue, formatCLOSE(subID))
	}
	c.mu.Unlock()

	c.wake()
}

func (c *conn) callbacks(subID string) (subscription.Callbacks, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.subs[subID]
	return cb, ok
}

// shutdown asks run to flush the queue and disconnect.
func (c *conn) shutdown() {
	c.mu.Lock()
	c.closing = true
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		c.cancel()
	}
	c.wake()
}

func (c *conn) take() ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.queue
	c.queue = nil
	return q, c.closing
}

// run dials the relay, then writes queued messages until shutdown or until
// the connection is lost.
func (c *conn) run() {
	defer close(c.doneCh)
	defer c.pool.forget(c)
	defer func() {
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()
		c.cancel()
	}()

	conf := c.pool.conf

	dialCtx, cancel := context.WithTimeout(c.ctx, conf.DialTimeout)
	ws, _, err := c.pool.dialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		c.logger.WithError(err).Warn("Relay unreachable")
		return
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.logger.Debug("Connected")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		c.readLoop(ws)
	}()

	ticker := time.NewTicker(conf.PingInterval)
	defer ticker.Stop()

loop:
	for {
		msgs, closing := c.take()
		for _, m := range msgs {
			ws.SetWriteDeadline(time.Now().Add(conf.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, m); err != nil {
				c.logger.WithError(err).Debug("Write failed")
				break loop
			}
		}
		if closing {
			break
		}

		select {
		case <-c.wakeCh:
		case <-ticker.C:
			err := ws.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(conf.WriteTimeout))
			if err != nil {
				c.logger.WithError(err).Debug("Ping failed")
				break loop
			}
		case <-readDone:
			break loop
		case <-c.ctx.Done():
			break loop
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(conf.WriteTimeout))
	ws.Close()
	<-readDone

	c.logger.Debug("Disconnected")
}

func (c *conn) readLoop(ws *websocket.Conn) {
	conf := c.pool.conf
	pongWait := 2 * conf.PingInterval

	ws.SetReadLimit(conf.ReadLimit)
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		ws.SetReadDeadline(time.Now().Add(pongWait))

		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.WithError(err).Debug("Read failed")
			}
			return
		}

		c.handle(data)
	}
}

func (c *conn) handle(data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		c.logger.WithError(err).Debug("Ignoring message")
		return
	}

	switch env.Label {
	case labelEVENT:
		if cb, ok := c.callbacks(env.SubID); ok && cb.OnEvent != nil {
			cb.OnEvent(c.url, env.Event)
		}
	case labelEOSE:
		if cb, ok := c.callbacks(env.SubID); ok && cb.OnEOSE != nil {
			cb.OnEOSE(c.url)
		}
	case labelCLOSED:
		c.logger.WithFields(logrus.Fields{
			"sub":    env.SubID,
			"reason": env.Message,
		}).Info("Relay closed subscription")
		c.mu.Lock()
		delete(c.subs, env.SubID)
		c.mu.Unlock()
	case labelNOTICE:
		c.logger.WithField("notice", env.Message).Info("Relay notice")
	default:
		c.logger.WithField("label", env.Label).Debug("Ignoring message")
	}
}
