package relay

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"github.com/sirupsen/logrus"
)

// Pool is a subscription.Transport over websockets.
type Pool struct {
	conf   Config
	dialer *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
	wg     sync.WaitGroup

	logger *logrus.Entry
}

// NewPool creates a Pool. Zero fields of conf take their default.
func NewPool(conf Config, logger *logrus.Entry) *Pool {
	def := DefaultConfig()
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = def.DialTimeout
	}
	if conf.WriteTimeout <= 0 {
		conf.WriteTimeout = def.WriteTimeout
	}
	if conf.PingInterval <= 0 {
		conf.PingInterval = def.PingInterval
	}
	if conf.ReadLimit <= 0 {
		conf.ReadLimit = def.ReadLimit
	}

	if logger == nil {
		logger = logrus.New().WithField("prefix", "relay")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		conf: conf,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: conf.DialTimeout,
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[string]*conn),
		logger: logger,
	}
}

// Executor implements subscription.Transport. Every relay is acquired until
// the executor's Cleanup.
func (p *Pool) Executor(relays []string) subscription.Executor {
	ex := &executor{pool: p}
	for _, url := range relays {
		ex.conns = append(ex.conns, p.acquire(url))
	}
	return ex
}

func (p *Pool) acquire(url string) *conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[url]; ok {
		c.refs++
		return c
	}

	c := newConn(p, url)
	c.refs = 1

	if p.closed {
		c.closing = true
		c.cancel()
		close(c.doneCh)
		return c
	}

	p.conns[url] = c
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		c.run()
	}()

	return c
}

func (p *Pool) release(c *conn) {
	p.mu.Lock()
	c.refs--
	last := c.refs == 0
	if last && p.conns[c.url] == c {
		delete(p.conns, c.url)
	}
	p.mu.Unlock()

	if last {
		c.shutdown()
	}
}

// forget removes a connection that went away on its own, so that the next
// executor dials again.
func (p *Pool) forget(c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conns[c.url] == c {
		delete(p.conns, c.url)
	}
}

// Relays returns the URLs of the live connections.
func (p *Pool) Relays() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]string, 0, len(p.conns))
	for url := range p.conns {
		res = append(res, url)
	}
	sort.Strings(res)
	return res
}

// Close disconnects every relay and waits for the connections to wind down.
// Executors obtained afterwards never deliver anything.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	conns := make([]*conn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.conns = make(map[string]*conn)
	p.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	p.cancel()
	p.wg.Wait()
}

type executor struct {
	pool  *Pool
	conns []*conn
	once  sync.Once
}

// Subscribe sends the request to every relay of the executor.
func (e *executor) Subscribe(filters []event.Filter, cb subscription.Callbacks) subscription.Unsubscriber {
	subID := uuid.New().String()

	req, err := formatREQ(subID, filters)
	if err != nil {
		e.pool.logger.WithError(err).Error("Cannot encode request")
		return subscription.UnsubscribeFunc(func() {})
	}

	for _, c := range e.conns {
		c.subscribe(subID, req, cb)
	}

	var once sync.Once
	return subscription.UnsubscribeFunc(func() {
		once.Do(func() {
			for _, c := range e.conns {
				c.unsubscribe(subID)
			}
		})
	})
}

// Cleanup releases the executor's connections.
func (e *executor) Cleanup() {
	e.once.Do(func() {
		for _, c := range e.conns {
			e.pool.release(c)
		}
	})
}
