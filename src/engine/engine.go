package engine

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/relayfold/src/actor"
	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrShutdown is returned by operations attempted after Shutdown.
var ErrShutdown = errors.New("engine is shut down")

// Engine is the owned runtime context: one loop, one registry, one channel
// store. Engines are independent of each other.
type Engine struct {
	conf Config

	ctx    context.Context
	cancel context.CancelFunc

	loop      *actor.Loop
	registry  *projection.Registry
	projector *projection.ChannelProjector
	metrics   *subscription.Metrics
	prom      *prometheus.Registry

	mu       sync.Mutex
	subs     map[string]*subscription.Subscription
	opened   int
	feeds    sync.WaitGroup
	start    time.Time
	shutdown bool

	logger *logrus.Entry
}

// New creates an Engine and registers the channel projections. Run must be
// called before any subscription is opened.
func New(conf Config) (*Engine, error) {
	if conf.Transport == nil {
		return nil, errors.New("engine needs a transport")
	}
	if conf.Clock == nil {
		conf.Clock = common.RealClock()
	}
	if conf.Logger == nil {
		conf.Logger = logrus.New().WithField("prefix", "engine")
	}
	if conf.Registry == nil {
		conf.Registry = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		conf:   conf,
		ctx:    ctx,
		cancel: cancel,
		loop:   actor.NewLoop(conf.Logger.WithField("prefix", "loop")),
		prom:   conf.Registry,
		subs:   make(map[string]*subscription.Subscription),
		start:  conf.Clock.Now(),
		logger: conf.Logger,
	}

	e.metrics = subscription.NewMetrics(e.prom)
	e.registry = projection.NewRegistry(ctx, e.loop, conf.Logger.WithField("prefix", "projection"))
	e.projector = projection.NewChannelProjector(
		projection.NewChannels(),
		conf.Session,
		conf.Logger.WithField("prefix", "channels"),
	)
	e.projector.Register(e.registry)

	return e, nil
}

// Run starts the loop in its own goroutine.
func (e *Engine) Run() {
	e.mu.Lock()
	e.start = e.conf.Clock.Now()
	e.mu.Unlock()

	e.loop.RunAsync()

	e.logger.WithFields(logrus.Fields{
		"relays": e.conf.Relays,
		"kinds":  e.registry.Kinds(),
		"pubkey": e.conf.Session.PubKey,
	}).Debug("Engine running")
}

// Registry returns the projection registry. Handlers must be added before
// subscriptions are opened.
func (e *Engine) Registry() *projection.Registry {
	return e.registry
}

// Channels returns the channel store.
func (e *Engine) Channels() *projection.Channels {
	return e.projector.Channels()
}

// Metrics returns the Prometheus registry holding the engine's metrics.
func (e *Engine) Metrics() *prometheus.Registry {
	return e.prom
}

// Flush waits until everything queued on the loop so far has run.
func (e *Engine) Flush() {
	e.loop.Flush()
}

func (e *Engine) deps() subscription.Deps {
	return subscription.Deps{
		Transport: e.conf.Transport,
		Scheduler: e.loop,
		Projector: e.registry,
		Clock:     e.conf.Clock,
		Metrics:   e.metrics,
		Logger:    e.logger.WithField("prefix", "subscription"),
	}
}

// Subscribe opens a bounded subscription. Empty relays mean the configured
// ones. setup, when not nil, runs before the request is issued and is the
// place to register listeners.
func (e *Engine) Subscribe(
	relays []string,
	filters []event.Filter,
	opts subscription.Options,
	setup func(*subscription.Subscription),
) (*subscription.Subscription, error) {
	if len(relays) == 0 {
		relays = e.conf.Relays
	}

	sub, err := subscription.Prepare(e.deps(), relays, filters, opts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil, ErrShutdown
	}
	e.subs[sub.ID] = sub
	e.opened++
	e.mu.Unlock()

	sub.On(subscription.TopicClose, func(subscription.Notification) {
		e.forget(sub.ID)
	})

	if setup != nil {
		setup(sub)
	}

	if err := sub.Start(); err != nil {
		e.forget(sub.ID)
		return nil, err
	}

	return sub, nil
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	delete(e.subs, id)
	e.mu.Unlock()
}

// Query opens a subscription that closes on timeout or once every relay has
// sent its stored events, and returns the accepted events.
func (e *Engine) Query(ctx context.Context, relays []string, filters []event.Filter, opts subscription.Options) ([]*event.Event, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = e.timeout()
	}

	sub, err := e.Subscribe(relays, filters, opts, nil)
	if err != nil {
		return nil, err
	}

	events, err := sub.Wait(ctx)
	if err != nil {
		sub.Close()
		return nil, err
	}
	return events, nil
}

// SubscribePersistent runs a live feed until ctx is done or the engine shuts
// down, reopening the request after every epoch with Since advanced to now.
// A zero opts.Timeout takes the configured default.
func (e *Engine) SubscribePersistent(ctx context.Context, relays []string, filters []event.Filter, opts subscription.Options) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return ErrShutdown
	}
	e.feeds.Add(1)
	e.mu.Unlock()
	defer e.feeds.Done()

	if opts.Timeout <= 0 {
		opts.Timeout = e.timeout()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	logger := e.logger.WithField("filters", len(filters))
	logger.Debug("Persistent subscription started")

	err := subscription.Persistent(ctx, func(current []event.Filter) (*subscription.Subscription, error) {
		return e.Subscribe(relays, current, opts, nil)
	}, filters, e.conf.Clock)

	logger.WithError(err).Debug("Persistent subscription stopped")

	return err
}

func (e *Engine) timeout() time.Duration {
	if e.conf.Timeout > 0 {
		return e.conf.Timeout
	}
	return DefaultTimeout
}

// Subscriptions returns the ids of the open subscriptions, sorted.
func (e *Engine) Subscriptions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetStats returns counters describing the engine.
func (e *Engine) GetStats() map[string]string {
	e.mu.Lock()
	open := len(e.subs)
	opened := e.opened
	start := e.start
	e.mu.Unlock()

	elapsed := e.conf.Clock.Now().Sub(start)

	accepted := e.counter("relayfold_events_accepted_total")

	var perSecond float64
	if elapsed > 0 {
		perSecond = accepted / elapsed.Seconds()
	}

	channels := e.Channels().Snapshot()
	messages := 0
	for _, c := range channels {
		messages += c.Messages.Len()
	}

	return map[string]string{
		"open_subscriptions": strconv.Itoa(open),
		"subscriptions":      strconv.Itoa(opened),
		"events_received":    strconv.FormatFloat(e.counter("relayfold_events_received_total"), 'f', 0, 64),
		"events_accepted":    strconv.FormatFloat(accepted, 'f', 0, 64),
		"events_rejected":    strconv.FormatFloat(e.counter("relayfold_events_rejected_total"), 'f', 0, 64),
		"events_per_second":  strconv.FormatFloat(perSecond, 'f', 2, 64),
		"channels":           strconv.Itoa(len(channels)),
		"messages":           strconv.Itoa(messages),
		"relays":             strconv.Itoa(len(e.conf.Relays)),
		"pubkey":             e.conf.Session.PubKey,
		"uptime":             elapsed.Truncate(time.Second).String(),
	}
}

// counter sums every series of the named counter family.
func (e *Engine) counter(name string) float64 {
	families, err := e.prom.Gather()
	if err != nil {
		e.logger.WithError(err).Debug("Gathering metrics")
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// Shutdown stops the persistent feeds, closes the open subscriptions, waits
// for asynchronous projections and stops the loop. It must not be called
// from a projection handler or a listener.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return
	}
	e.shutdown = true
	e.mu.Unlock()

	e.logger.Debug("Shutting down engine")

	// Work queued before Run still has to drain.
	e.loop.RunAsync()

	e.cancel()
	e.feeds.Wait()

	e.mu.Lock()
	subs := make([]*subscription.Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	for _, s := range subs {
		<-s.Done()
	}

	e.registry.Wait()
	e.loop.Shutdown()

	e.logger.Debug("Engine stopped")
}
