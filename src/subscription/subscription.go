package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/sirupsen/logrus"
)

// Close causes, used as the cause label.
const (
	causeClosed  = "closed"
	causeTimeout = "timeout"
	causeEOSE    = "eose"
)

// Deps are the collaborators of a Subscription. Transport and Scheduler are
// required.
type Deps struct {
	Transport Transport
	Scheduler Scheduler
	Projector Projector
	Clock     common.Clock
	Metrics   *Metrics
	Logger    *logrus.Entry
}

// Subscription is one bounded request. Its state is owned by the scheduler
// goroutine; the exported methods are safe to call from anywhere.
type Subscription struct {
	ID string

	deps    Deps
	relays  []string
	filters []event.Filter
	opts    Options

	openedAt time.Time
	closedAt time.Time

	// Loop owned.
	started  bool
	closed   bool
	seen     map[string]*event.Event
	eose     map[string]bool
	accepted []*event.Event
	executor Executor
	unsub    Unsubscriber
	timer    common.Timer

	mu        sync.Mutex
	listeners map[Topic][]Listener

	closeOnce sync.Once
	doneCh    chan struct{}
	result    []*event.Event

	logger *logrus.Entry
}

// Open validates the request and starts it. Malformed filters, an empty
// filter list or no usable relay return an *OpenError.
func Open(deps Deps, relays []string, filters []event.Filter, opts Options) (*Subscription, error) {
	s, err := Prepare(deps, relays, filters, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Prepare validates the request without starting it, so that listeners can be
// registered before the first event. Start must be called next.
func Prepare(deps Deps, relays []string, filters []event.Filter, opts Options) (*Subscription, error) {
	if deps.Transport == nil || deps.Scheduler == nil {
		return nil, errors.New("subscription needs a transport and a scheduler")
	}
	if deps.Clock == nil {
		deps.Clock = common.RealClock()
	}

	id := uuid.New().String()

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New().WithField("prefix", "subscription")
	}
	logger = logger.WithField("sub", id)

	urls := normalizeRelays(relays, logger)
	if len(urls) == 0 {
		return nil, &OpenError{Err: ErrNoRelays}
	}
	if len(filters) == 0 {
		return nil, &OpenError{Err: ErrNoFilters}
	}
	if err := event.ValidateAll(filters); err != nil {
		return nil, &OpenError{Err: err}
	}

	cloned := make([]event.Filter, len(filters))
	for i, f := range filters {
		cloned[i] = f.Clone()
	}

	return &Subscription{
		ID:        id,
		deps:      deps,
		relays:    urls,
		filters:   cloned,
		opts:      opts,
		seen:      make(map[string]*event.Event),
		eose:      make(map[string]bool),
		listeners: make(map[Topic][]Listener),
		doneCh:    make(chan struct{}),
		logger:    logger,
	}, nil
}

// normalizeRelays normalizes and deduplicates relay URLs, dropping those that
// cannot be parsed.
func normalizeRelays(relays []string, logger *logrus.Entry) []string {
	seen := make(map[string]bool)
	var res []string
	for _, r := range relays {
		url, err := common.NormalizeURL(r)
		if err != nil {
			logger.WithError(err).WithField("relay", r).Warn("Ignoring relay")
			continue
		}
		if seen[url] {
			continue
		}
		seen[url] = true
		res = append(res, url)
	}
	return res
}

// Start issues the request. It returns ErrStopped if the scheduler no longer
// accepts work.
func (s *Subscription) Start() error {
	s.openedAt = s.deps.Clock.Now()
	if !s.deps.Scheduler.Submit(s.start) {
		return ErrStopped
	}
	return nil
}

func (s *Subscription) start() {
	if s.started || s.closed {
		return
	}
	s.started = true

	s.executor = s.deps.Transport.Executor(s.relays)
	s.unsub = s.executor.Subscribe(s.filters, Callbacks{
		OnEvent: func(relay string, e *event.Event) {
			s.deps.Scheduler.Submit(func() { s.handleEvent(relay, e) })
		},
		OnEOSE: func(relay string) {
			s.deps.Scheduler.Submit(func() { s.handleEOSE(relay) })
		},
	})

	if s.opts.Timeout > 0 {
		s.timer = s.deps.Clock.AfterFunc(s.opts.Timeout, func() {
			if !s.deps.Scheduler.Submit(func() { s.close(causeTimeout) }) {
				s.close(causeTimeout)
			}
		})
	}

	s.deps.Metrics.opened()

	s.logger.WithFields(logrus.Fields{
		"relays":  s.relays,
		"filters": len(s.filters),
		"timeout": s.opts.Timeout,
	}).Debug("Subscription open")
}

// handleEvent runs on the loop for every (relay, event) pair.
func (s *Subscription) handleEvent(relay string, e *event.Event) {
	if s.closed || e == nil {
		return
	}

	s.deps.Metrics.received()

	if prev, ok := s.seen[e.ID]; ok {
		if common.IsShareableRelay(relay) {
			prev.SeenOn.Add(relay)
		}
		s.deps.Metrics.duplicate()
		return
	}

	e.SeenOn = event.NewRelaySet()
	if common.IsShareableRelay(relay) {
		e.SeenOn.Add(relay)
	}
	s.seen[e.ID] = e

	logger := s.logger.WithFields(logrus.Fields{
		"relay": relay,
		"id":    e.ID,
		"kind":  int(e.Kind),
	})

	if err := e.Verify(); err != nil {
		s.deps.Metrics.rejected(reasonSignature)
		logger.WithError(err).Warn("Dropping event")
		return
	}

	if !s.matches(e) {
		s.deps.Metrics.rejected(reasonFilter)
		logger.Warn("Dropping event that does not match the request")
		return
	}

	s.accepted = append(s.accepted, e)
	s.deps.Metrics.accepted()

	if !s.opts.SkipProjection && s.deps.Projector != nil {
		s.deps.Projector.Push(e)
	}

	s.emit(Notification{Topic: TopicEvent, Relay: relay, Event: e})
}

// matches reports whether e satisfies one of the filters. A request is the
// union of its filters.
func (s *Subscription) matches(e *event.Event) bool {
	for _, f := range s.filters {
		if f.Matches(e) {
			return true
		}
	}
	return false
}

// handleEOSE runs on the loop for every end of stored events signal.
func (s *Subscription) handleEOSE(relay string) {
	if s.closed || s.eose[relay] {
		return
	}

	s.eose[relay] = true
	s.deps.Metrics.eose()

	s.logger.WithField("relay", relay).Debug("EOSE")
	s.emit(Notification{Topic: TopicEOSE, Relay: relay})

	if s.opts.Timeout > 0 && s.allEOSE() {
		s.close(causeEOSE)
	}
}

func (s *Subscription) allEOSE() bool {
	for _, r := range s.relays {
		if !s.eose[r] {
			return false
		}
	}
	return true
}

// Close closes the subscription. It is idempotent and does not wait; use
// Done or Wait to observe completion.
func (s *Subscription) Close() {
	if !s.deps.Scheduler.Submit(func() { s.close(causeClosed) }) {
		s.close(causeClosed)
	}
}

// close marks the subscription closed, resolves its completion value,
// releases the request and notifies listeners, exactly once.
func (s *Subscription) close(cause string) {
	s.closeOnce.Do(func() {
		s.closed = true
		s.closedAt = s.deps.Clock.Now()

		if s.timer != nil {
			s.timer.Stop()
		}

		s.result = append([]*event.Event(nil), s.accepted...)

		if s.unsub != nil {
			s.unsub.Unsubscribe()
		}
		if s.executor != nil {
			s.executor.Cleanup()
		}

		if s.started {
			s.deps.Metrics.closed(cause)
		}

		s.logger.WithFields(logrus.Fields{
			"cause":    cause,
			"events":   len(s.result),
			"seen":     len(s.seen),
			"eose":     len(s.eose),
			"duration": s.closedAt.Sub(s.openedAt),
		}).Debug("Subscription closed")

		s.emit(Notification{Topic: TopicClose, Events: s.result})

		s.mu.Lock()
		s.listeners = nil
		s.mu.Unlock()

		close(s.doneCh)
	})
}

// On registers l for topic. Listeners registered after close are ignored.
func (s *Subscription) On(topic Topic, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners == nil {
		return
	}
	s.listeners[topic] = append(s.listeners[topic], l)
}

func (s *Subscription) emit(n Notification) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners[n.Topic]...)
	s.mu.Unlock()

	for _, l := range ls {
		err := common.RunSafely(n.Topic.String()+" listener", func() error {
			l(n)
			return nil
		})
		if err != nil {
			s.logger.WithError(err).Warn("Listener failed")
		}
	}
}

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.doneCh
}

// Events returns the accepted events once the subscription is closed, and
// nil before.
func (s *Subscription) Events() []*event.Event {
	select {
	case <-s.doneCh:
		return s.result
	default:
		return nil
	}
}

// Wait blocks until the subscription closes or ctx is done, and returns the
// accepted events.
func (s *Subscription) Wait(ctx context.Context) ([]*event.Event, error) {
	select {
	case <-s.doneCh:
		return s.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Relays returns the normalized relays the request was sent to.
func (s *Subscription) Relays() []string {
	return append([]string(nil), s.relays...)
}

// Filters returns a copy of the request's filters.
func (s *Subscription) Filters() []event.Filter {
	res := make([]event.Filter, len(s.filters))
	for i, f := range s.filters {
		res[i] = f.Clone()
	}
	return res
}

// OpenedAt is the time Start was called.
func (s *Subscription) OpenedAt() time.Time {
	return s.openedAt
}

// ClosedAt is the time the subscription closed. It is only meaningful once
// Done is closed.
func (s *Subscription) ClosedAt() time.Time {
	select {
	case <-s.doneCh:
		return s.closedAt
	default:
		return time.Time{}
	}
}
