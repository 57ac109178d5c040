package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/mosaicnetworks/relayfold/src/event"
	"github.com/sirupsen/logrus"
)

type entry struct {
	name  string
	fn    Handler
	async AsyncHandler
}

// Registry dispatches events to the handlers registered for their kind. Kinds
// with no handlers are ignored.
type Registry struct {
	mu       sync.RWMutex
	handlers map[event.Kind][]entry

	ctx       context.Context
	scheduler Scheduler
	pending   sync.WaitGroup

	logger *logrus.Entry
}

// NewRegistry creates an empty Registry. Continuations of asynchronous
// handlers are posted to scheduler; ctx bounds their Start calls.
func NewRegistry(ctx context.Context, scheduler Scheduler, logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.New().WithField("prefix", "projection")
	}
	return &Registry{
		handlers:  make(map[event.Kind][]entry),
		ctx:       ctx,
		scheduler: scheduler,
		logger:    logger,
	}
}

// AddHandler appends h to the handlers of kind.
func (r *Registry) AddHandler(kind event.Kind, h Handler) {
	r.add(kind, entry{name: fmt.Sprintf("kind %d handler", kind), fn: h})
}

// AddAsyncHandler appends an asynchronous handler to the handlers of kind.
func (r *Registry) AddAsyncHandler(kind event.Kind, h AsyncHandler) {
	r.add(kind, entry{name: fmt.Sprintf("kind %d async handler", kind), async: h})
}

func (r *Registry) add(kind event.Kind, e entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.name = fmt.Sprintf("%s #%d", e.name, len(r.handlers[kind]))
	r.handlers[kind] = append(r.handlers[kind], e)
}

// Kinds returns the kinds that have at least one handler, in increasing
// order.
func (r *Registry) Kinds() []event.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]event.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Push runs every handler registered for e.Kind, in registration order. It
// must be called from the scheduler's goroutine.
func (r *Registry) Push(e *event.Event) {
	r.mu.RLock()
	entries := r.handlers[e.Kind]
	r.mu.RUnlock()

	for _, h := range entries {
		if h.async != nil {
			r.start(h, e)
			continue
		}

		err := common.RunSafely(h.name, func() error {
			return h.fn.Apply(e)
		})
		if err != nil {
			r.logError(err, e)
		}
	}
}

func (r *Registry) start(h entry, e *event.Event) {
	r.pending.Add(1)

	go func() {
		var cont Continuation

		err := common.RunSafely(h.name, func() error {
			var err error
			cont, err = h.async.Start(r.ctx, e)
			return err
		})
		if err != nil || cont == nil {
			if err != nil {
				r.logError(err, e)
			}
			r.pending.Done()
			return
		}

		submitted := r.scheduler.Submit(func() {
			defer r.pending.Done()

			if err := common.RunSafely(h.name, func() error { return cont() }); err != nil {
				r.logError(err, e)
			}
		})
		if !submitted {
			r.logger.WithField("id", e.ID).Debug("Loop closed, dropping continuation")
			r.pending.Done()
		}
	}()
}

func (r *Registry) logError(err error, e *event.Event) {
	r.logger.WithError(err).WithFields(logrus.Fields{
		"id":   e.ID,
		"kind": int(e.Kind),
	}).Warn("Projection handler failed")
}

// Wait blocks until every asynchronous handler started so far has finished,
// continuation included. It must not be called from the scheduler's
// goroutine.
func (r *Registry) Wait() {
	r.pending.Wait()
}
