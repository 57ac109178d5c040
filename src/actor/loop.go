// Package actor provides the single-writer task that owns subscription and
// projection state.
package actor

import (
	"sync"

	"github.com/mosaicnetworks/relayfold/src/common"
	"github.com/sirupsen/logrus"
)

// Loop runs submitted functions one at a time, in submission order, on a
// single goroutine. Its mailbox is unbounded so that transport callbacks
// never block on a busy loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wakeCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
	running bool

	logger *logrus.Entry
}

// NewLoop creates a Loop. Run must be called for submitted work to execute.
func NewLoop(logger *logrus.Entry) *Loop {
	if logger == nil {
		logger = logrus.New().WithField("prefix", "loop")
	}
	return &Loop{
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

// RunAsync calls Run in its own goroutine.
func (l *Loop) RunAsync() {
	if l.markRunning() {
		go l.run()
	}
}

// Run executes queued work until Shutdown is called and the mailbox is
// drained.
func (l *Loop) Run() {
	if l.markRunning() {
		l.run()
	}
}

func (l *Loop) markRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return false
	}
	l.running = true
	return true
}

func (l *Loop) run() {
	defer close(l.doneCh)

	for {
		batch, stopped := l.take()
		for _, fn := range batch {
			l.exec(fn)
		}
		if stopped && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-l.wakeCh
		}
	}
}

// take empties the mailbox.
func (l *Loop) take() ([]func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.queue
	l.queue = nil
	return batch, l.stopped
}

func (l *Loop) exec(fn func()) {
	err := common.RunSafely("loop task", func() error {
		fn()
		return nil
	})
	if err != nil {
		l.logger.WithError(err).Error("Task failed")
	}
}

// Submit queues fn. It returns false if the loop has been shut down, in which
// case fn will never run.
func (l *Loop) Submit(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.wake()
	return true
}

func (l *Loop) wake() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// Flush blocks until everything submitted before the call has run. It
// returns immediately if the loop is shut down, and blocks forever if the
// loop was never started.
func (l *Loop) Flush() {
	done := make(chan struct{})
	if !l.Submit(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-l.doneCh:
	}
}

// Shutdown stops accepting work, lets the queued work finish and waits for
// Run to return. It is safe to call more than once, but not from inside a
// task.
func (l *Loop) Shutdown() {
	l.mu.Lock()
	already := l.stopped
	l.stopped = true
	running := l.running
	l.mu.Unlock()

	if already {
		if running {
			<-l.doneCh
		}
		return
	}

	l.wake()

	if running {
		<-l.doneCh
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}
