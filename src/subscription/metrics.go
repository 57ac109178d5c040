package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relayfold"

// Reasons an event is rejected, used as the reason label.
const (
	reasonSignature = "signature"
	reasonFilter    = "filter"
)

// Metrics counts what subscriptions receive. A nil *Metrics records nothing.
type Metrics struct {
	Received   prometheus.Counter
	Duplicates prometheus.Counter
	Rejected   *prometheus.CounterVec
	Accepted   prometheus.Counter
	EOSE       prometheus.Counter
	Open       prometheus.Gauge
	Closed     *prometheus.CounterVec
}

// NewMetrics creates the subscription metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Received: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Events delivered by relays, duplicates included",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_duplicate_total",
			Help:      "Events already seen by the same subscription",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Events dropped by verification or filter re-check",
		}, []string{"reason"}),
		Accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_accepted_total",
			Help:      "Events accepted and dispatched",
		}),
		EOSE: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eose_received_total",
			Help:      "End of stored events signals received",
		}),
		Open: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_open",
			Help:      "Subscriptions currently open",
		}),
		Closed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_closed_total",
			Help:      "Closed subscriptions by cause",
		}, []string{"cause"}),
	}
}

func (m *Metrics) received() {
	if m != nil {
		m.Received.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

func (m *Metrics) rejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) accepted() {
	if m != nil {
		m.Accepted.Inc()
	}
}

func (m *Metrics) eose() {
	if m != nil {
		m.EOSE.Inc()
	}
}

func (m *Metrics) opened() {
	if m != nil {
		m.Open.Inc()
	}
}

func (m *Metrics) closed(cause string) {
	if m != nil {
		m.Open.Dec()
		m.Closed.WithLabelValues(cause).Inc()
	}
}
