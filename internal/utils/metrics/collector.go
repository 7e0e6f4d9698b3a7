// internal/utils/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "settlement"

// Collector owns the service metrics. A nil *Collector is valid and records nothing,
// so components can be built without metrics in tests.
type Collector struct {
	verifications      *prometheus.CounterVec
	operationsBuilt    *prometheus.CounterVec
	operationsFailed   *prometheus.CounterVec
	bookkeepingFailure *prometheus.CounterVec
	eventsDropped      prometheus.Counter
	ledgerLatency      *prometheus.HistogramVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Verification outcomes by flow and result kind",
			},
			[]string{"flow", "outcome"},
		),
		operationsBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_built_total",
				Help:      "Unsigned operations prepared for clients",
			},
			[]string{"kind"},
		),
		operationsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_failed_total",
				Help:      "Operations that could not be prepared",
			},
			[]string{"kind"},
		),
		bookkeepingFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookkeeping_failures_total",
				Help:      "Best-effort bookkeeping writes that failed",
			},
			[]string{"sink"},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Bookkeeping events dropped because the bus was full",
			},
		),
		ledgerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_call_duration_seconds",
				Help:      "Ledger gateway call latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
	}

	reg.MustRegister(
		c.verifications,
		c.operationsBuilt,
		c.operationsFailed,
		c.bookkeepingFailure,
		c.eventsDropped,
		c.ledgerLatency,
		c.httpDuration,
	)
	return c
}

// RecordVerification counts one verification result. outcome is "accepted" or an error kind.
func (c *Collector) RecordVerification(flow, outcome string) {
	if c == nil {
		return
	}
	c.verifications.WithLabelValues(flow, outcome).Inc()
}

// RecordOperation counts a built or failed operation.
func (c *Collector) RecordOperation(kind string, built bool) {
	if c == nil {
		return
	}
	if built {
		c.operationsBuilt.WithLabelValues(kind).Inc()
		return
	}
	c.operationsFailed.WithLabelValues(kind).Inc()
}

// RecordBookkeepingFailure counts a swallowed bookkeeping failure.
func (c *Collector) RecordBookkeepingFailure(sink string) {
	if c == nil {
		return
	}
	c.bookkeepingFailure.WithLabelValues(sink).Inc()
}

// RecordDroppedEvent counts an event the bus could not buffer.
func (c *Collector) RecordDroppedEvent() {
	if c == nil {
		return
	}
	c.eventsDropped.Inc()
}

// RecordLedgerCall observes the latency of one ledger gateway call.
func (c *Collector) RecordLedgerCall(method string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ledgerLatency.WithLabelValues(method, status).Observe(duration.Seconds())
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(route, code string, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(route, code).Observe(duration.Seconds())
}
