// Package metrics holds the Prometheus collectors exported by the dev server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "assetserve"

const (
	// ReasonReceiverGone is recorded when the HTTP side went away before the task answered
	ReasonReceiverGone = "receiver_gone"
	// ReasonAlreadySent is recorded when a task tried to answer twice
	ReasonAlreadySent = "already_sent"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	taskRestarts    prometheus.Counter
	tasksInFlight   prometheus.Gauge
	sendFailures    *prometheus.CounterVec
	invalidations   prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed requests by response status.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from request arrival to response delivery.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
		}),
		taskRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "task_restarts_total",
			Help:      "Task executions torn down because an input was invalidated.",
		}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tasks_in_flight",
			Help:      "Submitted tasks that have not settled yet.",
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_send_failures_total",
			Help:      "Responses that could not be handed back to the waiting request.",
		}, []string{"reason"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "invalidations_total",
			Help:      "Invalidation requests applied to the engine.",
		}),
	}

	m.Registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.taskRestarts,
		m.tasksInFlight,
		m.sendFailures,
		m.invalidations,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRequest records one completed request
func (m *Metrics) ObserveRequest(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(elapsed.Seconds())
}

// TaskRestarted records one task restart
func (m *Metrics) TaskRestarted() {
	if m == nil {
		return
	}
	m.taskRestarts.Inc()
}

// TaskStarted and TaskSettled track the in-flight gauge
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

func (m *Metrics) TaskSettled() {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
}

// SendFailed records a completion that could not be delivered
func (m *Metrics) SendFailed(reason string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(reason).Inc()
}

// Invalidated records an applied invalidation
func (m *Metrics) Invalidated() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}
