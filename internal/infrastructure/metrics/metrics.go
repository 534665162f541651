package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for processed messages.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeUnknown   = "unknown_topic"
)

// Metrics holds the collectors recorded by the ingest pipeline.
type Metrics struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	parseErrors   *prometheus.CounterVec
	publishErrors prometheus.Counter
	datapoints    prometheus.Gauge
	lastValue     *prometheus.GaugeVec
	httpRequests  *prometheus.HistogramVec
}

// New creates a Metrics instance with a private registry.
//
// Go runtime and process collectors are registered alongside the
// application collectors.
//
// Parameters:
//   - namespace: Metric name prefix (e.g., "homio")
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound state messages by source and outcome",
		}, []string{"source", "outcome"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Payloads that could not be parsed into a value",
		}, []string{"datapoint"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Canonical state messages that failed to publish",
		}),
		datapoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datapoints",
			Help:      "Datapoints currently holding a value",
		}),
		lastValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datapoint_value",
			Help:      "Last numeric value of each datapoint",
		}, []string{"datapoint", "kind"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route, method and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.parseErrors,
		m.publishErrors,
		m.datapoints,
		m.lastValue,
		m.httpRequests,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving m in the exposition format.
// A nil receiver serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          m.registry,
	})
}

// MessageProcessed counts one inbound message from source with the given
// outcome (one of the Outcome constants).
func (m *Metrics) MessageProcessed(source, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(source, outcome).Inc()
}

// ParseError counts a payload for datapointID that was rejected.
func (m *Metrics) ParseError(datapointID string) {
	if m == nil {
		return
	}
	m.parseErrors.WithLabelValues(datapointID).Inc()
}

// PublishError counts a failed canonical publish.
func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

// SetDatapoints records how many datapoints hold a value.
func (m *Metrics) SetDatapoints(n int) {
	if m == nil {
		return
	}
	m.datapoints.Set(float64(n))
}

// ObserveValue records the numeric value of datapointID.
func (m *Metrics) ObserveValue(datapointID, kind string, v float64) {
	if m == nil {
		return
	}
	m.lastValue.WithLabelValues(datapointID, kind).Set(v)
}

// ObserveHTTP records one API request. route is the matched route pattern,
// not the raw path, so label cardinality stays bounded.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
