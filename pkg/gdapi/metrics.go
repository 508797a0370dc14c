package gdapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Schema sources reported by MetricsCollector.
const (
	SchemaSourceFile    = "file"
	SchemaSourceCache   = "cache"
	SchemaSourceNetwork = "network"
)

// MetricsCollector provides Prometheus metrics for requests, schema
// bootstraps and classification. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec

	schemaLoadsTotal   *prometheus.CounterVec
	schemaTypes        prometheus.Gauge
	classifiedTotal    *prometheus.CounterVec
	signaledConditions *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdapi_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gdapi_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gdapi_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdapi_transport_errors_total",
				Help: "Total number of requests that failed before a response arrived",
			},
			[]string{"method"},
		),
		schemaLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdapi_schema_loads_total",
				Help: "Schema documents obtained, by source",
			},
			[]string{"source"},
		),
		schemaTypes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gdapi_schema_types",
				Help: "Number of types in the most recently loaded schema",
			},
		),
		classifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdapi_classified_values_total",
				Help: "Objects classified, by resolved class",
			},
			[]string{"class"},
		),
		signaledConditions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdapi_signaled_conditions_total",
				Help: "Conditions passed through the error signal, by status",
			},
			[]string{"status"},
		),
	}
}

func (m *MetricsCollector) requestStarted(method string) {
	if m == nil {
		return
	}

	m.requestsInFlight.WithLabelValues(method).Inc()
}

func (m *MetricsCollector) requestFinished(method string, status int, err error, latency time.Duration) {
	if m == nil {
		return
	}

	m.requestsInFlight.WithLabelValues(method).Dec()

	if err != nil {
		m.errorsTotal.WithLabelValues(method).Inc()

		return
	}

	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, code).Inc()
	m.requestDuration.WithLabelValues(method, code).Observe(latency.Seconds())
}

// RecordSchemaLoad counts a schema document obtained from source.
func (m *MetricsCollector) RecordSchemaLoad(source string, types int) {
	if m == nil {
		return
	}

	m.schemaLoadsTotal.WithLabelValues(source).Inc()

	if types >= 0 {
		m.schemaTypes.Set(float64(types))
	}
}

// RecordClassified counts one object constructed as class.
func (m *MetricsCollector) RecordClassified(class string) {
	if m == nil {
		return
	}

	m.classifiedTotal.WithLabelValues(class).Inc()
}

// RecordSignal counts one signaled condition.
func (m *MetricsCollector) RecordSignal(status any) {
	if m == nil {
		return
	}

	label := "unknown"

	switch s := status.(type) {
	case int:
		label = strconv.Itoa(s)
	case string:
		label = s
	}

	m.signaledConditions.WithLabelValues(label).Inc()
}
