package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Vault operation metrics
	VaultOpsTotal   *prometheus.CounterVec
	VaultOpDuration *prometheus.HistogramVec

	// Key store client metrics
	KeyStoreRequestsTotal *prometheus.CounterVec
	KeyStoreErrorsTotal   *prometheus.CounterVec
	KeyStoreDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// sizeBuckets are histogram buckets for response sizes (in bytes)
var sizeBuckets = []float64{100, 1_000, 10_000, 100_000, 1_000_000}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		VaultOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Total number of vault operations by outcome",
			},
			[]string{"operation", "status"},
		),
		VaultOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_vault",
				Subsystem: "vault",
				Name:      "operation_duration_seconds",
				Help:      "Duration of vault operations in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "status"},
		),
		KeyStoreRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "keystore",
				Name:      "requests_total",
				Help:      "Total number of key store requests",
			},
			[]string{"operation"},
		),
		KeyStoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "keystore",
				Name:      "errors_total",
				Help:      "Total number of key store request errors",
			},
			[]string{"operation", "error_type"},
		),
		KeyStoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_vault",
				Subsystem: "keystore",
				Name:      "request_duration_seconds",
				Help:      "Duration of key store requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_vault",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "db",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_vault",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_vault",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   sizeBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "agent_vault",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_vault",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"breaker"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance, initializing it if needed.
// A nil registerer uses the default Prometheus registerer.
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		globalMetrics = NewMetrics(prometheus.NewRegistry())
	}
	return globalMetrics
}

// RecordVaultOp records one vault operation outcome
func (m *Metrics) RecordVaultOp(operation, status string, duration time.Duration) {
	m.VaultOpsTotal.WithLabelValues(operation, status).Inc()
	m.VaultOpDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordKeyStoreRequest records an outgoing key store request
func (m *Metrics) RecordKeyStoreRequest(operation string) {
	m.KeyStoreRequestsTotal.WithLabelValues(operation).Inc()
}

// RecordKeyStoreError records a failed key store request
func (m *Metrics) RecordKeyStoreError(operation, errorType string) {
	m.KeyStoreErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordKeyStoreDuration records the duration of a key store request
func (m *Metrics) RecordKeyStoreDuration(operation string, duration time.Duration) {
	m.KeyStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state gauge for a breaker
func (m *Metrics) SetCircuitBreakerState(breaker string, state int) {
	m.CircuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordCircuitBreakerTrip records a breaker transition to open
func (m *Metrics) RecordCircuitBreakerTrip(breaker string) {
	m.CircuitBreakerTrips.WithLabelValues(breaker).Inc()
}
