package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric naming.
type Config struct {
	// Namespace prefixes all metric names (default "polaris").
	Namespace string
}

// SerializationMetrics tracks policy encode and decode activity.
//
// Metrics:
//   - polaris_serialize_total: Serializations by format and outcome
//   - polaris_serialize_bytes_total: Bytes produced by format
//   - polaris_serialize_duration_seconds: Serialization duration by format
//   - polaris_parse_total: Parses by format and outcome
//   - polaris_parse_duration_seconds: Parse duration by format
//   - polaris_parse_errors_total: Parse failures by format
type SerializationMetrics struct {
	serializeTotal    *prometheus.CounterVec
	serializeBytes    *prometheus.CounterVec
	serializeDuration *prometheus.HistogramVec
	parseTotal        *prometheus.CounterVec
	parseDuration     *prometheus.HistogramVec
	parseErrors       *prometheus.CounterVec
}

// NewSerializationMetrics creates and registers serialization metrics
// with the provided registry.
func NewSerializationMetrics(cfg Config, registry *prometheus.Registry) *SerializationMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "polaris"
	}

	sm := &SerializationMetrics{
		serializeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "serialize_total",
				Help:      "Total number of policy serializations",
			},
			[]string{"format", "outcome"},
		),

		serializeBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "serialize_bytes_total",
				Help:      "Total bytes produced by policy serializations",
			},
			[]string{"format"},
		),

		serializeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "serialize_duration_seconds",
				Help:      "Duration of policy serialization in seconds",
				// Serializing a policy tree should take well under 10ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"format"},
		),

		parseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "parse_total",
				Help:      "Total number of policy document parses",
			},
			[]string{"format", "outcome"},
		),

		parseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "parse_duration_seconds",
				Help:      "Duration of policy document parsing in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"format"},
		),

		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of policy parse failures",
			},
			[]string{"format"},
		),
	}

	registry.MustRegister(
		sm.serializeTotal,
		sm.serializeBytes,
		sm.serializeDuration,
		sm.parseTotal,
		sm.parseDuration,
		sm.parseErrors,
	)

	return sm
}

// RecordSerialize records one serialization attempt and the bytes it
// produced.
func (sm *SerializationMetrics) RecordSerialize(format string, bytes int, err error, duration time.Duration) {
	sm.serializeTotal.WithLabelValues(format, outcome(err)).Inc()
	sm.serializeBytes.WithLabelValues(format).Add(float64(bytes))
	sm.serializeDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordParse records one parse attempt.
func (sm *SerializationMetrics) RecordParse(format string, err error, duration time.Duration) {
	sm.parseTotal.WithLabelValues(format, outcome(err)).Inc()
	sm.parseDuration.WithLabelValues(format).Observe(duration.Seconds())
	if err != nil {
		sm.parseErrors.WithLabelValues(format).Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StoreMetrics tracks snapshot store activity.
//
// Metrics:
//   - polaris_store_operations_total: Store operations by op and outcome
//   - polaris_store_operation_duration_seconds: Store operation duration
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics with the
// provided registry.
func NewStoreMetrics(cfg Config, registry *prometheus.Registry) *StoreMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "polaris"
	}

	sm := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "store_operations_total",
				Help:      "Total number of snapshot store operations",
			},
			[]string{"op", "outcome"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of snapshot store operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(sm.operationsTotal, sm.operationDuration)
	return sm
}

// RecordOperation records one store operation ("save", "load", "list",
// "delete").
func (sm *StoreMetrics) RecordOperation(op string, err error, duration time.Duration) {
	sm.operationsTotal.WithLabelValues(op, outcome(err)).Inc()
	sm.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}
