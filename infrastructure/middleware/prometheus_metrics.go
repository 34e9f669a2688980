// Package middleware provides cross-cutting concerns for the
// engagement-scoring engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hypewave/cheermeter/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of message throughput,
// scoring outcomes, and session lifecycle for the engine.
type PrometheusMetrics struct {
	inboundMessages *prometheus.CounterVec
	droppedMessages *prometheus.CounterVec
	scoringFailures prometheus.Counter
	handleLatency   *prometheus.HistogramVec
	finalScores     prometheus.Histogram
	systemGauges    *prometheus.GaugeVec
	genericCounters *prometheus.CounterVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		inboundMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inbound_messages_total",
				Help: "Total number of inbound client messages by event and outcome.",
			},
			[]string{"event", "status"},
		),
		droppedMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_samples_dropped_total",
				Help: "Total number of streaming samples dropped by rate limiting or queue pressure.",
			},
			[]string{"stream"},
		),
		scoringFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scoring_failures_total",
				Help: "Total number of audio samples that failed scoring and were recorded as zero.",
			},
		),
		handleLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatcher_handle_duration_seconds",
				Help:    "Execution time of dispatcher handler invocations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event", "status"},
		),
		finalScores: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audio_final_score",
				Help:    "Distribution of corrected audio scores.",
				Buckets: prometheus.LinearBuckets(0, 10, 8),
			},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engine_system_state",
				Help: "Current system state values for the scoring engine.",
			},
			[]string{"metric"},
		),
		genericCounters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_operations_total",
				Help: "Total number of engine operations by name.",
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// handler latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	event, status := labels["event"], labels["status"]
	if event == "" {
		event = operation
	}
	if status == "" {
		status = "unknown"
	}
	pm.handleLatency.WithLabelValues(event, status).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "inbound_messages_total":
		pm.inboundMessages.WithLabelValues(labels["event"], labels["status"]).Add(value)
	case "inbound_messages_dropped_total":
		pm.droppedMessages.WithLabelValues("inbound").Add(value)
	case "stream_samples_dropped_total":
		stream := labels["stream"]
		if stream == "" {
			stream = "unknown"
		}
		pm.droppedMessages.WithLabelValues(stream).Add(value)
	case "scoring_failures_total":
		pm.scoringFailures.Add(value)
	default:
		pm.genericCounters.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "audio_final_score":
		pm.finalScores.Observe(value)
	default:
		pm.handleLatency.WithLabelValues(metric, "unknown").Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
