package rest

import (
	"github.com/flemzord/sjobs/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics instruments remote calls by operation and outcome.
type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sjobs",
			Subsystem: "jobs_client",
			Name:      "requests_total",
			Help:      "Job service operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sjobs",
			Subsystem: "jobs_client",
			Name:      "request_duration_seconds",
			Help:      "Job service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.requests = telemetry.Register(reg, m.requests)
	m.duration = telemetry.Register(reg, m.duration)
	return m
}

func (m *clientMetrics) observe(op operation, result string, seconds float64) {
	m.requests.WithLabelValues(string(op), result).Inc()
	m.duration.WithLabelValues(string(op)).Observe(seconds)
}
