package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultProbeSchedule runs the jobs service probe every minute.
const DefaultProbeSchedule = "*/1 * * * *"

// ProbeJobName is the scheduler name of the jobs service probe.
const ProbeJobName = "jobs_service_probe"

// defaultProbeTimeout bounds a single probe when Timeout is unset.
const defaultProbeTimeout = 15 * time.Second

var _ Job = (*ServiceProbeJob)(nil)

// ServiceProbeJob checks the remote jobs service and records the outcome
// in Status and on the probe metrics.
type ServiceProbeJob struct {
	Checker      jobs.HealthChecker
	Status       *jobs.ProbeStatus
	Metrics      *ProbeMetrics
	Logger       *slog.Logger
	ScheduleExpr string        // empty = DefaultProbeSchedule
	Timeout      time.Duration // empty = 15s
	Now          func() time.Time
}

// Name implements Job.
func (j *ServiceProbeJob) Name() string { return ProbeJobName }

// Schedule implements Job.
func (j *ServiceProbeJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultProbeSchedule
}

// Run probes the service once. A failed probe is recorded, not returned:
// only cancellation of ctx surfaces as an error.
func (j *ServiceProbeJob) Run(ctx context.Context) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := now()
	err := j.Checker.HealthCheck(probeCtx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	was := j.Status.Report()
	j.Status.Record(err, start)
	j.Metrics.observe(err, now().Sub(start))

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case err != nil && was.Available:
		logger.Warn("jobs service unavailable", "error", err)
	case err == nil && was.Checked && !was.Available:
		logger.Info("jobs service recovered")
	case err != nil:
		logger.Debug("jobs service still unavailable", "error", err)
	}
	return nil
}

// ProbeMetrics exposes the probe outcome to Prometheus.
type ProbeMetrics struct {
	up       prometheus.Gauge
	probes   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewProbeMetrics creates the probe collectors and registers them on reg.
// reg may be nil.
func NewProbeMetrics(reg prometheus.Registerer) *ProbeMetrics {
	m := &ProbeMetrics{
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sjobs",
			Subsystem: "jobs_service",
			Name:      "up",
			Help:      "1 if the last jobs service probe succeeded.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sjobs",
			Subsystem: "jobs_service",
			Name:      "probes_total",
			Help:      "Jobs service probes by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sjobs",
			Subsystem: "jobs_service",
			Name:      "probe_duration_seconds",
			Help:      "Jobs service probe latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.up = telemetry.Register(reg, m.up)
	m.probes = telemetry.Register(reg, m.probes)
	m.duration = telemetry.Register(reg, m.duration)
	return m
}

func (m *ProbeMetrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.up.Set(0)
		m.probes.WithLabelValues("failure").Inc()
		return
	}
	m.up.Set(1)
	m.probes.WithLabelValues("success").Inc()
}
