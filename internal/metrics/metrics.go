package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics exposes Prometheus collectors for the refresh pipeline.
// Aggregation failures are swallowed relative to the triggering mutation, so
// these counters are how operators detect a stuck or failing refresh.
type PipelineMetrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *PipelineMetrics
)

// NewPipelineMetrics registers the refresh metrics against the provided
// registerer. When the registerer is nil the default Prometheus registerer is
// used.
func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildPipelineMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildPipelineMetrics(registerer)
}

func buildPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimbus_metrics_refresh_runs_total",
			Help: "Refresh runs by trigger and status.",
		}, []string{"trigger", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimbus_metrics_refresh_failures_total",
			Help: "Refresh failures by trigger.",
		}, []string{"trigger"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nimbus_metrics_refresh_duration_seconds",
			Help:    "Refresh run duration by trigger.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration)
	return m
}

// Tracker provides lifecycle instrumentation for a single refresh run.
type Tracker struct {
	metrics *PipelineMetrics
	trigger string
	start   time.Time
}

// Track spawns a tracker for the given trigger name.
func (m *PipelineMetrics) Track(trigger string) *Tracker {
	if m == nil {
		return &Tracker{trigger: trigger, start: time.Now()}
	}
	return &Tracker{metrics: m, trigger: trigger, start: time.Now()}
}

// End finalises the tracker, recording duration and success/failure counts,
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.trigger == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.trigger).Inc()
	}
	t.metrics.runs.WithLabelValues(t.trigger, status).Inc()
	t.metrics.duration.WithLabelValues(t.trigger).Observe(time.Since(t.start).Seconds())
	return err
}
