package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer receives the outcome of every tracked job run.
type Observer interface {
	ObserveJob(task string, err error)
}

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	affected *prometheus.CounterVec
	observer Observer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer, observer Observer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		m := *defaultMetrics
		m.observer = observer
		return &m
	}
	m := buildMetrics(registerer)
	m.observer = observer
	return m
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration and failures and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	if err != nil {
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	if t.metrics.observer != nil {
		t.metrics.observer.ObserveJob(t.job, err)
	}
	return err
}

// AddAffected counts rows a job changed.
func (m *Metrics) AddAffected(job string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.affected.WithLabelValues(job).Add(float64(n))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_job_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sanctus_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_job_rows_affected_total",
		Help: "Rows changed by background jobs.",
	}, []string{"job"})
	registerer.MustRegister(failures, duration, affected)
	return &Metrics{failures: failures, duration: duration, affected: affected}
}
