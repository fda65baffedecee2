package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	syncChanges     *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	importRows      *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sanctus_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	syncChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_sync_changes_total",
		Help: "Jumlah perubahan sinkronisasi per tabel dan hasil.",
	}, []string{"table", "outcome"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_jobs_total",
		Help: "Jumlah eksekusi job latar belakang per task dan status.",
	}, []string{"task", "status"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanctus_import_rows_total",
		Help: "Jumlah baris impor per jenis dan hasil.",
	}, []string{"kind", "outcome"})
	registry.MustRegister(requests, duration, syncChanges, jobs, importRows)
	syncChanges.WithLabelValues("none", "applied").Add(0)
	jobs.WithLabelValues("none", "success").Add(0)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		syncChanges:     syncChanges,
		jobsTotal:       jobs,
		importRows:      importRows,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSyncChange mencatat hasil satu perubahan sinkronisasi.
func (m *Metrics) ObserveSyncChange(table, outcome string) {
	if m == nil {
		return
	}
	m.syncChanges.WithLabelValues(table, outcome).Inc()
}

// ObserveJob mencatat hasil eksekusi job.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(task, status).Inc()
}

// ObserveImport mencatat jumlah baris impor yang berhasil dan gagal.
func (m *Metrics) ObserveImport(kind string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, "success").Add(float64(succeeded))
	m.importRows.WithLabelValues(kind, "error").Add(float64(failed))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
