package cleanup

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's counters to Prometheus. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	filesDeleted   *prometheus.CounterVec
	deleteFailures *prometheus.CounterVec
	bytesFreed     prometheus.Counter
	cycleErrors    prometheus.Counter
	cycleDuration  *prometheus.HistogramVec
	diskUsage      prometheus.Gauge
	managedFiles   prometheus.Gauge
	sessionFiles   prometheus.Gauge
	categoryBytes  *prometheus.GaugeVec
}

// InitPrometheusMetrics creates the engine metrics and registers them on reg
// (the default registerer when reg is nil).
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_cycles_total",
				Help:      "Total number of cleanup runs by mode",
			},
			[]string{"mode"},
		),
		filesDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_files_deleted_total",
				Help:      "Files deleted by reason",
			},
			[]string{"reason"},
		),
		deleteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_delete_failures_total",
				Help:      "Files that could not be deleted, by reason",
			},
			[]string{"reason"},
		),
		bytesFreed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_bytes_freed_total",
				Help:      "Bytes reclaimed by deletions",
			},
		),
		cycleErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_cycle_errors_total",
				Help:      "Monitor cycles that failed",
			},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cleanup_cycle_duration_seconds",
				Help:      "Duration of cleanup runs",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
		diskUsage: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "disk_usage_bytes",
				Help:      "Bytes used by all managed categories",
			},
		),
		managedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "managed_files",
				Help:      "Regular files in managed categories",
			},
		),
		sessionFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_files",
				Help:      "Files registered in the current session",
			},
		),
		categoryBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "category_bytes",
				Help:      "Bytes used per category",
			},
			[]string{"category"},
		),
	}

	reg.MustRegister(
		m.cycles,
		m.filesDeleted,
		m.deleteFailures,
		m.bytesFreed,
		m.cycleErrors,
		m.cycleDuration,
		m.diskUsage,
		m.managedFiles,
		m.sessionFiles,
		m.categoryBytes,
	)

	return m
}

// RecordRun records a finished executor run.
func (m *Metrics) RecordRun(res Result, duration time.Duration) {
	if m == nil {
		return
	}
	mode := string(res.Mode)
	m.cycles.WithLabelValues(mode).Inc()
	m.cycleDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if res.DryRun {
		return
	}
	for _, d := range res.Deleted {
		m.filesDeleted.WithLabelValues(string(d.Reason)).Inc()
	}
	for _, f := range res.Failed {
		m.deleteFailures.WithLabelValues(string(f.Reason)).Inc()
	}
	m.bytesFreed.Add(float64(res.BytesFreed))
}

// RecordCycleError counts a failed monitor cycle.
func (m *Metrics) RecordCycleError() {
	if m == nil {
		return
	}
	m.cycleErrors.Inc()
}

// SetUsage publishes the latest sample.
func (m *Metrics) SetUsage(u Usage) {
	if m == nil {
		return
	}
	m.diskUsage.Set(float64(u.TotalBytes))
	m.managedFiles.Set(float64(u.TotalFiles))
	for name, cu := range u.Categories {
		m.categoryBytes.WithLabelValues(name).Set(float64(cu.Bytes))
	}
}

// SetSessionFiles publishes the number of tracked session files.
func (m *Metrics) SetSessionFiles(n int) {
	if m == nil {
		return
	}
	m.sessionFiles.Set(float64(n))
}
