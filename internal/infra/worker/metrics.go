package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vuln-feed/internal/pkg/config"
)

// Refresh run outcomes.
const (
	RunSuccess = "success"
	RunPartial = "partial" // at least one source failed
	RunFailure = "failure"
	RunStale   = "stale" // superseded by a newer refresh
)

// WorkerMetrics embeds the configuration metrics and adds refresh job
// metrics:
//
//   - worker_refresh_runs_total{status}
//   - worker_refresh_duration_seconds
//   - worker_refresh_records
//   - worker_refresh_new_records_total
//   - worker_refresh_last_success_timestamp
type WorkerMetrics struct {
	*config.ConfigMetrics

	RefreshRunsTotal       *prometheus.CounterVec
	RefreshDuration        prometheus.Histogram
	RefreshRecords         prometheus.Gauge
	RefreshNewRecordsTotal prometheus.Counter
	RefreshLastSuccess     prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with reg, or with the
// default registerer when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		RefreshRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_runs_total",
			Help: "Total number of refresh runs by status",
		}, []string{"status"}),

		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_refresh_duration_seconds",
			Help:    "Duration of refresh runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		RefreshRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_records",
			Help: "Number of records in the latest published snapshot",
		}),

		RefreshNewRecordsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_refresh_new_records_total",
			Help: "Total number of records first seen by a refresh",
		}),

		RefreshLastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last refresh that published a snapshot",
		}),
	}
}

// RecordRun records one finished refresh. records is the snapshot size;
// it is ignored for failed and stale runs.
func (m *WorkerMetrics) RecordRun(status string, seconds float64, records, fresh int) {
	m.RefreshRunsTotal.WithLabelValues(status).Inc()
	m.RefreshDuration.Observe(seconds)
	if status != RunSuccess && status != RunPartial {
		return
	}
	m.RefreshRecords.Set(float64(records))
	m.RefreshNewRecordsTotal.Add(float64(fresh))
	m.RefreshLastSuccess.SetToCurrentTime()
}
