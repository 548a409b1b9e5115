package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Lifecycle metrics
	MeetingsCreated    prometheus.Counter
	UpdatesSubmitted   prometheus.Counter
	MeetingsClosed     prometheus.Counter
	ValidationFailures prometheus.Counter

	// Report metrics
	RenderDuration prometheus.Histogram
	RenderErrors   *prometheus.CounterVec

	// Archival metrics
	ArchiveWrites *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		MeetingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "standup_meetings_created_total",
			Help: "Total number of meetings created",
		}),

		UpdatesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "standup_updates_submitted_total",
			Help: "Total number of status updates accepted",
		}),

		MeetingsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "standup_meetings_closed_total",
			Help: "Total number of meetings closed",
		}),

		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "standup_validation_failures_total",
			Help: "Total number of update submissions rejected by validation",
		}),

		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "standup_report_render_duration_seconds",
			Help:    "Report render latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		RenderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "standup_report_render_errors_total",
			Help: "Total number of report render failures by kind",
		}, []string{"kind"}), // "missing_template" or "data_binding"

		ArchiveWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "standup_archive_writes_total",
			Help: "Total number of archival writes by artifact and outcome",
		}, []string{"artifact", "outcome"}), // artifact: "snapshot"/"report", outcome: "ok"/"error"/"skipped"
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
