// Package metrics provides Prometheus metrics for the device-admission
// daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "lvm_admit"
)

// Admission outcomes.
const (
	OutcomePass   = "pass"
	OutcomeReject = "reject"
)

// Scan job statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDropped = "dropped"
)

var (
	admissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Total number of filter admission decisions by outcome",
		},
		[]string{"outcome"},
	)

	eventDispositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_dispositions_total",
			Help:      "Total number of classified device events by class, action and disposition",
		},
		[]string{"class", "action", "disposition"},
	)

	scanActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_actions_total",
			Help:      "Total number of scan-trigger decisions by action and configured mode",
		},
		[]string{"action", "mode"},
	)

	scanJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_jobs_total",
			Help:      "Total number of executed scan jobs by status",
		},
		[]string{"status"},
	)

	scanJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_job_duration_seconds",
			Help:      "Duration of scan job invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	scanQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_queue_depth",
			Help:      "Number of deferred scan jobs waiting to run",
		},
	)

	ueventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uevents_total",
			Help:      "Total number of received kernel uevents by action",
		},
		[]string{"action"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information (always 1)",
		},
		[]string{"version", "commit", "date"},
	)
)

// RecordAdmission records one filter admission decision.
func RecordAdmission(outcome string) {
	admissionDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordDisposition records one classified device event.
func RecordDisposition(class, action, disposition string) {
	eventDispositionsTotal.WithLabelValues(class, action, disposition).Inc()
}

// RecordScanAction records one scan-trigger decision.
func RecordScanAction(action, mode string) {
	scanActionsTotal.WithLabelValues(action, mode).Inc()
}

// RecordScanJob records the outcome of one scan job invocation.
func RecordScanJob(status string, duration time.Duration) {
	scanJobsTotal.WithLabelValues(status).Inc()
	if status != StatusDropped {
		scanJobDuration.Observe(duration.Seconds())
	}
}

// SetScanQueueDepth sets the current deferred-scan queue depth.
func SetScanQueueDepth(depth int) {
	scanQueueDepth.Set(float64(depth))
}

// RecordUevent records one received kernel uevent.
func RecordUevent(action string) {
	ueventsTotal.WithLabelValues(action).Inc()
}

// SetVersionInfo publishes build information on the metrics endpoint.
func SetVersionInfo(version, commit, date string) {
	buildInfo.WithLabelValues(version, commit, date).Set(1)
}
