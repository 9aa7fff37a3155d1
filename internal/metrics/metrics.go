package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage metrics
var (
	// StageRunsTotal tracks workflow stage runs by outcome
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "stage_runs_total",
			Help:      "Total number of workflow stage runs by result",
		},
		[]string{"stage", "result"},
	)

	// StageDuration tracks stage duration
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanctl",
			Name:      "stage_duration_seconds",
			Help:      "Workflow stage duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// StageFailuresTotal tracks failures by error kind
	StageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "stage_failures_total",
			Help:      "Total number of stage failures by error kind",
		},
		[]string{"stage", "kind"},
	)

	// StageLastSuccess is the unix time of the last successful run per stage
	StageLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "scanctl",
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stage run",
		},
		[]string{"stage"},
	)
)

// Remote platform metrics
var (
	// RemoteRequestsTotal tracks REST calls by resource, method and status class
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "remote_requests_total",
			Help:      "Total number of platform REST requests",
		},
		[]string{"resource", "method", "code"},
	)

	// RemoteRequestDuration tracks REST call latency
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanctl",
			Name:      "remote_request_duration_seconds",
			Help:      "Platform REST request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"resource", "method"},
	)

	// ReportBytesTotal tracks downloaded report archive bytes
	ReportBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "report_bytes_total",
			Help:      "Total bytes of report archives downloaded",
		},
	)
)

// Settle metrics
var (
	// SettleAttemptsTotal tracks condition checks per settle point
	SettleAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "settle_attempts_total",
			Help:      "Total number of settle condition checks",
		},
		[]string{"condition"},
	)

	// SettleTimeoutsTotal tracks settle polls that gave up
	SettleTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanctl",
			Name:      "settle_timeouts_total",
			Help:      "Total number of settle polls that exhausted their budget",
		},
		[]string{"condition"},
	)
)

// WriteTextfile writes every registered metric to path in the text exposition
// format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
