// Package metrics provides Prometheus metrics for PairPad.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pairpad"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Sync metrics
var (
	// FileWritesTotal counts file records written, by project.
	FileWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "file_writes_total",
			Help:      "Total file records written",
		},
		[]string{"project"},
	)

	// FileDeletesTotal counts file records deleted, by project.
	FileDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "file_deletes_total",
			Help:      "Total file records deleted",
		},
		[]string{"project"},
	)

	// SnapshotsPublishedTotal counts change-feed snapshots broadcast.
	SnapshotsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "snapshots_published_total",
			Help:      "Total change-feed snapshots broadcast to subscribers",
		},
	)

	// WatchStreamsActive tracks open SSE watch connections.
	WatchStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "watch_streams_active",
			Help:      "Number of open SSE watch connections",
		},
	)

	// HeartbeatsTotal counts presence heartbeats received.
	HeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "heartbeats_total",
			Help:      "Total presence heartbeats received",
		},
	)
)
