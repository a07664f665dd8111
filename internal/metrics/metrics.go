// Package metrics provides Prometheus metrics for the navigator server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextnav_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nextnav_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Tree build metrics
	treeBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextnav_tree_builds_total",
			Help: "Total number of directory tree builds",
		},
		[]string{"status"},
	)

	treeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nextnav_tree_build_duration_seconds",
			Help:    "Time to walk a directory and classify its files",
			Buckets: prometheus.DefBuckets,
		},
	)

	treeDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextnav_tree_directories",
			Help: "Number of directory nodes in the last successful build",
		},
	)

	filesScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextnav_files_scanned_total",
			Help: "Files checked for a client directive",
		},
		[]string{"result"},
	)

	// Mutation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextnav_operations_total",
			Help: "Navigator operations by name and outcome",
		},
		[]string{"operation", "status"},
	)

	// Session metrics
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextnav_active_sessions",
			Help: "Number of sessions held in the session store",
		},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextnav_websocket_connections",
			Help: "Number of open webview connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTreeBuild records one tree build. directories is ignored on failure.
func RecordTreeBuild(duration time.Duration, directories int, success bool) {
	treeBuildDuration.Observe(duration.Seconds())
	if !success {
		treeBuildsTotal.WithLabelValues("error").Inc()
		return
	}
	treeBuildsTotal.WithLabelValues("success").Inc()
	treeDirectories.Set(float64(directories))
}

// RecordFileScanned records the directive check of one qualifying file.
func RecordFileScanned(client bool) {
	result := "server"
	if client {
		result = "client"
	}
	filesScannedTotal.WithLabelValues(result).Inc()
}

// RecordOperation records a navigator operation.
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
}

// SetActiveSessions sets the number of stored sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// WebSocketOpened and WebSocketClosed track live webview connections.
func WebSocketOpened() {
	wsConnections.Inc()
}

func WebSocketClosed() {
	wsConnections.Dec()
}
