// Package metrics provides Prometheus metrics for catalogtree
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/tree"
)

// Metrics holds all Prometheus metrics for catalogtree
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Row-source metrics
	DbOperationsTotal   *prometheus.CounterVec
	DbOperationDuration *prometheus.HistogramVec
	DbRowsReturned      *prometheus.HistogramVec

	// Tree metrics
	TreePagesTotal        *prometheus.CounterVec
	TreeRootsReturned     prometheus.Histogram
	TreeRecordsDropped    *prometheus.CounterVec
	TraversalRoundsTotal  *prometheus.CounterVec
	TraversalFrontierSize *prometheus.HistogramVec

	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogtree_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogtree_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogtree_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.DbOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogtree_db_operations_total",
			Help: "Total number of row-source statements",
		},
		[]string{"operation", "status"},
	)

	m.DbOperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogtree_db_operation_duration_seconds",
			Help:    "Duration of row-source statements in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.DbRowsReturned = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogtree_db_rows_returned",
			Help:    "Rows returned per row-source statement",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	m.TreePagesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogtree_tree_pages_total",
			Help: "Total number of tree pages served",
		},
		[]string{"operation", "search"},
	)

	m.TreeRootsReturned = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalogtree_tree_roots_returned",
			Help:    "Root nodes returned per page",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.TreeRecordsDropped = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogtree_tree_records_dropped_total",
			Help: "Records dropped during forest assembly",
		},
		[]string{"reason"},
	)

	m.TraversalRoundsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogtree_traversal_rounds_total",
			Help: "Hierarchy traversal rounds completed",
		},
		[]string{"direction"},
	)

	m.TraversalFrontierSize = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogtree_traversal_frontier_size",
			Help:    "Ids queried per traversal round",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"direction"},
	)

	m.ServerUptimeSeconds = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogtree_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// RunUptime updates the uptime gauge until done is closed
func (m *Metrics) RunUptime(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		}
	}
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveQuery records one row-source statement. It matches sqlsource.QueryHook.
func (m *Metrics) ObserveQuery(operation string, duration time.Duration, rows int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DbOperationsTotal.WithLabelValues(operation, status).Inc()
	m.DbOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.DbRowsReturned.WithLabelValues(operation).Observe(float64(rows))
}

// RecordPage records one served page
func (m *Metrics) RecordPage(operation string, search bool, roots int) {
	label := "false"
	if search {
		label = "true"
	}
	m.TreePagesTotal.WithLabelValues(operation, label).Inc()
	m.TreeRootsReturned.Observe(float64(roots))
}

// Observe counts records dropped during assembly (tree.Observer).
func (m *Metrics) Observe(e tree.Event) {
	m.TreeRecordsDropped.WithLabelValues(e.Kind.String()).Inc()
}

// RoundCompleted counts traversal rounds (hierarchy.RoundObserver).
func (m *Metrics) RoundCompleted(r hierarchy.Round) {
	m.TraversalRoundsTotal.WithLabelValues(string(r.Direction)).Inc()
	m.TraversalFrontierSize.WithLabelValues(string(r.Direction)).Observe(float64(r.Frontier))
}
