// Package metrics holds the Prometheus collectors of the service.
// Every Observe method is safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the reconciliation service
type Metrics struct {
	// Reconciliation metrics
	ReconciliationsTotal   *prometheus.CounterVec
	ReconciliationDuration *prometheus.HistogramVec
	UnenrolledUsers        *prometheus.GaugeVec
	NormalizationDropped   *prometheus.CounterVec
	FilteredRows           *prometheus.CounterVec

	// Source metrics
	ExternalFetchDuration *prometheus.HistogramVec

	// Enrollment cache metrics
	CacheFills *prometheus.CounterVec
	CacheReads *prometheus.CounterVec
	CacheRows  prometheus.Gauge

	// HTTP API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReconciliationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_reconciliations_total",
			Help: "Total number of reconciliation requests by outcome",
		}, []string{"client", "data_type", "status"}),

		ReconciliationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unenrolled_reconciliation_duration_seconds",
			Help:    "Duration of reconciliation requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"client", "data_type"}),

		UnenrolledUsers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unenrolled_users",
			Help: "Number of unenrolled users found by the last successful reconciliation",
		}, []string{"client", "data_type"}),

		NormalizationDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_normalization_dropped_rows_total",
			Help: "Rows dropped during identifier normalization",
		}, []string{"side", "reason"}),

		FilteredRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_prefilter_removed_rows_total",
			Help: "Rows removed by per-client pre-filters",
		}, []string{"rule"}),

		ExternalFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unenrolled_external_fetch_duration_seconds",
			Help:    "Duration of external roster fetches in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "status"}),

		CacheFills: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_enrollment_cache_fills_total",
			Help: "Warehouse queries issued to fill the enrollment cache",
		}, []string{"status"}),

		CacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_enrollment_cache_reads_total",
			Help: "Enrollment cache reads by result",
		}, []string{"result"}),

		CacheRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unenrolled_enrollment_cache_rows",
			Help: "Rows held in the enrollment cache",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unenrolled_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unenrolled_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveReconciliation records one finished reconciliation request
func (m *Metrics) ObserveReconciliation(client, dataType, status string, d time.Duration, unenrolled int) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(client, dataType, status).Inc()
	if status == "rejected" {
		return
	}
	m.ReconciliationDuration.WithLabelValues(client, dataType).Observe(d.Seconds())
	if status == "success" {
		m.UnenrolledUsers.WithLabelValues(client, dataType).Set(float64(unenrolled))
	}
}

// ObserveNormalization records rows dropped while normalizing one side of a join
func (m *Metrics) ObserveNormalization(side string, nulls, empty, duplicates int) {
	if m == nil {
		return
	}
	m.NormalizationDropped.WithLabelValues(side, "null").Add(float64(nulls))
	m.NormalizationDropped.WithLabelValues(side, "empty").Add(float64(empty))
	m.NormalizationDropped.WithLabelValues(side, "duplicate").Add(float64(duplicates))
}

// ObserveFilter records rows removed by a pre-filter rule
func (m *Metrics) ObserveFilter(rule string, removed int) {
	if m == nil {
		return
	}
	m.FilteredRows.WithLabelValues(rule).Add(float64(removed))
}

// ObserveFetch records one external roster fetch
func (m *Metrics) ObserveFetch(source, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExternalFetchDuration.WithLabelValues(source, status).Observe(d.Seconds())
}

// ObserveCacheFill records one warehouse query issued to fill the cache
func (m *Metrics) ObserveCacheFill(status string, rows int) {
	if m == nil {
		return
	}
	m.CacheFills.WithLabelValues(status).Inc()
	if status == "success" {
		m.CacheRows.Set(float64(rows))
	}
}

// ObserveCacheRead records a cache read served from a populated cache (hit) or one
// that had to wait for a fill (miss)
func (m *Metrics) ObserveCacheRead(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheReads.WithLabelValues(result).Inc()
}

// ObserveCacheCleared resets the cache size gauge
func (m *Metrics) ObserveCacheCleared() {
	if m == nil {
		return
	}
	m.CacheRows.Set(0)
}

// ObserveHTTPRequest records one HTTP request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
