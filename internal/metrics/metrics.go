package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the reconciliation read side and enrichment runs
var (
	VerifyRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "noticetrack_verify_requests_total",
			Help: "Total number of notice verification lookups",
		},
	)

	VerifyRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noticetrack_verify_request_duration_seconds",
			Help:    "Duration of notice verification lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	MismatchScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noticetrack_mismatch_scan_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	EnrichmentRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "noticetrack_enrichment_runs_total",
			Help: "Total number of enrichment runs",
		},
	)

	EnrichmentRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticetrack_enrichment_rows_total",
			Help: "Rows backfilled per enrichment rule",
		},
		[]string{"rule"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(
		VerifyRequestsTotal,
		VerifyRequestDuration,
		MismatchScanDuration,
		EnrichmentRunsTotal,
		EnrichmentRowsTotal,
	)
}
