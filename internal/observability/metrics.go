package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Quota enforcement metrics
	QuotaViolations   *prometheus.CounterVec
	QuotaClearances   *prometheus.CounterVec
	CompletionReports *prometheus.CounterVec
	StorageQuotaUsed  *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Quota enforcement metrics
		QuotaViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hybrid_store_quota_violations_total",
				Help: "Total number of times a partition was reported over its hybrid-store quota",
			},
			[]string{"store"},
		),
		QuotaClearances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hybrid_store_quota_clearances_total",
				Help: "Total number of times a partition was reported back within its hybrid-store quota",
			},
			[]string{"store"},
		),
		CompletionReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hybrid_store_quota_completion_reports_total",
				Help: "Total number of completion reports issued via the quota-exceeded shortcut",
			},
			[]string{"store"},
		),
		StorageQuotaUsed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hybrid_store_quota_used_ratio",
				Help: "Fraction of a store's per-partition hybrid-store quota currently used",
			},
			[]string{"store"},
		),
	}
}

// IncQuotaViolations increments the per-store quota violation counter.
func (m *Metrics) IncQuotaViolations(store string) {
	m.QuotaViolations.WithLabelValues(store).Inc()
}

// IncQuotaClearances increments the per-store quota clearance counter.
func (m *Metrics) IncQuotaClearances(store string) {
	m.QuotaClearances.WithLabelValues(store).Inc()
}

// IncCompletionReports increments the per-store completion-shortcut counter.
func (m *Metrics) IncCompletionReports(store string) {
	m.CompletionReports.WithLabelValues(store).Inc()
}

// RecordStorageQuotaUsed sets the per-store quota usage ratio gauge.
func (m *Metrics) RecordStorageQuotaUsed(store string, ratio float64) {
	m.StorageQuotaUsed.WithLabelValues(store).Set(ratio)
}
