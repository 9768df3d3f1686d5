package quota

import "github.com/jittakal/quotaenforcer/pkg/quota"

// quotaEvaluator is a pure function of (partition usage, per-partition
// quota, unlimited sentinel) -> exceeded/within. It also emits the
// usage-ratio metric when the host ingestion task has metrics enabled.
type quotaEvaluator struct {
	tracker *usageTracker

	storeName string
	metrics   quota.MetricsSink

	// storeQuotaBytes and perPartitionQuotaBytes are read by reference to
	// the controller's own fields; the evaluator never mutates them.
	storeQuotaBytes        *int64
	perPartitionQuotaBytes *int64

	metricsEnabled func() bool
}

func newQuotaEvaluator(
	tracker *usageTracker,
	storeName string,
	metrics quota.MetricsSink,
	storeQuotaBytes, perPartitionQuotaBytes *int64,
	metricsEnabled func() bool,
) *quotaEvaluator {
	return &quotaEvaluator{
		tracker:                tracker,
		storeName:              storeName,
		metrics:                metrics,
		storeQuotaBytes:        storeQuotaBytes,
		perPartitionQuotaBytes: perPartitionQuotaBytes,
		metricsEnabled:         metricsEnabled,
	}
}

// isExceeded reports whether the partition's usage is at or above its
// per-partition quota. Comparison is >=: hitting the quota exactly counts
// as exceeded. Unlimited stores never exceed.
func (e *quotaEvaluator) isExceeded(partition quota.PartitionID) bool {
	usage := e.tracker.usage(partition)

	if e.metricsEnabled != nil && e.metricsEnabled() && e.metrics != nil {
		var ratio float64
		if *e.perPartitionQuotaBytes > 0 {
			ratio = float64(usage) / float64(*e.perPartitionQuotaBytes)
		}
		e.metrics.RecordStorageQuotaUsed(e.storeName, ratio)
	}

	if *e.storeQuotaBytes == quota.UnlimitedStorageQuota {
		return false
	}

	return usage >= *e.perPartitionQuotaBytes
}
