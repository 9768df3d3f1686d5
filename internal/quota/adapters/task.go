package adapters

import (
	"sync"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// ViolationMetrics is the subset of observability.Metrics the ingestion
// task shim increments on every violation/clearance report.
type ViolationMetrics interface {
	IncQuotaViolations(store string)
	IncQuotaClearances(store string)
}

// IngestionTaskShim is a minimal, demo-scale implementation of
// pquota.IngestionTask: it owns the consumer set and the notification
// dispatcher, and forwards quota bookkeeping calls to counters instead of
// a real ingestion pipeline's replica-state machine (the ingestion task
// itself is named as an external collaborator in §1 and is not specified
// here).
type IngestionTaskShim struct {
	storeName      string
	consumers      []pquota.LogConsumer
	dispatcher     pquota.NotificationDispatcher
	metricsSink    pquota.MetricsSink
	metricsEnabled bool
	violations     ViolationMetrics

	mu          sync.Mutex
	violated    map[pquota.PartitionID]int
	notViolated map[pquota.PartitionID]int
}

// NewIngestionTaskShim builds a shim bound to one store's consumer set.
func NewIngestionTaskShim(
	storeName string,
	consumers []pquota.LogConsumer,
	dispatcher pquota.NotificationDispatcher,
	metricsSink pquota.MetricsSink,
	metricsEnabled bool,
	violations ViolationMetrics,
) *IngestionTaskShim {
	return &IngestionTaskShim{
		storeName:      storeName,
		consumers:      consumers,
		dispatcher:     dispatcher,
		metricsSink:    metricsSink,
		metricsEnabled: metricsEnabled,
		violations:     violations,
		violated:       make(map[pquota.PartitionID]int),
		notViolated:    make(map[pquota.PartitionID]int),
	}
}

func (t *IngestionTaskShim) Consumers() []pquota.LogConsumer { return t.consumers }

func (t *IngestionTaskShim) NotificationDispatcher() pquota.NotificationDispatcher {
	return t.dispatcher
}

func (t *IngestionTaskShim) MetricsEmissionEnabled() bool { return t.metricsEnabled }

func (t *IngestionTaskShim) Metrics() pquota.MetricsSink { return t.metricsSink }

func (t *IngestionTaskShim) ReportQuotaViolated(partition pquota.PartitionID) {
	t.mu.Lock()
	t.violated[partition]++
	t.mu.Unlock()
	if t.violations != nil {
		t.violations.IncQuotaViolations(t.storeName)
	}
}

func (t *IngestionTaskShim) ReportQuotaNotViolated(partition pquota.PartitionID) {
	t.mu.Lock()
	t.notViolated[partition]++
	t.mu.Unlock()
	if t.violations != nil {
		t.violations.IncQuotaClearances(t.storeName)
	}
}

// ViolationCount returns how many times a partition has been reported as
// violating its quota across the life of the shim.
func (t *IngestionTaskShim) ViolationCount(partition pquota.PartitionID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.violated[partition]
}

var _ pquota.IngestionTask = (*IngestionTaskShim)(nil)
