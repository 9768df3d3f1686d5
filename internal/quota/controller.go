// Package quota implements the hybrid-store partition quota enforcement
// controller: the hot-path component that decides, for every batch of
// records an ingestion task consumes, whether a partition is within its
// on-disk quota and pauses or resumes the underlying consumer accordingly.
package quota

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jittakal/quotaenforcer/pkg/quota"
)

// Controller is the enforcer bound to one version topic inside one
// ingestion task. All state transitions — CheckPartitionQuota and
// HandleStoreChanged — execute under a single mutex; only one may be in
// progress at a time, and both see a consistent snapshot of quota,
// version-online, usage, and paused-partition state.
type Controller struct {
	storeName      string
	versionTopic   string
	versionNumber  int
	partitionCount int

	task        quota.IngestionTask
	states      quota.ConsumptionStateProvider
	suppressor  quota.RedundantLogSuppressor
	logger      *slog.Logger

	mu sync.Mutex

	storeQuotaBytes        int64
	perPartitionQuotaBytes int64
	versionOnline          bool

	tracker   *usageTracker
	evaluator *quotaEvaluator
	resolver  *consumingTopicResolver
	paused    *pauseSet
}

// Config bundles the construction-time dependencies for a Controller.
type Config struct {
	Task           quota.IngestionTask
	StorageEngine  quota.StorageEngine
	States         quota.ConsumptionStateProvider
	Suppressor     quota.RedundantLogSuppressor
	Logger         *slog.Logger
	Store          quota.StoreSnapshot
	VersionTopic   string
	PartitionCount int
}

// New constructs a Controller bound to one version topic, loading its
// initial quota and version-online status from the supplied store
// snapshot. It returns a *quota.MissingVersionError if the version
// encoded in VersionTopic is absent from the snapshot.
func New(cfg Config) (*Controller, error) {
	if cfg.PartitionCount <= 0 {
		return nil, fmt.Errorf("quota: partition count must be positive, got %d", cfg.PartitionCount)
	}

	versionNumber, err := quota.ParseVersionNumber(cfg.VersionTopic)
	if err != nil {
		return nil, fmt.Errorf("quota: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		storeName:      cfg.Store.Name,
		versionTopic:   cfg.VersionTopic,
		versionNumber:  versionNumber,
		partitionCount: cfg.PartitionCount,
		task:           cfg.Task,
		states:         cfg.States,
		suppressor:     cfg.Suppressor,
		logger:         logger,
		paused:         newPauseSet(),
	}

	c.tracker = newUsageTracker(cfg.StorageEngine)
	c.resolver = newConsumingTopicResolver(cfg.VersionTopic, c.lookupState)

	if err := c.applyVersionStatus(cfg.Store); err != nil {
		return nil, err
	}
	c.applyQuota(cfg.Store.StorageQuotaInBytes)

	var metrics quota.MetricsSink
	if cfg.Task != nil {
		metrics = cfg.Task.Metrics()
	}
	c.evaluator = newQuotaEvaluator(
		c.tracker,
		c.storeName,
		metrics,
		&c.storeQuotaBytes,
		&c.perPartitionQuotaBytes,
		c.metricsEmissionEnabled,
	)

	return c, nil
}

func (c *Controller) lookupState(partition quota.PartitionID) (quota.PartitionConsumptionState, bool) {
	if c.states == nil {
		return nil, false
	}
	return c.states.Get(partition)
}

func (c *Controller) metricsEmissionEnabled() bool {
	return c.task != nil && c.task.MetricsEmissionEnabled()
}

// applyVersionStatus looks up the configured version in the snapshot and,
// if it is ONLINE, latches versionOnline true. The latch never resets to
// false, even if a later snapshot reports a non-ONLINE status for an
// already-online version.
func (c *Controller) applyVersionStatus(store quota.StoreSnapshot) error {
	version, ok := store.GetVersion(c.versionNumber)
	if !ok {
		return &quota.MissingVersionError{StoreName: c.storeName, Version: c.versionNumber}
	}
	if version.Status == quota.ONLINE {
		c.versionOnline = true
	}
	return nil
}

// applyQuota refreshes storeQuotaBytes and recomputes perPartitionQuotaBytes.
func (c *Controller) applyQuota(storeQuotaBytes int64) {
	c.storeQuotaBytes = storeQuotaBytes
	if storeQuotaBytes == quota.UnlimitedStorageQuota {
		c.perPartitionQuotaBytes = 0
		return
	}
	c.perPartitionQuotaBytes = storeQuotaBytes / int64(c.partitionCount)
}

// CheckPartitionQuota is the hot-path entry point: for each partition in
// the batch, it updates the running usage estimate, evaluates the quota,
// and pauses or resumes the consumer set accordingly. Safe to call
// concurrently from multiple consumer threads sharing one upstream
// consumer.
func (c *Controller) CheckPartitionQuota(batchSizes map[quota.PartitionID]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for partition, size := range batchSizes {
		if err := c.enforcePartitionQuota(partition, size); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) enforcePartitionQuota(partition quota.PartitionID, size int64) error {
	if _, err := c.tracker.add(partition, size); err != nil {
		return err
	}

	topic := c.resolver.consumingTopic(partition)
	identifier := fmt.Sprintf("%s_%d_quota_exceeded", topic, partition)

	shouldLog := true
	if c.suppressor != nil {
		shouldLog = !c.suppressor.IsRedundant(identifier)
	}

	if c.evaluator.isExceeded(partition) {
		return c.handleExceeded(partition, topic, shouldLog)
	}
	return c.handleWithinQuota(partition, topic)
}

func (c *Controller) handleExceeded(partition quota.PartitionID, topic string, shouldLog bool) error {
	c.task.ReportQuotaViolated(partition)

	// Completion shortcut: if the version is already online elsewhere in
	// the fleet but this replica has not yet reported completion, report
	// it now rather than leaving the replica in an error state once it
	// gets paused.
	if c.versionOnline && c.states != nil {
		if state, ok := c.states.Get(partition); ok && state != nil && !state.IsCompletionReported() {
			if dispatcher := c.task.NotificationDispatcher(); dispatcher != nil {
				if err := dispatcher.ReportCompleted(state); err != nil {
					return fmt.Errorf("quota: reporting completion for partition %d: %w", partition, err)
				}
			}
		}
	}

	if err := c.pausePartition(partition, topic); err != nil {
		return err
	}

	if shouldLog {
		c.logger.Info("quota exceeded, paused partition",
			"store", c.storeName,
			"version_topic", c.versionTopic,
			"partition", partition,
			"topic", topic,
		)
	}
	return nil
}

func (c *Controller) handleWithinQuota(partition quota.PartitionID, topic string) error {
	c.task.ReportQuotaNotViolated(partition)

	if !c.paused.contains(partition) {
		return nil
	}

	if err := c.resumePartition(partition, topic); err != nil {
		return err
	}

	c.logger.Info("quota available, resumed partition",
		"store", c.storeName,
		"version_topic", c.versionTopic,
		"partition", partition,
		"topic", topic,
	)
	return nil
}

// pausePartition issues pause to every consumer the ingestion task owns
// and marks the partition paused. It is deliberately not suppressed when
// the partition is already in pausedPartitions: on restart the in-memory
// set is empty even though consumers may still be paused, so re-issuing
// pause on every evaluator decision is what makes the system self-healing
// without persisting the paused set.
func (c *Controller) pausePartition(partition quota.PartitionID, topic string) error {
	for _, consumer := range c.task.Consumers() {
		if err := consumer.Pause(topic, partition); err != nil {
			return &quota.ConsumerControlError{Topic: topic, Partition: partition, Op: "pause", Err: err}
		}
	}
	c.paused.add(partition)
	return nil
}

func (c *Controller) resumePartition(partition quota.PartitionID, topic string) error {
	for _, consumer := range c.task.Consumers() {
		if err := consumer.Resume(topic, partition); err != nil {
			return &quota.ConsumerControlError{Topic: topic, Partition: partition, Op: "resume", Err: err}
		}
	}
	c.paused.remove(partition)
	return nil
}

// HandleStoreChanged reacts to a store-metadata change event: refreshing
// the cached quota and, once the configured version is observed ONLINE,
// latching versionOnline. Events for a different store are a no-op, since
// the metadata bus is shared across every enforcer in the process.
func (c *Controller) HandleStoreChanged(store quota.StoreSnapshot) error {
	if store.Name != c.storeName {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyVersionStatus(store); err != nil {
		return err
	}
	c.applyQuota(store.StorageQuotaInBytes)
	return nil
}

// HandleStoreCreated is a no-op for this enforcer.
func (c *Controller) HandleStoreCreated(quota.StoreSnapshot) {}

// HandleStoreDeleted is a no-op for this enforcer.
func (c *Controller) HandleStoreDeleted(string) {}

// IsPartitionPaused reports whether this enforcer has issued pause for a
// partition and not since issued resume. It reflects this enforcer's own
// bookkeeping, not necessarily the consumer's real pause state.
func (c *Controller) IsPartitionPaused(partition quota.PartitionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused.contains(partition)
}

// HasPausedPartitions reports whether this enforcer currently has any
// partition paused.
func (c *Controller) HasPausedPartitions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paused.members) > 0
}

// StoreQuotaBytes returns the last observed store-level quota, or
// quota.UnlimitedStorageQuota when enforcement is disabled.
func (c *Controller) StoreQuotaBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeQuotaBytes
}

// PartitionQuotaBytes returns the last observed per-partition quota.
// Meaningless (and not compared) when StoreQuotaBytes is unlimited.
func (c *Controller) PartitionQuotaBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perPartitionQuotaBytes
}

// VersionOnline reports the state of the monotonic version-online latch.
func (c *Controller) VersionOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionOnline
}

// Usage returns the current running byte estimate for a partition.
func (c *Controller) Usage(partition quota.PartitionID) int64 {
	return c.tracker.usage(partition)
}
