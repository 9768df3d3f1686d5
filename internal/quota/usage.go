package quota

import (
	"sync"

	"github.com/jittakal/quotaenforcer/pkg/quota"
)

// partitionUsage holds the running byte estimate for one partition. The
// estimate blends a baseline sampled once from the storage engine with
// cheap incremental additions from batch byte reports, so a process
// restart does not reset usage to zero.
type partitionUsage struct {
	mu    sync.Mutex
	bytes int64
}

func (u *partitionUsage) add(n int64) int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bytes += n
	return u.bytes
}

func (u *partitionUsage) get() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bytes
}

// usageTracker is a per-partition running estimate of on-disk bytes,
// seeded lazily from the storage engine on first touch and thereafter
// fed by incremental byte reports. Modeled on the teacher's per-partition
// buffer map with double-checked locking: each partition gets its own
// small lock so concurrent reports for different, already-seeded
// partitions do not contend; seeding a new partition takes the
// tracker-wide write lock.
type usageTracker struct {
	engine quota.StorageEngine

	mu      sync.RWMutex
	entries map[quota.PartitionID]*partitionUsage
}

func newUsageTracker(engine quota.StorageEngine) *usageTracker {
	return &usageTracker{
		engine:  engine,
		entries: make(map[quota.PartitionID]*partitionUsage),
	}
}

// add applies a non-negative byte delta to the partition's running usage,
// creating the entry (seeded from the storage engine) on first touch.
func (t *usageTracker) add(partition quota.PartitionID, bytes int64) (int64, error) {
	entry, err := t.getOrCreate(partition)
	if err != nil {
		return 0, err
	}
	return entry.add(bytes), nil
}

// usage returns the current estimate for a partition, or 0 if the
// partition has never been touched.
func (t *usageTracker) usage(partition quota.PartitionID) int64 {
	t.mu.RLock()
	entry, ok := t.entries[partition]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return entry.get()
}

func (t *usageTracker) getOrCreate(partition quota.PartitionID) (*partitionUsage, error) {
	t.mu.RLock()
	entry, ok := t.entries[partition]
	t.mu.RUnlock()
	if ok {
		return entry, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[partition]; ok {
		return entry, nil
	}

	seed, err := t.engine.PartitionSizeBytes(partition)
	if err != nil {
		return nil, &quota.StorageEngineError{Partition: partition, Err: err}
	}

	entry = &partitionUsage{bytes: seed}
	t.entries[partition] = entry
	return entry, nil
}
