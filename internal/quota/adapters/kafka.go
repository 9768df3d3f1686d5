// Package adapters wires the quota package's collaborator interfaces to
// concrete infrastructure: a Sarama-backed consumer, filesystem- and
// S3-backed storage engines, a structured-logging notification
// dispatcher, and an fsnotify-driven store-change bus.
package adapters

import (
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// SaramaPartitionConsumer adapts a live sarama.ConsumerGroupSession to the
// quota package's LogConsumer contract. Sessions are replaced by the
// consumer group on every rebalance, so callers must call SetSession as
// soon as a new one is handed to them. Pause/resume calls made before the
// first SetSession are silently no-ops; calls made between a rebalance and
// the next SetSession go to the previously installed session.
type SaramaPartitionConsumer struct {
	mu      sync.RWMutex
	session sarama.ConsumerGroupSession
}

// NewSaramaPartitionConsumer builds a consumer with no session attached.
func NewSaramaPartitionConsumer() *SaramaPartitionConsumer {
	return &SaramaPartitionConsumer{}
}

// SetSession installs the consumer group session to issue pause/resume
// calls against. Called by the consumer group handler's Setup on every
// rebalance.
func (c *SaramaPartitionConsumer) SetSession(session sarama.ConsumerGroupSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// Pause stops the consumer group session from delivering further records
// for the topic-partition until Resume is called.
func (c *SaramaPartitionConsumer) Pause(topic string, partition pquota.PartitionID) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil
	}

	session.Pause(map[string][]int32{topic: {int32(partition)}})
	return nil
}

// Resume re-enables delivery for the topic-partition.
func (c *SaramaPartitionConsumer) Resume(topic string, partition pquota.PartitionID) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil
	}

	session.Resume(map[string][]int32{topic: {int32(partition)}})
	return nil
}

// Ensure compile-time conformance to the quota package's contract.
var _ pquota.LogConsumer = (*SaramaPartitionConsumer)(nil)

// ValidateBootstrapServers mirrors the teacher's defensive config checks
// (see internal/kafka.ConsumerConfig) for the subset of Kafka configuration
// the quota demo binary needs when constructing a consumer group.
func ValidateBootstrapServers(servers []string) error {
	if len(servers) == 0 {
		return fmt.Errorf("adapters: at least one bootstrap server is required")
	}
	return nil
}
