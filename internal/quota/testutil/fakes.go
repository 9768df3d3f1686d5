// Package testutil provides hand-written fakes for the quota package's
// external collaborators, in place of a generated mocking framework.
package testutil

import (
	"sync"

	"github.com/jittakal/quotaenforcer/pkg/quota"
)

// FakeStorageEngine returns a fixed seed size per partition, defaulting to
// zero for any partition not explicitly configured.
type FakeStorageEngine struct {
	mu    sync.Mutex
	sizes map[quota.PartitionID]int64
	err   error
}

// NewFakeStorageEngine builds an engine seeded with the given per-partition sizes.
func NewFakeStorageEngine(sizes map[quota.PartitionID]int64) *FakeStorageEngine {
	if sizes == nil {
		sizes = make(map[quota.PartitionID]int64)
	}
	return &FakeStorageEngine{sizes: sizes}
}

// FailWith makes every subsequent PartitionSizeBytes call return err.
func (e *FakeStorageEngine) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *FakeStorageEngine) PartitionSizeBytes(partition quota.PartitionID) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return 0, e.err
	}
	return e.sizes[partition], nil
}

// FakeConsumer records every Pause/Resume call it receives.
type FakeConsumer struct {
	mu      sync.Mutex
	paused  []Call
	resumed []Call
	err     error
}

// Call records a single pause/resume invocation.
type Call struct {
	Topic     string
	Partition quota.PartitionID
}

func NewFakeConsumer() *FakeConsumer {
	return &FakeConsumer{}
}

func (c *FakeConsumer) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *FakeConsumer) Pause(topic string, partition quota.PartitionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.paused = append(c.paused, Call{Topic: topic, Partition: partition})
	return nil
}

func (c *FakeConsumer) Resume(topic string, partition quota.PartitionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.resumed = append(c.resumed, Call{Topic: topic, Partition: partition})
	return nil
}

func (c *FakeConsumer) PausedCalls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.paused...)
}

func (c *FakeConsumer) ResumedCalls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.resumed...)
}

// FakeDispatcher records ReportCompleted calls.
type FakeDispatcher struct {
	mu        sync.Mutex
	completed []quota.PartitionConsumptionState
	err       error
}

func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{}
}

func (d *FakeDispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *FakeDispatcher) ReportCompleted(state quota.PartitionConsumptionState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.completed = append(d.completed, state)
	return nil
}

func (d *FakeDispatcher) Completed() []quota.PartitionConsumptionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]quota.PartitionConsumptionState(nil), d.completed...)
}

// FakeMetricsSink records recorded ratios, keyed by store name.
type FakeMetricsSink struct {
	mu     sync.Mutex
	ratios map[string][]float64
}

func NewFakeMetricsSink() *FakeMetricsSink {
	return &FakeMetricsSink{ratios: make(map[string][]float64)}
}

func (m *FakeMetricsSink) RecordStorageQuotaUsed(storeName string, ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratios[storeName] = append(m.ratios[storeName], ratio)
}

func (m *FakeMetricsSink) Ratios(storeName string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.ratios[storeName]...)
}

// FakeTask is a minimal quota.IngestionTask for tests.
type FakeTask struct {
	mu             sync.Mutex
	consumers      []quota.LogConsumer
	dispatcher     quota.NotificationDispatcher
	metrics        quota.MetricsSink
	metricsEnabled bool
	violated       []quota.PartitionID
	notViolated    []quota.PartitionID
}

func NewFakeTask(consumers []quota.LogConsumer, dispatcher quota.NotificationDispatcher, metrics quota.MetricsSink, metricsEnabled bool) *FakeTask {
	return &FakeTask{
		consumers:      consumers,
		dispatcher:     dispatcher,
		metrics:        metrics,
		metricsEnabled: metricsEnabled,
	}
}

func (t *FakeTask) Consumers() []quota.LogConsumer { return t.consumers }

func (t *FakeTask) NotificationDispatcher() quota.NotificationDispatcher { return t.dispatcher }

func (t *FakeTask) MetricsEmissionEnabled() bool { return t.metricsEnabled }

func (t *FakeTask) Metrics() quota.MetricsSink { return t.metrics }

func (t *FakeTask) ReportQuotaViolated(partition quota.PartitionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.violated = append(t.violated, partition)
}

func (t *FakeTask) ReportQuotaNotViolated(partition quota.PartitionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notViolated = append(t.notViolated, partition)
}

func (t *FakeTask) ViolatedCalls() []quota.PartitionID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]quota.PartitionID(nil), t.violated...)
}

func (t *FakeTask) NotViolatedCalls() []quota.PartitionID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]quota.PartitionID(nil), t.notViolated...)
}

// FakeConsumptionState implements quota.PartitionConsumptionState.
type FakeConsumptionState struct {
	Leader             quota.LeaderState
	LeaderTopic        string
	CompletionReported bool
}

func (s *FakeConsumptionState) LeaderState() quota.LeaderState { return s.Leader }

func (s *FakeConsumptionState) OffsetRecord() quota.OffsetRecord {
	return quota.OffsetRecord{LeaderTopic: s.LeaderTopic}
}

func (s *FakeConsumptionState) IsCompletionReported() bool { return s.CompletionReported }

// FakeStateProvider is a quota.ConsumptionStateProvider backed by a plain map.
type FakeStateProvider struct {
	mu     sync.Mutex
	states map[quota.PartitionID]quota.PartitionConsumptionState
}

func NewFakeStateProvider() *FakeStateProvider {
	return &FakeStateProvider{states: make(map[quota.PartitionID]quota.PartitionConsumptionState)}
}

func (p *FakeStateProvider) Set(partition quota.PartitionID, state quota.PartitionConsumptionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[partition] = state
}

func (p *FakeStateProvider) Get(partition quota.PartitionID) (quota.PartitionConsumptionState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.states[partition]
	return s, ok
}
