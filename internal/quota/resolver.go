package quota

import "github.com/jittakal/quotaenforcer/pkg/quota"

// consumingTopicResolver returns the topic a partition is actually being
// polled from: the version topic, unless the partition is currently in the
// leader role and carries a non-empty leader topic, in which case the
// leader topic. Pause/resume must be addressed to whichever topic the
// consumer is really subscribed to, which differs during leader-follower
// handoff.
type consumingTopicResolver struct {
	versionTopic string
	states       func(quota.PartitionID) (quota.PartitionConsumptionState, bool)
}

func newConsumingTopicResolver(
	versionTopic string,
	states func(quota.PartitionID) (quota.PartitionConsumptionState, bool),
) *consumingTopicResolver {
	return &consumingTopicResolver{versionTopic: versionTopic, states: states}
}

func (r *consumingTopicResolver) consumingTopic(partition quota.PartitionID) string {
	if r.states == nil {
		return r.versionTopic
	}

	state, ok := r.states(partition)
	if !ok || state == nil {
		return r.versionTopic
	}

	if state.LeaderState() != quota.LeaderRole {
		return r.versionTopic
	}

	leaderTopic := state.OffsetRecord().LeaderTopic
	if leaderTopic == "" {
		return r.versionTopic
	}

	return leaderTopic
}
