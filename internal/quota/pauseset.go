package quota

import "github.com/jittakal/quotaenforcer/pkg/quota"

// pauseSet tracks which partitions this enforcer has paused. Membership
// governs whether the enforcer issued a pause, not whether the consumer is
// actually paused: after a restart the set starts empty even if the
// consumer retained its pause state.
type pauseSet struct {
	members map[quota.PartitionID]struct{}
}

func newPauseSet() *pauseSet {
	return &pauseSet{members: make(map[quota.PartitionID]struct{})}
}

func (s *pauseSet) add(p quota.PartitionID) {
	s.members[p] = struct{}{}
}

func (s *pauseSet) remove(p quota.PartitionID) {
	delete(s.members, p)
}

func (s *pauseSet) contains(p quota.PartitionID) bool {
	_, ok := s.members[p]
	return ok
}
