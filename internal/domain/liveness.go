package domain

import "time"

// LivenessRecord is the durable marker of when the agent last did useful
// work. A single instance is persisted in the agent-local store so it
// survives restarts; the supervisor reads it on every activation to detect
// dormancy exceeding its threshold.
type LivenessRecord struct {
	LastActivity time.Time `json:"last_activity"`
}

// DormantFor reports how long the agent has been idle as of now.
func (l LivenessRecord) DormantFor(now time.Time) time.Duration {
	if l.LastActivity.IsZero() {
		return 0
	}
	return now.Sub(l.LastActivity)
}
