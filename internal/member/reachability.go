package member

import (
	"sync"
	"time"
)

// reachabilityTracker records the last successful registry contact
// (heartbeat or poll) so the /health handler can implement spec.md §7's
// "registry has been unreachable longer than 2 heartbeat intervals"
// degraded condition.
type reachabilityTracker struct {
	mu                sync.Mutex
	lastSuccess       time.Time
	heartbeatInterval time.Duration
}

func newReachabilityTracker(heartbeatInterval time.Duration) *reachabilityTracker {
	return &reachabilityTracker{lastSuccess: time.Now(), heartbeatInterval: heartbeatInterval}
}

func (r *reachabilityTracker) markSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSuccess = time.Now()
}

func (r *reachabilityTracker) degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastSuccess) > 2*r.heartbeatInterval
}
