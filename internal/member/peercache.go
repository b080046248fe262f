package member

import (
	"sync"

	"netring/internal/wire"
)

// peerEntry is one cached peer plus the poll at which it was last seen.
type peerEntry struct {
	member      wire.Member
	lastRefresh int64 // poll generation counter, not wall time
}

// PeerCache holds the member's local view of its peers, per spec.md §4.2:
// "replaced by the registry's current list filtered to active, non-self
// records... results keyed by peers no longer present in two successive
// refreshes are evicted." It does not itself evict probe results; Refresh
// returns the instance ids that should be evicted so callers can drive
// metrics.MetricsStore.EvictPeer.
type PeerCache struct {
	mu         sync.RWMutex
	selfID     string
	generation int64
	peers      map[string]*peerEntry
}

// NewPeerCache creates an empty cache scoped to selfID, which Refresh
// always excludes even if the registry were to report it.
func NewPeerCache(selfID string) *PeerCache {
	return &PeerCache{selfID: selfID, peers: make(map[string]*peerEntry)}
}

// Refresh replaces the cache with the current active, non-self members
// from a successful poll and returns the instance ids absent for two
// consecutive refreshes, which the caller should evict from probe state.
func (c *PeerCache) Refresh(members []wire.Member) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.InstanceID == c.selfID || m.Status != wire.StatusActive {
			continue
		}
		seen[m.InstanceID] = true
		if entry, ok := c.peers[m.InstanceID]; ok {
			entry.member = m
			entry.lastRefresh = c.generation
		} else {
			c.peers[m.InstanceID] = &peerEntry{member: m, lastRefresh: c.generation}
		}
	}

	var evicted []string
	for id, entry := range c.peers {
		if seen[id] {
			continue
		}
		if c.generation-entry.lastRefresh >= 2 {
			delete(c.peers, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Snapshot returns the currently cached peers.
func (c *PeerCache) Snapshot() []wire.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]wire.Member, 0, len(c.peers))
	for _, entry := range c.peers {
		out = append(out, entry.member)
	}
	return out
}

// AsMap returns the currently cached peers keyed by instance id, for
// MetricsStore.SetPeers and the member /health handler's members_count.
func (c *PeerCache) AsMap() map[string]wire.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]wire.Member, len(c.peers))
	for id, entry := range c.peers {
		out[id] = entry.member
	}
	return out
}

// Len reports the number of cached peers.
func (c *PeerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peers)
}
