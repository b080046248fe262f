// Package metrics owns the single MetricsStore instance a member injects
// into its probe pipelines and its local /metrics handler (spec.md §9,
// "global mutable probe state" maps to one owned instance instead of
// process-wide state). It also hand-rolls the Prometheus text exposition
// format for the member's /metrics endpoint, per spec.md §1's note that
// "the text-format encoder is a standard library concern".
package metrics

import (
	"sync"
	"time"

	"netring/internal/wire"
)

// MetricsStore serializes every read and write behind a single mutex, per
// spec.md §5: "metric snapshot construction and metric updates are
// serialized by a single mutex per member."
type MetricsStore struct {
	mu sync.Mutex

	tcp         map[string]wire.TCPResult
	http        map[string]wire.HTTPResult
	bandwidth   map[string]wire.BandwidthResult
	traceroute  map[string]wire.TracerouteResult
	durations   map[string]*durationAccumulator
	peers       map[string]wire.Member
	startedAt   time.Time
	version     string
}

type durationAccumulator struct {
	checkType      string
	targetLocation string
	count          int64
	sumMs          float64
	buckets        []int64 // parallel to wire.DurationBuckets, cumulative counts
}

// New creates an empty MetricsStore. version is reported in the general
// section of every snapshot.
func New(version string) *MetricsStore {
	return &MetricsStore{
		tcp:        make(map[string]wire.TCPResult),
		http:       make(map[string]wire.HTTPResult),
		bandwidth:  make(map[string]wire.BandwidthResult),
		traceroute: make(map[string]wire.TracerouteResult),
		durations:  make(map[string]*durationAccumulator),
		peers:      make(map[string]wire.Member),
		startedAt:  time.Now(),
		version:    version,
	}
}

// RecordTCP stores the result of a single TCP probe, keyed by target
// instance.
func (m *MetricsStore) RecordTCP(result wire.TCPResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tcp[result.TargetInstance] = result
	m.observeDuration("tcp", result.TargetLocation, result.DurationMs)
}

// RecordHTTP stores the result of a single HTTP probe, keyed by
// target-instance and endpoint.
func (m *MetricsStore) RecordHTTP(result wire.HTTPResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := wire.ProbeKey{TargetInstance: result.TargetInstance, ProbeType: "http", Endpoint: result.Endpoint}.String()
	m.http[key] = result
	m.observeDuration("http", result.TargetLocation, result.DurationMs)
}

// RecordBandwidth stores the result of a bandwidth probe.
func (m *MetricsStore) RecordBandwidth(result wire.BandwidthResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bandwidth[result.TargetInstance] = result
}

// RecordTraceroute stores the result of a traceroute probe.
func (m *MetricsStore) RecordTraceroute(result wire.TracerouteResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traceroute[result.TargetInstance] = result
}

func (m *MetricsStore) observeDuration(checkType, targetLocation string, durationMs float64) {
	key := checkType + "|" + targetLocation
	acc, ok := m.durations[key]
	if !ok {
		acc = &durationAccumulator{
			checkType:      checkType,
			targetLocation: targetLocation,
			buckets:        make([]int64, len(wire.DurationBuckets)),
		}
		m.durations[key] = acc
	}
	acc.count++
	acc.sumMs += durationMs
	seconds := durationMs / 1000
	for i, bound := range wire.DurationBuckets {
		if seconds <= bound {
			acc.buckets[i]++
		}
	}
}

// EvictPeer drops every probe result keyed to a peer that the member's
// peer cache no longer contains, per spec.md §3 ("Probe results are...
// dropped when the target disappears from the local peer cache and has
// been absent for at least one full poll interval"). Duration histograms
// are aggregated per (check type, target location), not per peer, and are
// kept.
func (m *MetricsStore) EvictPeer(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tcp, instanceID)
	delete(m.bandwidth, instanceID)
	delete(m.traceroute, instanceID)
	for key := range m.http {
		if pk, ok := splitProbeKey(key); ok && pk == instanceID {
			delete(m.http, key)
		}
	}
}

func splitProbeKey(key string) (instance string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], true
		}
	}
	return key, true
}

// SetPeers replaces the cached view of peer records used only to compute
// netring_members_total and netring_member_last_seen_timestamp for the
// local /metrics exposition; it does not affect probe-result maps.
func (m *MetricsStore) SetPeers(peers map[string]wire.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers = peers
}

// Snapshot copies the current state into a wire.Snapshot, taking the mutex
// briefly, matching spec.md §5's "readers take the same mutex briefly to
// copy the snapshot."
func (m *MetricsStore) Snapshot() wire.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := wire.NewSnapshot()
	for k, v := range m.tcp {
		snap.ConnectivityTCP[k] = v
	}
	for k, v := range m.http {
		snap.ConnectivityHTTP[k] = v
	}
	for k, v := range m.bandwidth {
		snap.BandwidthTests[k] = v
	}
	for k, v := range m.traceroute {
		snap.TracerouteTests[k] = v
	}
	for k, acc := range m.durations {
		avg := 0.0
		if acc.count > 0 {
			avg = acc.sumMs / float64(acc.count)
		}
		buckets := make([]int64, len(acc.buckets))
		copy(buckets, acc.buckets)
		snap.CheckDurations[k] = wire.CheckDuration{
			CheckType:      acc.checkType,
			TargetLocation: acc.targetLocation,
			Count:          acc.count,
			SumMs:          acc.sumMs,
			AvgMs:          avg,
			BucketCounts:   buckets,
		}
	}
	snap.General = wire.General{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Version:       m.version,
	}
	return snap
}
