package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteExposition renders the current store state as Prometheus text
// exposition format (spec.md §6.2, §6.3). It takes its own lock; callers
// must not hold one.
func (m *MetricsStore) WriteExposition(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &strings.Builder{}

	writeHeader(b, "netring_connectivity_tcp", "gauge", "TCP reachability to a peer (1=up, 0=down)")
	for _, r := range sortedTCP(m.tcp) {
		labels := map[string]string{
			"source_location": r.SourceLocation,
			"source_instance": r.SourceInstance,
			"target_location": r.TargetLocation,
			"target_instance": r.TargetInstance,
			"target_ip":       r.TargetIP,
		}
		writeMetric(b, "netring_connectivity_tcp", labels, r.Value)
	}

	writeHeader(b, "netring_connectivity_http", "gauge", "HTTP endpoint reachability to a peer (1=up, 0=down)")
	for _, r := range sortedHTTP(m.http) {
		labels := map[string]string{
			"source_location": r.SourceLocation,
			"source_instance": r.SourceInstance,
			"target_location": r.TargetLocation,
			"target_instance": r.TargetInstance,
			"target_ip":       r.TargetIP,
			"endpoint":        r.Endpoint,
		}
		writeMetric(b, "netring_connectivity_http", labels, r.Value)
	}

	writeHeader(b, "netring_bandwidth_mbps", "gauge", "Measured throughput to a peer in megabits per second")
	for _, r := range sortedBandwidth(m.bandwidth) {
		labels := map[string]string{
			"source_location": r.SourceLocation,
			"target_location": r.TargetLocation,
			"target_ip":       r.TargetIP,
		}
		writeMetric(b, "netring_bandwidth_mbps", labels, r.Mbps)
	}

	writeHeader(b, "netring_traceroute_hops_total", "gauge", "Number of hops observed to a peer")
	writeHeader(b, "netring_traceroute_max_hop_latency_ms", "gauge", "Maximum observed hop latency to a peer, in milliseconds")
	for _, r := range sortedTraceroute(m.traceroute) {
		labels := map[string]string{
			"source_location": r.SourceLocation,
			"target_location": r.TargetLocation,
		}
		writeMetric(b, "netring_traceroute_hops_total", labels, float64(r.TotalHops))
		writeMetric(b, "netring_traceroute_max_hop_latency_ms", labels, r.MaxHopLatencyMs)
	}

	writeHeader(b, "netring_check_duration_seconds", "histogram", "Probe duration by check type and target location")
	for _, acc := range sortedDurations(m.durations) {
		labels := map[string]string{"check_type": acc.checkType, "target_location": acc.targetLocation}
		writeHistogram(b, "netring_check_duration_seconds", labels, acc)
	}

	writeHeader(b, "netring_members_total", "gauge", "Number of peers currently known from the registry")
	writeMetric(b, "netring_members_total", nil, float64(len(m.peers)))

	writeHeader(b, "netring_member_last_seen_timestamp", "gauge", "Unix timestamp of a peer's last_seen as last observed from the registry")
	for _, peer := range sortedPeers(m.peers) {
		labels := map[string]string{"location": peer.Location, "instance_id": peer.InstanceID}
		writeMetric(b, "netring_member_last_seen_timestamp", labels, float64(peer.LastSeen))
	}

	_, _ = io.WriteString(w, b.String())
}

func writeHeader(b *strings.Builder, name, typ, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
}

func writeMetric(b *strings.Builder, name string, labels map[string]string, value float64) {
	if len(labels) == 0 {
		fmt.Fprintf(b, "%s %g\n", name, value)
		return
	}
	fmt.Fprintf(b, "%s{%s} %g\n", name, formatLabels(labels), value)
}

func writeHistogram(b *strings.Builder, name string, labels map[string]string, acc *durationAccumulator) {
	base := formatLabels(labels)
	cumulative := int64(0)
	for i, bound := range durationBucketsSeconds() {
		cumulative = acc.buckets[i]
		le := fmt.Sprintf(`le="%g"`, bound)
		fmt.Fprintf(b, "%s_bucket{%s,%s} %d\n", name, base, le, cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, base, acc.count)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, base, acc.sumMs/1000)
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, base, acc.count)
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s=%q`, k, labels[k]))
	}
	return strings.Join(parts, ",")
}
