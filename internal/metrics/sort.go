package metrics

import (
	"sort"

	"netring/internal/wire"
)

func durationBucketsSeconds() []float64 { return wire.DurationBuckets }

func sortedTCP(m map[string]wire.TCPResult) []wire.TCPResult {
	out := make([]wire.TCPResult, 0, len(m))
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

func sortedHTTP(m map[string]wire.HTTPResult) []wire.HTTPResult {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]wire.HTTPResult, 0, len(m))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

func sortedBandwidth(m map[string]wire.BandwidthResult) []wire.BandwidthResult {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]wire.BandwidthResult, 0, len(m))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

func sortedTraceroute(m map[string]wire.TracerouteResult) []wire.TracerouteResult {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]wire.TracerouteResult, 0, len(m))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

func sortedDurations(m map[string]*durationAccumulator) []*durationAccumulator {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]*durationAccumulator, 0, len(m))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

func sortedPeers(m map[string]wire.Member) []wire.Member {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]wire.Member, 0, len(m))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}
