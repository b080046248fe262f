package wire

// ProbeKey identifies one probe result within a snapshot: the target
// instance, the probe type, and (for HTTP) the endpoint probed. It is the
// typed equivalent of the composite key spec.md §9 describes; String
// renders it to the flat key used on the wire.
type ProbeKey struct {
	TargetInstance string
	ProbeType      string
	Endpoint       string // only meaningful for ProbeType "http"
}

func (k ProbeKey) String() string {
	if k.Endpoint == "" {
		return k.TargetInstance
	}
	return k.TargetInstance + "|" + k.Endpoint
}

// ConnectivityLabels are the labels common to TCP and HTTP probe results.
type ConnectivityLabels struct {
	SourceLocation string `json:"source_location"`
	SourceInstance string `json:"source_instance"`
	TargetLocation string `json:"target_location"`
	TargetInstance string `json:"target_instance"`
	TargetIP       string `json:"target_ip"`
}

// TCPResult is one connectivity_tcp entry.
type TCPResult struct {
	ConnectivityLabels
	Value      float64 `json:"value"`
	DurationMs float64 `json:"duration_ms"`
	Timestamp  int64   `json:"timestamp"`
}

// HTTPResult is one connectivity_http entry, scoped to a single endpoint.
type HTTPResult struct {
	ConnectivityLabels
	Endpoint   string  `json:"endpoint"`
	Value      float64 `json:"value"`
	DurationMs float64 `json:"duration_ms"`
	Timestamp  int64   `json:"timestamp"`
}

// BandwidthResult is one bandwidth_tests entry.
type BandwidthResult struct {
	SourceLocation string  `json:"source_location"`
	TargetLocation string  `json:"target_location"`
	TargetInstance string  `json:"target_instance"`
	TargetIP       string  `json:"target_ip"`
	Mbps           float64 `json:"mbps"`
	Timestamp      int64   `json:"timestamp"`
}

// TracerouteResult is one traceroute_tests entry.
type TracerouteResult struct {
	SourceLocation   string  `json:"source_location"`
	TargetLocation   string  `json:"target_location"`
	TargetInstance   string  `json:"target_instance"`
	TotalHops        int     `json:"total_hops"`
	MaxHopLatencyMs  float64 `json:"max_hop_latency_ms"`
	Timestamp        int64   `json:"timestamp"`
}

// CheckDuration is one aggregated (check_type, target_location) latency
// entry: a fixed set of histogram buckets, matching the
// netring_check_duration_seconds buckets in spec.md §6.3.
type CheckDuration struct {
	CheckType      string    `json:"check_type"`
	TargetLocation string    `json:"target_location"`
	Count          int64     `json:"count"`
	SumMs          float64   `json:"sum_ms"`
	AvgMs          float64   `json:"avg_ms"`
	BucketCounts   []int64   `json:"p_bucket_counts"`
}

// DurationBuckets are the histogram bucket upper bounds in seconds, as
// named in spec.md §6.3 for netring_check_duration_seconds.
var DurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

// General carries member-identity fields unrelated to any one probe.
type General struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Version       string `json:"version"`
}

// Snapshot is the tagged structure a member builds from its MetricsStore
// and pushes to the registry. Each field is a map keyed by the flat
// ProbeKey string, matching the normalization layer spec.md §9 calls for:
// the Go type is the tagged structure, the wire form is a flat JSON object.
type Snapshot struct {
	ConnectivityTCP  map[string]TCPResult        `json:"connectivity_tcp"`
	ConnectivityHTTP map[string]HTTPResult       `json:"connectivity_http"`
	BandwidthTests   map[string]BandwidthResult  `json:"bandwidth_tests"`
	TracerouteTests  map[string]TracerouteResult `json:"traceroute_tests"`
	CheckDurations   map[string]CheckDuration    `json:"check_durations"`
	General          General                     `json:"general"`
}

// NewSnapshot returns a Snapshot with every map initialized, so callers
// never need a nil check before inserting a result.
func NewSnapshot() Snapshot {
	return Snapshot{
		ConnectivityTCP:  make(map[string]TCPResult),
		ConnectivityHTTP: make(map[string]HTTPResult),
		BandwidthTests:   make(map[string]BandwidthResult),
		TracerouteTests:  make(map[string]TracerouteResult),
		CheckDurations:   make(map[string]CheckDuration),
	}
}

// ReportMetricsRequest is the /report_metrics request body.
type ReportMetricsRequest struct {
	InstanceID string   `json:"instance_id"`
	Snapshot   Snapshot `json:"snapshot"`
}

// MetricsResponse is the /metrics response body: a union of every member's
// last-pushed snapshot, keyed by instance_id.
type MetricsResponse struct {
	Metrics map[string]Snapshot `json:"metrics"`
}
