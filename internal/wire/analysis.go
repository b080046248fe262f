package wire

// LocationStatus is the per-location verdict in expected-location analysis.
type LocationStatus string

const (
	LocationHealthy          LocationStatus = "healthy"
	LocationMissingMembers   LocationStatus = "missing_members"
	LocationExtraMembers     LocationStatus = "extra_members"
	LocationUnexpected       LocationStatus = "unexpected_location"
)

// AlertSeverity is the severity of an expected-location alert.
type AlertSeverity string

const (
	AlertError   AlertSeverity = "error"
	AlertWarning AlertSeverity = "warning"
)

// LocationAnalysis is one location's entry in missing_analysis.locations.
type LocationAnalysis struct {
	Location     string         `json:"location"`
	ExpectedCount int           `json:"expected_count"`
	ActualCount  int            `json:"actual_count"`
	MissingCount int            `json:"missing_count"`
	Criticality  string         `json:"criticality,omitempty"`
	Status       LocationStatus `json:"status"`
}

// Alert is one entry in missing_analysis.alerts.
type Alert struct {
	Severity AlertSeverity `json:"severity"`
	Location string        `json:"location,omitempty"`
	Message  string        `json:"message"`
}

// AnalysisSummary is missing_analysis.summary.
type AnalysisSummary struct {
	TotalMissingMembers int `json:"total_missing_members"`
	LocationsMissing    int `json:"locations_missing"`
	UnexpectedLocations int `json:"unexpected_locations"`
}

// MissingAnalysis is the missing_analysis object in /members_with_analysis.
type MissingAnalysis struct {
	Enabled   bool               `json:"enabled"`
	Timestamp int64              `json:"timestamp"`
	Locations []LocationAnalysis `json:"locations"`
	Alerts    []Alert            `json:"alerts"`
	Summary   AnalysisSummary    `json:"summary"`
}

// MembersWithAnalysisResponse is the /members_with_analysis response body.
type MembersWithAnalysisResponse struct {
	Members         []Member        `json:"members"`
	MissingAnalysis MissingAnalysis `json:"missing_analysis"`
}

// RegistryHealthResponse is the registry's /health response body.
type RegistryHealthResponse struct {
	Status  string                    `json:"status"`
	Tasks   map[string]TaskHealthView `json:"tasks"`
	UptimeS int64                     `json:"uptime_s"`
}

// TaskHealthView is the JSON view of a supervised task's health.
type TaskHealthView struct {
	Alive        bool  `json:"alive"`
	LastTick     int64 `json:"last_tick"`
	RestartCount int   `json:"restart_count"`
}

// MemberHealthResponse is the member's /health response body.
type MemberHealthResponse struct {
	Status       string                    `json:"status"`
	InstanceID   string                    `json:"instance_id"`
	Location     string                    `json:"location"`
	MembersCount int                       `json:"members_count"`
	Tasks        map[string]TaskHealthView `json:"tasks"`
	Timestamp    int64                     `json:"timestamp"`
}

// ClearResponse is the registry's /clear response body.
type ClearResponse struct {
	KeysDeleted int `json:"keys_deleted"`
}

// BandwidthTestResponse is the member's /bandwidth_test response body.
type BandwidthTestResponse struct {
	ReceivedBytes int64 `json:"received_bytes"`
	ElapsedMs     int64 `json:"elapsed_ms"`
}
