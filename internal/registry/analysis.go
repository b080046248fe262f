package registry

import (
	"sort"
	"sync"
	"time"

	"netring/internal/config"
	"netring/internal/wire"
)

// Analyzer computes expected-location analysis against the current member
// list (spec.md §4.1). It tracks per-location "first dropped below
// expected" timestamps in memory to implement grace-period hysteresis,
// grounded in the debounced-alert state machine pattern the teacher's
// background monitor used for threshold alerts.
type Analyzer struct {
	mu        sync.Mutex
	spec      config.ExpectedLocationsSpec
	firstBelow map[string]time.Time
}

// NewAnalyzer builds an Analyzer over a (possibly empty) expected-location
// spec. Analyze takes Enabled from its enabled argument, not from the
// spec: with an empty spec and enabled=true, every populated location is
// reported as unexpected_location and a warning alert is emitted.
func NewAnalyzer(spec config.ExpectedLocationsSpec) *Analyzer {
	return &Analyzer{spec: spec, firstBelow: make(map[string]time.Time)}
}

// Analyze computes the per-location verdicts and alerts for the current
// active member set. It is cheap and meant to be invoked per request
// (spec.md §4.1: "invoked per request, cheap").
func (a *Analyzer) Analyze(members []wire.Member, enabled bool) wire.MissingAnalysis {
	now := time.Now()
	result := wire.MissingAnalysis{
		Enabled:   enabled,
		Timestamp: now.Unix(),
	}
	if !enabled {
		return result
	}

	counts := make(map[string]int)
	for _, m := range members {
		if m.Status == wire.StatusActive {
			counts[m.Location]++
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var locations []wire.LocationAnalysis
	var alerts []wire.Alert
	totalMissing := 0
	locationsMissing := 0
	unexpectedLocations := 0
	criticalMissing := 0

	configuredNames := make([]string, 0, len(a.spec.Locations))
	for name := range a.spec.Locations {
		configuredNames = append(configuredNames, name)
	}
	sort.Strings(configuredNames)

	for _, name := range configuredNames {
		spec := a.spec.Locations[name]
		actual := counts[name]
		missing := spec.ExpectedCount - actual
		if missing < 0 {
			missing = 0
		}

		status := wire.LocationHealthy
		belowExpected := actual < spec.ExpectedCount
		if belowExpected {
			first, tracked := a.firstBelow[name]
			if !tracked {
				a.firstBelow[name] = now
				first = now
			}
			grace := time.Duration(spec.GracePeriodS) * time.Second
			if now.Sub(first) >= grace {
				status = wire.LocationMissingMembers
			}
		} else {
			delete(a.firstBelow, name)
			if actual > spec.ExpectedCount {
				status = wire.LocationExtraMembers
			}
		}

		if status == wire.LocationMissingMembers {
			totalMissing += missing
			locationsMissing++
			if spec.Criticality == "high" {
				criticalMissing++
				alerts = append(alerts, wire.Alert{
					Severity: wire.AlertError,
					Location: name,
					Message:  "location " + name + " is missing members (high criticality)",
				})
			} else {
				alerts = append(alerts, wire.Alert{
					Severity: wire.AlertWarning,
					Location: name,
					Message:  "location " + name + " is missing members",
				})
			}
		}

		locations = append(locations, wire.LocationAnalysis{
			Location:      name,
			ExpectedCount: spec.ExpectedCount,
			ActualCount:   actual,
			MissingCount:  missing,
			Criticality:   spec.Criticality,
			Status:        status,
		})
	}

	unconfigured := make([]string, 0)
	for name, count := range counts {
		if _, ok := a.spec.Locations[name]; !ok && count > 0 {
			unconfigured = append(unconfigured, name)
		}
	}
	sort.Strings(unconfigured)
	for _, name := range unconfigured {
		unexpectedLocations++
		locations = append(locations, wire.LocationAnalysis{
			Location:    name,
			ActualCount: counts[name],
			Status:      wire.LocationUnexpected,
		})
	}
	if unexpectedLocations > 0 {
		alerts = append(alerts, wire.Alert{
			Severity: wire.AlertWarning,
			Message:  "unexpected locations present",
		})
	}

	if a.spec.TotalMissingThreshold > 0 && totalMissing >= a.spec.TotalMissingThreshold {
		alerts = append(alerts, wire.Alert{
			Severity: wire.AlertWarning,
			Message:  "total missing members exceeds threshold",
		})
	}

	result.Locations = locations
	result.Alerts = alerts
	result.Summary = wire.AnalysisSummary{
		TotalMissingMembers: totalMissing,
		LocationsMissing:    locationsMissing,
		UnexpectedLocations: unexpectedLocations,
	}
	return result
}
