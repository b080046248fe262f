package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"netring/internal/errs"
)

// ExpectedLocation is one entry of the expected-location spec (spec.md §3,
// "Expected-location spec"), read from expected_members.config_file.
type ExpectedLocation struct {
	ExpectedCount int    `yaml:"expected_count"`
	Criticality   string `yaml:"criticality"`
	GracePeriodS  int    `yaml:"grace_period_s"`
	Description   string `yaml:"description"`
}

// ExpectedLocationsSpec is the full expected-location configuration file.
type ExpectedLocationsSpec struct {
	Locations                map[string]ExpectedLocation `yaml:"locations"`
	CriticalMissingThreshold int                         `yaml:"critical_missing_threshold"`
	TotalMissingThreshold    int                         `yaml:"total_missing_threshold"`
}

// LoadExpectedLocationsSpec reads and parses the expected-location config
// file. A missing file is not an error: it yields an empty spec, meaning
// no locations are tracked (all locations are "unexpected" if populated).
func LoadExpectedLocationsSpec(path string) (ExpectedLocationsSpec, error) {
	spec := ExpectedLocationsSpec{Locations: map[string]ExpectedLocation{}}
	if path == "" {
		return spec, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return spec, nil
		}
		return spec, errs.Wrap(errs.ErrFatal, "read expected-locations file "+path, err)
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, errs.Wrap(errs.ErrFatal, "parse expected-locations file "+path, err)
	}
	if spec.Locations == nil {
		spec.Locations = map[string]ExpectedLocation{}
	}
	return spec, nil
}
