package config

import (
	"time"

	"netring/internal/errs"
)

// IntervalsConfig configures the member's six supervised task periods.
type IntervalsConfig struct {
	Poll          time.Duration `yaml:"poll"`
	Check         time.Duration `yaml:"check"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
	BandwidthTest time.Duration `yaml:"bandwidth_test"`
	Traceroute    time.Duration `yaml:"traceroute"`
	MetricsPush   time.Duration `yaml:"metrics_push"`
}

// ChecksConfig configures per-probe-type parameters.
type ChecksConfig struct {
	TCPTimeout          time.Duration `yaml:"tcp_timeout"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	HTTPEndpoints       []string      `yaml:"http_endpoints"`
	BandwidthTestSizeMB int           `yaml:"bandwidth_test_size_mb"`
	TracerouteTimeout   time.Duration `yaml:"traceroute_timeout"`
}

// RegistryRef configures how the member finds its registry.
type RegistryRef struct {
	URL string `yaml:"url"`
}

// MemberConfig is the root configuration for the member process.
type MemberConfig struct {
	Location   string       `yaml:"location"`
	InstanceID string       `yaml:"instance_id"`
	Registry   RegistryRef  `yaml:"registry"`
	Intervals  IntervalsConfig `yaml:"intervals"`
	Server     ServerConfig `yaml:"server"`
	Checks     ChecksConfig `yaml:"checks"`
	HostIP     string       `yaml:"host_ip"`
}

// DefaultMemberConfig mirrors the defaults named in spec.md §4.2.
func DefaultMemberConfig() MemberConfig {
	return MemberConfig{
		Server: ServerConfig{Host: "0.0.0.0", Port: 9000},
		Intervals: IntervalsConfig{
			Poll:          30 * time.Second,
			Check:         60 * time.Second,
			Heartbeat:     45 * time.Second,
			BandwidthTest: 300 * time.Second,
			Traceroute:    300 * time.Second,
			MetricsPush:   30 * time.Second,
		},
		Checks: ChecksConfig{
			TCPTimeout:          5 * time.Second,
			HTTPTimeout:         10 * time.Second,
			HTTPEndpoints:       []string{"/health", "/metrics"},
			BandwidthTestSizeMB: 1,
			TracerouteTimeout:   60 * time.Second,
		},
	}
}

// Validate checks fields the scheduler and registration contract rely on.
func (c MemberConfig) Validate() error {
	if c.Location == "" {
		return errs.Wrap(errs.ErrInvalidInput, "location is required", nil)
	}
	if c.Registry.URL == "" {
		return errs.Wrap(errs.ErrInvalidInput, "registry.url is required", nil)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errs.Wrap(errs.ErrInvalidInput, "server.port out of range", nil)
	}
	if len(c.Checks.HTTPEndpoints) == 0 {
		return errs.Wrap(errs.ErrInvalidInput, "checks.http_endpoints must be non-empty", nil)
	}
	return nil
}

// LoadMemberConfig reads path (if non-empty and present) over the default
// configuration, then applies NETRING_-prefixed environment overrides.
func LoadMemberConfig(path string) (MemberConfig, error) {
	cfg := DefaultMemberConfig()
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return MemberConfig{}, err
		}
	}
	applyMemberEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return MemberConfig{}, err
	}
	return cfg, nil
}

func applyMemberEnv(c *MemberConfig) {
	envString("NETRING_LOCATION", &c.Location)
	envString("NETRING_INSTANCE_ID", &c.InstanceID)
	envString("NETRING_REGISTRY_URL", &c.Registry.URL)
	envDuration("NETRING_INTERVALS_POLL", &c.Intervals.Poll)
	envDuration("NETRING_INTERVALS_CHECK", &c.Intervals.Check)
	envDuration("NETRING_INTERVALS_HEARTBEAT", &c.Intervals.Heartbeat)
	envDuration("NETRING_INTERVALS_BANDWIDTH_TEST", &c.Intervals.BandwidthTest)
	envDuration("NETRING_INTERVALS_TRACEROUTE", &c.Intervals.Traceroute)
	envDuration("NETRING_INTERVALS_METRICS_PUSH", &c.Intervals.MetricsPush)
	envString("NETRING_SERVER_HOST", &c.Server.Host)
	envInt("NETRING_SERVER_PORT", &c.Server.Port)
	envDuration("NETRING_CHECKS_TCP_TIMEOUT", &c.Checks.TCPTimeout)
	envDuration("NETRING_CHECKS_HTTP_TIMEOUT", &c.Checks.HTTPTimeout)
	envInt("NETRING_CHECKS_BANDWIDTH_TEST_SIZE_MB", &c.Checks.BandwidthTestSizeMB)
	envDuration("NETRING_CHECKS_TRACEROUTE_TIMEOUT", &c.Checks.TracerouteTimeout)
	envString("NETRING_HOST_IP", &c.HostIP)
}
