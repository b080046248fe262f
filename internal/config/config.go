// Package config loads registry and member configuration from a YAML file
// with environment variable overrides, following the store/server/intervals
// layout of spec.md §6.4. Every field has a default so a missing file still
// produces a runnable configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"netring/internal/errs"
)

// StoreConfig configures the registry's backing Redis store.
type StoreConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// ServerConfig configures an HTTP listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// ExpectedMembersConfig configures the registry's optional expected-location
// missing-member detection.
type ExpectedMembersConfig struct {
	EnableMissingDetection bool          `yaml:"enable_missing_detection"`
	ConfigFile             string        `yaml:"config_file"`
	MissingCheckInterval   time.Duration `yaml:"missing_check_interval"`
}

// RegistryConfig is the root configuration for the registry process.
type RegistryConfig struct {
	Store             StoreConfig           `yaml:"store"`
	Server            ServerConfig          `yaml:"server"`
	MemberTTL         time.Duration         `yaml:"member_ttl"`
	CleanupInterval   time.Duration         `yaml:"cleanup_interval"`
	DeregisteredGrace time.Duration         `yaml:"deregistered_grace"`
	ExpectedMembers   ExpectedMembersConfig `yaml:"expected_members"`
}

// DefaultRegistryConfig mirrors the defaults named throughout spec.md §4.1.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Store:             StoreConfig{Host: "127.0.0.1", Port: 6379, DB: 0},
		Server:            ServerConfig{Host: "0.0.0.0", Port: 8500},
		MemberTTL:         300 * time.Second,
		CleanupInterval:   60 * time.Second,
		DeregisteredGrace: 3600 * time.Second,
		ExpectedMembers: ExpectedMembersConfig{
			EnableMissingDetection: false,
			MissingCheckInterval:   30 * time.Second,
		},
	}
}

// Validate checks the invariants register() and the background sweep rely
// on; it never mutates fields, unlike some loaders that clamp silently.
func (c RegistryConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errs.Wrap(errs.ErrInvalidInput, "server.port out of range", nil)
	}
	if c.MemberTTL <= 0 {
		return errs.Wrap(errs.ErrInvalidInput, "member_ttl must be positive", nil)
	}
	if c.CleanupInterval <= 0 {
		return errs.Wrap(errs.ErrInvalidInput, "cleanup_interval must be positive", nil)
	}
	if c.DeregisteredGrace <= 0 {
		return errs.Wrap(errs.ErrInvalidInput, "deregistered_grace must be positive", nil)
	}
	return nil
}

// LoadRegistryConfig reads path (if non-empty and present) over the default
// configuration, then applies NETRING_-prefixed environment overrides.
func LoadRegistryConfig(path string) (RegistryConfig, error) {
	cfg := DefaultRegistryConfig()
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return RegistryConfig{}, err
		}
	}
	applyRegistryEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return RegistryConfig{}, err
	}
	return cfg, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.ErrFatal, "read config file "+path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.ErrFatal, "parse config file "+path, err)
	}
	return nil
}

func applyRegistryEnv(c *RegistryConfig) {
	envString("NETRING_STORE_HOST", &c.Store.Host)
	envInt("NETRING_STORE_PORT", &c.Store.Port)
	envInt("NETRING_STORE_DB", &c.Store.DB)
	envString("NETRING_STORE_PASSWORD", &c.Store.Password)
	envString("NETRING_SERVER_HOST", &c.Server.Host)
	envInt("NETRING_SERVER_PORT", &c.Server.Port)
	envDuration("NETRING_MEMBER_TTL", &c.MemberTTL)
	envDuration("NETRING_CLEANUP_INTERVAL", &c.CleanupInterval)
	envDuration("NETRING_DEREGISTERED_GRACE", &c.DeregisteredGrace)
	envBool("NETRING_EXPECTED_MEMBERS_ENABLE_MISSING_DETECTION", &c.ExpectedMembers.EnableMissingDetection)
	envString("NETRING_EXPECTED_MEMBERS_CONFIG_FILE", &c.ExpectedMembers.ConfigFile)
	envDuration("NETRING_EXPECTED_MEMBERS_MISSING_CHECK_INTERVAL", &c.ExpectedMembers.MissingCheckInterval)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
