package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryConfigValidates(t *testing.T) {
	cfg := DefaultRegistryConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadRegistryConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("member_ttl: 5s\nstore:\n  host: redis.internal\n  port: 6380\n"), 0o644))

	cfg, err := LoadRegistryConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.MemberTTL)
	assert.Equal(t, "redis.internal", cfg.Store.Host)
	assert.Equal(t, 6380, cfg.Store.Port)
	// Untouched fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.CleanupInterval)
}

func TestLoadRegistryConfigEnvOverride(t *testing.T) {
	t.Setenv("NETRING_MEMBER_TTL", "9s")
	t.Setenv("NETRING_STORE_HOST", "from-env")

	cfg, err := LoadRegistryConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.MemberTTL)
	assert.Equal(t, "from-env", cfg.Store.Host)
}

func TestRegistryConfigValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultRegistryConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestDefaultMemberConfigRequiresLocationAndRegistry(t *testing.T) {
	cfg := DefaultMemberConfig()
	assert.Error(t, cfg.Validate())

	cfg.Location = "us1"
	cfg.Registry.URL = "http://registry:8500"
	assert.NoError(t, cfg.Validate())
}

func TestMemberConfigEnvOverride(t *testing.T) {
	t.Setenv("NETRING_LOCATION", "eu1")
	t.Setenv("NETRING_REGISTRY_URL", "http://registry.example:8500")

	cfg, err := LoadMemberConfig("")
	require.NoError(t, err)
	assert.Equal(t, "eu1", cfg.Location)
	assert.Equal(t, "http://registry.example:8500", cfg.Registry.URL)
}
