package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.TickInterval())
	assert.Equal(t, 60*time.Second, cfg.Connectivity.PollInterval())
	assert.Equal(t, 120*time.Second, cfg.DNS.PollInterval())
}

func TestValidateRejectsBadDetectionMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detection mode")
}

func TestValidateRejectsBadTargets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.TargetV4 = "not-an-ip"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Routing.TargetV4 = "2606:4700:4700::1111" // v6 in the v4 slot
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Routing.TargetV6 = "1.1.1.1"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsCustomProviderWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectivity.Provider = "custom"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom_url")

	cfg.Connectivity.CustomURL = "https://ifconfig.example/json"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectivity.Strategies = []Strategy{"astrology"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadHomeResolver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DNS.HomeResolvers = []string{"1.2.3.4", "85.88.0.0/16", "bogus"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidateRejectsEnabledServiceModeWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DNS.Enabled = true
	cfg.DNS.ServiceURL = ""
	assert.Error(t, cfg.Validate())

	cfg.DNS.Mode = DNSModeDirect
	assert.NoError(t, cfg.Validate())
}

func TestAdvisories(t *testing.T) {
	cfg := DefaultConfig()
	// Routing enabled without an allow-list.
	advisories := cfg.Advisories()
	require.Len(t, advisories, 1)
	assert.Contains(t, advisories[0], "allowed interfaces")

	cfg.Routing.AllowedInterfaces = []string{"tun0"}
	assert.Empty(t, cfg.Advisories())

	cfg.Connectivity.Enabled = true // combined strategy, no home data
	cfg.DNS.Enabled = true          // alert_on_home_isp, no home data
	advisories = cfg.Advisories()
	require.Len(t, advisories, 2)
	assert.Contains(t, advisories[0], "combined strategy")
	assert.Contains(t, advisories[1], "home_resolvers")

	cfg.Connectivity.HomeCountry = "DE"
	cfg.Connectivity.HomeISP = "Telekom"
	assert.Empty(t, cfg.Advisories())
}

func TestManagerCreatesDefaultOnFirstLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)

	require.NoError(t, m.Load())
	assert.FileExists(t, path)
	assert.Equal(t, DefaultConfig().CheckInterval, m.Get().CheckInterval)
}

func TestManagerLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := []byte("version: 1\nrouting:\n  enabled: true\n  allowed_interfaces: [tun0, wg0]\n")
	require.NoError(t, os.WriteFile(path, partial, 0600))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, []string{"tun0", "wg0"}, cfg.Routing.AllowedInterfaces)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "1.1.1.1", cfg.Routing.TargetV4)
	assert.Equal(t, 120, cfg.DNS.Interval)
}

func TestManagerLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	bad := []byte("version: 1\nrouting:\n  detection_mode: turbo\n")
	require.NoError(t, os.WriteFile(path, bad, 0600))

	m := NewManager(path)
	assert.Error(t, m.Load())
}

func TestManagerUpdateValidatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	cfg.Routing.Mode = "turbo"
	assert.Error(t, m.Update(cfg))

	cfg.Routing.Mode = ModePrecision
	cfg.Routing.AllowedInterfaces = []string{"wg0"}
	require.NoError(t, m.Update(cfg))

	reloaded := NewManager(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, ModePrecision, reloaded.Get().Routing.Mode)
	assert.Equal(t, []string{"wg0"}, reloaded.Get().Routing.AllowedInterfaces)
}
