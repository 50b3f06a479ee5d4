package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  listen_addr: 127.0.0.1
  port: 9090
flight_store:
  backend: postgres
  connection_string: postgres://adl@localhost/adl
navdata:
  path: /var/lib/demandmonitor/navdata.db
  seed_file: /etc/demandmonitor/navdata.json
registry:
  connection_string: postgres://adl@localhost/monitors
demand:
  max_monitors: 25
  monitor_timeout: 5s
  cache_ttl: 1m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	cfg, err := NewYAMLProvider(writeConfig(t, sampleYAML)).LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1", cfg.Server.ListenAddr)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.FlightStore.Backend)
	assert.Equal(t, "/etc/demandmonitor/navdata.json", cfg.Navdata.SeedFile)
	require.NotNil(t, cfg.Registry)
	assert.Equal(t, "postgres://adl@localhost/monitors", cfg.Registry.ConnectionString)

	assert.Equal(t, 25, cfg.Demand.MaxMonitors)
	assert.Equal(t, 5*time.Second, cfg.Demand.MonitorTimeout)
	assert.Equal(t, time.Minute, cfg.Demand.CacheTTL)
	// Unset values fall back to defaults.
	assert.Equal(t, 256, cfg.Demand.CacheCapacity)
	assert.Equal(t, 2*time.Hour, cfg.Demand.DetailLookback)
}

func TestYAMLProviderDefaults(t *testing.T) {
	cfg, err := NewYAMLProvider(writeConfig(t, "{}\n")).LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.FlightStore.Backend)
	assert.Equal(t, "navdata.db", cfg.Navdata.Path)
	assert.Nil(t, cfg.Registry)
	assert.Equal(t, 50, cfg.Demand.MaxMonitors)
	assert.Equal(t, 10*time.Second, cfg.Demand.MonitorTimeout)
}

func TestYAMLProviderBadDuration(t *testing.T) {
	_, err := NewYAMLProvider(writeConfig(t, "demand:\n  cache_ttl: soon\n")).LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_ttl")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConfigData)
		wantErr string
	}{
		{"defaults are valid", func(*ConfigData) {}, ""},
		{"unknown backend", func(c *ConfigData) { c.FlightStore.Backend = "mssql" }, "unknown backend"},
		{"postgres without dsn", func(c *ConfigData) { c.FlightStore.Backend = BackendPostgres }, "connection_string"},
		{"bad port", func(c *ConfigData) { c.Server.Port = 70000 }, "invalid port"},
		{"cert without key", func(c *ConfigData) { c.Server.Cert = "server.crt" }, "cert and key"},
		{"empty registry", func(c *ConfigData) { c.Registry = &RegistryData{} }, "registry"},
		{"negative ttl", func(c *ConfigData) { c.Demand.CacheTTL = -time.Second }, "durations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ConfigData{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvProviderOverrides(t *testing.T) {
	env := map[string]string{
		EnvFlightStoreDSN: "postgres://env@db/adl",
		EnvRegistryDSN:    "postgres://env@db/monitors",
		EnvPort:           "7070",
	}
	p := NewEnvProvider(NewYAMLProvider(writeConfig(t, "flight_store:\n  backend: postgres\n")))
	p.lookup = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres://env@db/adl", cfg.FlightStore.ConnectionString)
	require.NotNil(t, cfg.Registry)
	assert.Equal(t, "postgres://env@db/monitors", cfg.Registry.ConnectionString)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, p.IsReadOnly())
}
