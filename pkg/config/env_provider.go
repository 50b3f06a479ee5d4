package config

import (
	"os"
	"strconv"
)

// Environment variables that override file configuration.
const (
	EnvFlightStoreDSN = "DEMANDMONITOR_FLIGHT_STORE_DSN"
	EnvRegistryDSN    = "DEMANDMONITOR_REGISTRY_DSN"
	EnvPort           = "DEMANDMONITOR_PORT"
)

// EnvProvider wraps a ConfigProvider so that connection strings and the
// listen port can come from the environment instead of the file.
type EnvProvider struct {
	provider ConfigProvider
	lookup   func(string) (string, bool)
}

// NewEnvProvider creates a provider that overlays the process environment
func NewEnvProvider(provider ConfigProvider) *EnvProvider {
	return &EnvProvider{
		provider: provider,
		lookup:   os.LookupEnv,
	}
}

// LoadConfig delegates to the wrapped provider and applies overrides
func (e *EnvProvider) LoadConfig() (*ConfigData, error) {
	config, err := e.provider.LoadConfig()
	if err != nil {
		return nil, err
	}

	if v, ok := e.lookup(EnvFlightStoreDSN); ok && v != "" {
		config.FlightStore.ConnectionString = v
	}
	if v, ok := e.lookup(EnvRegistryDSN); ok && v != "" {
		if config.Registry == nil {
			config.Registry = &RegistryData{}
		}
		config.Registry.ConnectionString = v
	}
	if v, ok := e.lookup(EnvPort); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	return config, nil
}

func (e *EnvProvider) IsReadOnly() bool {
	return e.provider.IsReadOnly()
}

func (e *EnvProvider) Close() error {
	return e.provider.Close()
}
