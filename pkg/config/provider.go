package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// Flight store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Server      ServerData      `json:"server"`
	FlightStore FlightStoreData `json:"flight_store"`
	Navdata     NavdataData     `json:"navdata"`
	Registry    *RegistryData   `json:"registry,omitempty"`
	Demand      DemandData      `json:"demand"`
}

// ServerData configures the HTTP listener
type ServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	EnableCORS bool   `json:"enable_cors,omitempty"`
}

// FlightStoreData selects where live flight data comes from
type FlightStoreData struct {
	Backend          string `json:"backend"`
	ConnectionString string `json:"connection_string,omitempty"`
	FixtureFile      string `json:"fixture_file,omitempty"`
	CreateSchema     bool   `json:"create_schema,omitempty"`
}

// NavdataData points at the reference navigation database
type NavdataData struct {
	Path     string `json:"path"`
	SeedFile string `json:"seed_file,omitempty"`
}

// RegistryData configures the named monitor registry. A nil registry
// disables the monitors endpoint.
type RegistryData struct {
	ConnectionString string `json:"connection_string"`
}

// DemandData tunes batch evaluation
type DemandData struct {
	MaxMonitors    int           `json:"max_monitors"`
	MonitorTimeout time.Duration `json:"monitor_timeout"`
	CacheTTL       time.Duration `json:"cache_ttl"`
	CacheCapacity  int           `json:"cache_capacity"`
	DetailLookback time.Duration `json:"detail_lookback"`
}

// ApplyDefaults fills unset fields.
func (c *ConfigData) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.FlightStore.Backend == "" {
		c.FlightStore.Backend = BackendMemory
	}
	if c.Navdata.Path == "" {
		c.Navdata.Path = "navdata.db"
	}
	if c.Demand.MaxMonitors == 0 {
		c.Demand.MaxMonitors = 50
	}
	if c.Demand.MonitorTimeout == 0 {
		c.Demand.MonitorTimeout = 10 * time.Second
	}
	if c.Demand.CacheTTL == 0 {
		c.Demand.CacheTTL = 30 * time.Second
	}
	if c.Demand.CacheCapacity == 0 {
		c.Demand.CacheCapacity = 256
	}
	if c.Demand.DetailLookback == 0 {
		c.Demand.DetailLookback = 2 * time.Hour
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *ConfigData) Validate() error {
	switch c.FlightStore.Backend {
	case BackendPostgres:
		if c.FlightStore.ConnectionString == "" {
			return fmt.Errorf("flight_store: connection_string is required for the %s backend", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("flight_store: unknown backend %q", c.FlightStore.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("server: cert and key must be set together")
	}
	if c.Registry != nil && c.Registry.ConnectionString == "" {
		return fmt.Errorf("registry: connection_string is required")
	}
	if c.Demand.MaxMonitors < 0 || c.Demand.CacheCapacity < 0 {
		return fmt.Errorf("demand: max_monitors and cache_capacity must not be negative")
	}
	if c.Demand.MonitorTimeout < 0 || c.Demand.CacheTTL < 0 || c.Demand.DetailLookback < 0 {
		return fmt.Errorf("demand: durations must not be negative")
	}
	return nil
}
