package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file and
// applies defaults. The parsed file is cached.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", y.filename, err)
	}
	y.config = config
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Server: ServerData{
			ListenAddr: yamlConfig.Server.ListenAddr,
			Port:       yamlConfig.Server.Port,
			Cert:       yamlConfig.Server.Cert,
			Key:        yamlConfig.Server.Key,
			EnableCORS: yamlConfig.Server.EnableCORS,
		},
		FlightStore: FlightStoreData{
			Backend:          yamlConfig.FlightStore.Backend,
			ConnectionString: yamlConfig.FlightStore.ConnectionString,
			FixtureFile:      yamlConfig.FlightStore.FixtureFile,
			CreateSchema:     yamlConfig.FlightStore.CreateSchema,
		},
		Navdata: NavdataData{
			Path:     yamlConfig.Navdata.Path,
			SeedFile: yamlConfig.Navdata.SeedFile,
		},
		Demand: DemandData{
			MaxMonitors:   yamlConfig.Demand.MaxMonitors,
			CacheCapacity: yamlConfig.Demand.CacheCapacity,
		},
	}

	if yamlConfig.Registry != nil {
		config.Registry = &RegistryData{
			ConnectionString: yamlConfig.Registry.ConnectionString,
		}
	}

	durations := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"monitor_timeout", yamlConfig.Demand.MonitorTimeout, &config.Demand.MonitorTimeout},
		{"cache_ttl", yamlConfig.Demand.CacheTTL, &config.Demand.CacheTTL},
		{"detail_lookback", yamlConfig.Demand.DetailLookback, &config.Demand.DetailLookback},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("demand.%s: %w", d.field, err)
		}
		*d.dst = v
	}

	config.ApplyDefaults()
	return config, nil
}

// YAML-specific structs with yaml tags
type ConfigYAML struct {
	Server      ServerYAML      `yaml:"server,omitempty"`
	FlightStore FlightStoreYAML `yaml:"flight_store,omitempty"`
	Navdata     NavdataYAML     `yaml:"navdata,omitempty"`
	Registry    *RegistryYAML   `yaml:"registry,omitempty"`
	Demand      DemandYAML      `yaml:"demand,omitempty"`
}

type ServerYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	EnableCORS bool   `yaml:"enable_cors,omitempty"`
}

type FlightStoreYAML struct {
	Backend          string `yaml:"backend,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty"`
	FixtureFile      string `yaml:"fixture_file,omitempty"`
	CreateSchema     bool   `yaml:"create_schema,omitempty"`
}

type NavdataYAML struct {
	Path     string `yaml:"path,omitempty"`
	SeedFile string `yaml:"seed_file,omitempty"`
}

type RegistryYAML struct {
	ConnectionString string `yaml:"connection_string"`
}

type DemandYAML struct {
	MaxMonitors    int    `yaml:"max_monitors,omitempty"`
	MonitorTimeout string `yaml:"monitor_timeout,omitempty"`
	CacheTTL       string `yaml:"cache_ttl,omitempty"`
	CacheCapacity  int    `yaml:"cache_capacity,omitempty"`
	DetailLookback string `yaml:"detail_lookback,omitempty"`
}
