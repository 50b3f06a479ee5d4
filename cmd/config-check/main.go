package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/demandmonitor/pkg/config"
)

func main() {
	yamlFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	noEnv := flag.Bool("no-env", false, "Ignore environment overrides")
	flag.Parse()

	fmt.Println("Configuration Check")
	fmt.Println("===================")

	var provider config.ConfigProvider = config.NewYAMLProvider(*yamlFile)
	if !*noEnv {
		provider = config.NewEnvProvider(provider)
	}
	defer provider.Close()

	fmt.Printf("Loading configuration: %s\n", *yamlFile)
	cfg, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error loading config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration parsed")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration valid")

	// Connection strings are masked before printing.
	if cfg.FlightStore.ConnectionString != "" {
		cfg.FlightStore.ConnectionString = "********"
	}
	if cfg.Registry != nil {
		cfg.Registry.ConnectionString = "********"
	}

	fmt.Println("\nEffective configuration:")
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
		os.Exit(1)
	}
}
