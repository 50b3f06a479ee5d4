package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/demandmonitor/internal/app"
	"github.com/chrissnell/demandmonitor/internal/log"
	"github.com/chrissnell/demandmonitor/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("demandmonitor %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	provider := config.NewEnvProvider(config.NewYAMLProvider(filename))
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}
	if err := cfgData.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfgData, nil
}
