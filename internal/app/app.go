package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/demandmonitor/internal/controllers/restserver"
	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/internal/flightstore"
	"github.com/chrissnell/demandmonitor/internal/log"
	"github.com/chrissnell/demandmonitor/internal/navdata"
	"github.com/chrissnell/demandmonitor/internal/registry"
	"github.com/chrissnell/demandmonitor/pkg/config"
)

// flightSource is what the demand engine needs from a flight store.
type flightSource interface {
	demand.FlightStore
	demand.LiveTraffic
	Ping(ctx context.Context) error
}

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flights, closeFlights, err := a.openFlightStore(ctx)
	if err != nil {
		return err
	}
	defer closeFlights()

	nav, err := navdata.Open(a.cfg.Navdata.Path, log.Named("navdata"))
	if err != nil {
		return err
	}
	defer nav.Close()
	if a.cfg.Navdata.SeedFile != "" {
		// Seed only an empty database.
		n, err := nav.FixCount(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := nav.LoadSeedFile(ctx, a.cfg.Navdata.SeedFile); err != nil {
				return err
			}
		} else {
			a.logger.Infof("navdata already holds %d fixes; skipping seed %s", n, a.cfg.Navdata.SeedFile)
		}
	}

	counter := demand.NewCounter(flights, nav, log.Named("counter"))
	geometry := demand.NewGeometryResolver(nav, flights, log.Named("geometry"))
	aggregator := demand.NewAggregator(counter, geometry, demand.Options{
		MaxMonitors:    a.cfg.Demand.MaxMonitors,
		MonitorTimeout: a.cfg.Demand.MonitorTimeout,
		DetailLookback: a.cfg.Demand.DetailLookback,
		CacheTTL:       a.cfg.Demand.CacheTTL,
		CacheCapacity:  a.cfg.Demand.CacheCapacity,
	}, log.Named("aggregator"))

	deps := restserver.Dependencies{
		Aggregator: aggregator,
		Airways:    nav,
		HealthChecks: map[string]restserver.HealthChecker{
			"flight_store": flights,
			"navdata":      nav,
		},
	}
	if a.cfg.Registry != nil {
		reg, err := registry.Connect(a.cfg.Registry.ConnectionString, log.Named("registry"))
		if err != nil {
			return err
		}
		deps.Registry = reg
	}

	rest, err := restserver.NewController(ctx, &wg, a.cfg.Server, deps, log.Named("restserver"))
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

func (a *App) openFlightStore(ctx context.Context) (flightSource, func(), error) {
	fs := a.cfg.FlightStore
	switch fs.Backend {
	case config.BackendPostgres:
		pg, err := flightstore.NewPostgres(ctx, fs.ConnectionString, log.Named("flightstore"))
		if err != nil {
			return nil, nil, err
		}
		if fs.CreateSchema {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return pg, pg.Close, nil

	case config.BackendMemory:
		mem := flightstore.NewMemory(log.Named("flightstore"))
		if fs.FixtureFile != "" {
			if err := mem.LoadFixture(fs.FixtureFile, time.Now().UTC()); err != nil {
				return nil, nil, err
			}
		}
		return mem, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported flight store backend: %s", fs.Backend)
}
