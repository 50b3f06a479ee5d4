// Package restserver exposes demand monitoring over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/internal/log"
	"github.com/chrissnell/demandmonitor/internal/navdata"
	"github.com/chrissnell/demandmonitor/internal/registry"
	"github.com/chrissnell/demandmonitor/pkg/config"
)

// AirwayLookup serves published airway geometry.
type AirwayLookup interface {
	Airway(ctx context.Context, name string) (*navdata.Airway, error)
}

// MonitorRegistry stores named monitors.
type MonitorRegistry interface {
	List(ctx context.Context) ([]registry.Entry, error)
	Create(ctx context.Context, req registry.CreateRequest) (registry.Entry, bool, error)
	Delete(ctx context.Context, id uint, key string) error
}

// HealthChecker is a dependency reported by /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the handlers call. Registry and Airways
// may be nil, which disables their endpoints.
type Dependencies struct {
	Aggregator   *demand.Aggregator
	Airways      AirwayLookup
	Registry     MonitorRegistry
	HealthChecks map[string]HealthChecker
}

// Controller represents the REST server controller
type Controller struct {
	ctx          context.Context
	wg           *sync.WaitGroup
	serverConfig config.ServerData
	Server       http.Server
	deps         Dependencies
	logger       *zap.SugaredLogger
	handlers     *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, sc config.ServerData, deps Dependencies, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Aggregator == nil {
		return nil, fmt.Errorf("REST server requires a demand aggregator")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if sc.ListenAddr == "" {
		logger.Info("server.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		sc.ListenAddr = "0.0.0.0"
	}
	if sc.Port == 0 {
		logger.Info("server.port not provided; defaulting to 8080")
		sc.Port = 8080
	}

	ctrl := &Controller{
		ctx:          ctx,
		wg:           wg,
		serverConfig: sc,
		deps:         deps,
		logger:       logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", sc.ListenAddr, sc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		c.logger.Infof("REST server starting on %s", c.Server.Addr)

		var err error
		if c.serverConfig.Cert != "" && c.serverConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.serverConfig.Cert, c.serverConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the fully wrapped router.
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	h = gzhttp.GzipHandler(h)
	if c.serverConfig.EnableCORS {
		h = handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(log.GetZapLogger())),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = requestIDMiddleware(h)
	return log.HTTPMiddleware(h)
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/demand/batch", c.handlers.GetBatch).Methods(http.MethodGet)
	api.HandleFunc("/demand/batch", c.handlers.PostBatch).Methods(http.MethodPost)
	api.HandleFunc("/demand/details", c.handlers.GetDetails).Methods(http.MethodGet)
	api.HandleFunc("/demand/monitors", c.handlers.ListMonitors).Methods(http.MethodGet)
	api.HandleFunc("/demand/monitors", c.handlers.CreateMonitor).Methods(http.MethodPost)
	api.HandleFunc("/demand/monitors", c.handlers.DeleteMonitor).Methods(http.MethodDelete)
	api.HandleFunc("/airway", c.handlers.GetAirway).Methods(http.MethodGet)
	api.HandleFunc("/logs/http", c.handlers.GetHTTPLogs).Methods(http.MethodGet)

	router.HandleFunc("/healthz", c.handlers.Healthz).Methods(http.MethodGet)

	return router
}

// requestIDMiddleware propagates or assigns an X-Request-Id.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(log.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(log.RequestIDHeader, id)
		}
		w.Header().Set(log.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
