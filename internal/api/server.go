// Package api provides the HTTP REST API and WebSocket server for SmartEgg Core.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/auth"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/config"
	"github.com/smartegg/smartegg-core/internal/infrastructure/logging"
	"github.com/smartegg/smartegg-core/internal/ingest"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	DB          HealthChecker
	Auth        *auth.Service
	Users       auth.UserRepository
	Incubations incubation.Repository
	Readings    incubation.ReadingRepository
	Actuators   *actuator.Service
	Alerts      alert.Repository
	Ingest      *ingest.Pipeline
	Broker      *realtime.Broker
	Version     string
}

// Server is the HTTP API server for SmartEgg Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	db          HealthChecker
	auth        *auth.Service
	users       auth.UserRepository
	incubations incubation.Repository
	readings    incubation.ReadingRepository
	actuators   *actuator.Service
	alerts      alert.Repository
	ingest      *ingest.Pipeline
	version     string
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Auth == nil || deps.Users == nil:
		return nil, fmt.Errorf("auth service and user repository are required")
	case deps.Incubations == nil || deps.Readings == nil || deps.Alerts == nil:
		return nil, fmt.Errorf("incubation, reading and alert repositories are required")
	case deps.Actuators == nil:
		return nil, fmt.Errorf("actuator service is required")
	case deps.Ingest == nil:
		return nil, fmt.Errorf("ingest pipeline is required")
	case deps.Broker == nil:
		return nil, fmt.Errorf("realtime broker is required")
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		db:          deps.DB,
		auth:        deps.Auth,
		users:       deps.Users,
		incubations: deps.Incubations,
		readings:    deps.Readings,
		actuators:   deps.Actuators,
		alerts:      deps.Alerts,
		ingest:      deps.Ingest,
		version:     deps.Version,
		hub:         NewHub(deps.WS, deps.Logger, deps.Broker, deps.Incubations),
		tickets:     newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and ticket cleanup, builds the router and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Handler returns the fully wired router. Useful for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
