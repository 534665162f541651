package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/homio-core/internal/datapoint"
	"github.com/nerrad567/homio-core/internal/infrastructure/config"
	"github.com/nerrad567/homio-core/internal/infrastructure/logging"
	"github.com/nerrad567/homio-core/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Metrics    config.MetricsConfig
	Logger     *logging.Logger
	Store      *datapoint.Store
	Resolver   *datapoint.Resolver
	Repository datapoint.Repository
	Collectors *metrics.Metrics
	Hub        *Hub // If set, the server uses this hub instead of creating its own
	Version    string
}

// Server is the HTTP API server for Homio Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger
	store      *datapoint.Store
	resolver   *datapoint.Resolver
	repo       datapoint.Repository
	collectors *metrics.Metrics
	version    string
	server     *http.Server
	addr       string
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If the logger or store is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("datapoint store is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger,
		store:      deps.Store,
		resolver:   deps.Resolver,
		repo:       deps.Repository,
		collectors: deps.Collectors,
		version:    deps.Version,
		hub:        deps.Hub,
	}, nil
}

// Hub returns the WebSocket hub, creating it if needed. The ingest
// pipeline broadcasts through it.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// The listener is bound synchronously so port conflicts are reported to the
// caller; requests are served in a background goroutine until Close().
//
// Parameters:
//   - ctx: Parent context for background goroutines
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.Hub().Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener: %w", err)
	}
	s.addr = ln.Addr().String()
	s.logger.Info("API server starting", "address", s.addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
