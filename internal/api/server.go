package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/lightsync/internal/device"
	"github.com/nerrad567/lightsync/internal/infrastructure/config"
	"github.com/nerrad567/lightsync/internal/infrastructure/logging"
	"github.com/nerrad567/lightsync/internal/mirror"
)

const (
	// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
	// to complete during shutdown.
	gracefulShutdownTimeout = 10 * time.Second
)

// SyncStatus is the read-only view of the mirror loop served by the API.
// *mirror.Syncer satisfies it.
type SyncStatus interface {
	RunID() string
	Sink() string
	Sources() []string
	Interval() time.Duration
	Metrics() mirror.Metrics
	LastForwarded() map[string]device.LightState
}

// HistoryReader reads the forward journal.
type HistoryReader interface {
	GetHistory(ctx context.Context, source string, limit int) ([]mirror.HistoryEntry, error)
}

// HealthChecker is implemented by every optional backend (database, MQTT, InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Syncer  SyncStatus
	Mode    string
	Version string

	// History is optional; the history route answers 503 without it.
	History HistoryReader

	// Checks are reported by the health route, keyed by component name.
	Checks map[string]HealthChecker

	// ExternalHub is used instead of an internal hub when set. The caller
	// owns its Run loop.
	ExternalHub *Hub
}

// Server is the local status API.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	syncer      SyncStatus
	history     HistoryReader
	checks      map[string]HealthChecker
	mode        string
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc

	addrMu sync.RWMutex
	addr   net.Addr
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If the logger or syncer is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		syncer:    deps.Syncer,
		history:   deps.History,
		checks:    deps.Checks,
		mode:      deps.Mode,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub. It is a mirror.Observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener on %s: %w", s.server.Addr, err)
	}

	s.addrMu.Lock()
	s.addr = listener.Addr()
	s.addrMu.Unlock()

	s.logger.Info("API server listening", "address", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
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
