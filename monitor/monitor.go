// Package monitor serves a read-only HTTP view of the running kitchen.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/najoast/brigade/config"
	"github.com/najoast/brigade/core"
	"github.com/najoast/brigade/kitchen"
)

// RosterSource answers with the chef's current roster. *kitchen.Brigade
// implements it.
type RosterSource interface {
	Roster(ctx context.Context) (kitchen.Roster, error)
}

var _ RosterSource = (*kitchen.Brigade)(nil)

// HealthFunc reports per-service health; a nil error means healthy.
type HealthFunc func(ctx context.Context) map[string]error

// Sources is what the monitor reads from. Nil fields are reported as
// unavailable.
type Sources struct {
	System  core.ActorSystem
	Kitchen RosterSource
	Health  HealthFunc
}

// Server is the monitor HTTP server.
type Server struct {
	cfg     config.MonitorConfig
	src     Sources
	logger  *slog.Logger
	engine  *gin.Engine
	started time.Time

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
}

// New creates a monitor server. Nothing listens until Start.
func New(cfg config.MonitorConfig, src Sources, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 2 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		src:     src,
		logger:  logger.With("component", "monitor"),
		started: time.Now(),
	}

	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

// Engine exposes the underlying *gin.Engine, mostly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return errors.New("monitor already started")
	}

	addr := net.JoinHostPort(s.cfg.Address, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("monitor: listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server stopped", "error", err)
		}
	}(s.http)

	s.logger.Info("monitor listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}
