// Package server provides the operations HTTP server of the watch command:
// Prometheus metrics, health probes and build information.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"tabula-hq/formula/pkg/telemetry/health"
)

// Config contains HTTP server settings.
type Config struct {
	// ListenAddress is the TCP address to bind. Port 0 picks a free port.
	ListenAddress string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:   "127.0.0.1:9090",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Routes are the handlers the server exposes.
type Routes struct {
	// Metrics serves the Prometheus registry on MetricsPath. Nil disables it.
	Metrics     http.Handler
	MetricsPath string

	// Health serves the liveness and readiness probes. Nil disables them.
	Health *health.Checker

	// BuildInfo is served on the version endpoint together with the probes.
	BuildInfo health.BuildInfo
}

// Server is the operations HTTP server.
type Server struct {
	config       *Config
	routes       Routes
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. It does not bind until Listen or Start.
func New(cfg *Config, routes Routes, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		routes: routes,
		logger: logger.With("component", "server"),
	}
}

// Listen binds the listen address. Addr is valid afterwards.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	srv, ln := s.httpServer, s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting operations server",
			"address", ln.Addr().String(),
			"metrics_path", s.routes.MetricsPath,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv, running := s.httpServer, s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("operations server stopped")
	})

	return shutdownErr
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.routes.Metrics != nil {
		path := s.routes.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.routes.Metrics)
	}
	if s.routes.Health != nil {
		health.Register(mux, s.routes.Health, s.routes.BuildInfo)
	}

	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
