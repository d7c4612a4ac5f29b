package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/config"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// LiveStreams owns the hijacked dashboard websockets.
// http.Server.Shutdown does not touch hijacked connections, so they are closed here.
type LiveStreams interface {
	Close()
}

// Server is the journal HTTP API
// ⭐ SSOT: HTTP server settings live only in this file
type Server struct {
	httpServer *http.Server
	streams    LiveStreams
	logger     *logger.Logger
	config     *config.Config
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLiveStreams closes the dashboard streams on shutdown
func WithLiveStreams(streams LiveStreams) ServerOption {
	return func(s *Server) {
		s.streams = streams
	}
}

// New creates the API server
func New(cfg *config.Config, log *logger.Logger, router http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second, // statement uploads; the hub sets websocket deadlines
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: log,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves the API on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr":         ln.Addr().String(),
		"env":          s.config.Env,
		"storage":      s.config.Storage.Backend,
		"timezone":     s.config.Timezone,
		"cache":        s.config.Redis.Enabled,
		"live_streams": s.streams != nil,
	}).Info("Starting journal API server")

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown closes the dashboard streams, then drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down journal API server")

	if s.streams != nil {
		s.streams.Close()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
