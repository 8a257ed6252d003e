package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tuesdata/internal/config"
)

// Server wraps the standard HTTP server with the configured timeouts.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server listening on the configured port.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
