// Package server provides HTTP server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hirepilot/hirepilot/internal/core/api"
	"github.com/hirepilot/hirepilot/internal/core/auth"
	"github.com/hirepilot/hirepilot/internal/core/config"
)

// HTTPServer manages the HTTP server lifecycle.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	config   *config.ServiceConfig
}

// NewHTTPServer creates an HTTP server with the auth middleware on every API
// route. Health stays outside the middleware so probes need no credentials.
func NewHTTPServer(cfg *config.ServiceConfig, service *api.Service, authenticator *auth.Authenticator) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/v1/health", service.HandleHealth)
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)
		service.Routes(r)
	})

	return &HTTPServer{
		server: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		config: cfg,
	}, nil
}

// Start binds the listener and serves requests. Blocks until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.listener = listener
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server with a 30-second ceiling, then forces
// the close.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed, forced close: %w", err)
	}
	return nil
}

// Addr reports the bound address. Useful when Port 0 picks an ephemeral port
// in tests. Empty until Start has bound the listener.
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
