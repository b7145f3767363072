// Package server is the GradeBench daemon's control plane: sync start and
// progress endpoints, the group assignment API, status and event streaming.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gradebench/gradebench/internal/jobs"
	"github.com/gradebench/gradebench/internal/server/middleware"
	"github.com/gradebench/gradebench/internal/store"
)

// Config holds the control plane's listen address and auth token.
type Config struct {
	Addr      string
	AuthToken string
}

// Deps are the collaborators the handlers are wired to.
type Deps struct {
	Tracker *jobs.Tracker
	Runner  *jobs.Runner
	Store   *store.Store
}

type Server struct {
	config *Config
	server *http.Server
}

func New(config *Config, deps *Deps) (*Server, error) {
	if deps.Tracker == nil || deps.Runner == nil || deps.Store == nil {
		return nil, fmt.Errorf("server: missing dependencies")
	}

	routes := SetupRoutes(deps, &RouteConfig{
		Auth: middleware.TokenAuthConfig{
			Token: config.AuthToken,
		},
	})

	httpServer := &http.Server{
		Addr:    config.Addr,
		Handler: routes,
		// Timeouts to prevent slow client attacks. WriteTimeout stays 0
		// because the SSE endpoint holds its response open.
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	return &Server{
		config: config,
		server: httpServer,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("control plane start", "addr", fmt.Sprintf("http://%s", s.config.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	return s.server.Shutdown(ctx)
}
