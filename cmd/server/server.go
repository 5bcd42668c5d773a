package main

import (
	"context"
	"time"

	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/infrastructure"
)

// Server wires infrastructure, modules, and the HTTP listener for one
// process.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

// NewServer builds everything from cfg without starting it.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	modules.Mount(router)

	infra.Logger.Info("server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"modules", router.Prefixes(),
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start runs startup hooks and binds the listener. Readiness is logged
// once every startup hook has returned.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	lc := s.infra.Lifecycle
	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("startup complete", "addr", s.http.Addr(), "ready", lc.Ready(), "checks", lc.Checks())
	}()
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Shutdown(timeout)
}

// Shutdown cancels the lifecycle context and waits up to timeout for
// shutdown hooks.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
