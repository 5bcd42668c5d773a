// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/infrastructure"
	"github.com/JaimeStill/linkguard/pkg/middleware"
	"github.com/JaimeStill/linkguard/pkg/module"
	"github.com/JaimeStill/linkguard/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime, cfg.Scoring.SectorsPath)
	if err != nil {
		return nil, err
	}

	groups := routeGroups(domain, cfg, runtime)

	doc, err := NewSpec(cfg, groups...)
	if err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}
	spec, err := openapi.MarshalJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, groups, spec)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(
		middleware.RequestID(),
		middleware.Logger(runtime.Logger),
		middleware.Recover(runtime.Logger),
		middleware.CORS(&cfg.API.CORS),
	)

	return m, nil
}
