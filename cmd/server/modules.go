package main

import (
	"github.com/JaimeStill/linkguard/internal/api"
	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/infrastructure"
	"github.com/JaimeStill/linkguard/pkg/middleware"
	"github.com/JaimeStill/linkguard/pkg/module"
	"github.com/JaimeStill/linkguard/web/scalar"
)

// ScalarPrefix is where the API reference UI is mounted.
const ScalarPrefix = "/scalar"

// Modules lists the prefixed modules the router mounts.
type Modules []*module.Module

// NewModules builds the API module and the Scalar reference UI that
// renders its OpenAPI document.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	docs := scalar.NewModule(ScalarPrefix, cfg.API.BasePath+"/openapi.json", cfg.API.OpenAPI.Title)
	docs.Use(
		middleware.RequestID(),
		middleware.Logger(infra.Logger.With("module", "scalar")),
	)

	return Modules{apiModule, docs}, nil
}

// Mount registers every module on router.
func (m Modules) Mount(router *module.Router) {
	for _, mod := range m {
		router.Mount(mod)
	}
}

// buildRouter registers the native probe and metrics endpoints that
// live outside any module prefix.
func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", healthz)
	router.HandleNative("GET /readyz", readyz(infra.Lifecycle, cfg.Version))

	if cfg.Metrics.Enabled {
		router.HandleNative("GET "+cfg.Metrics.Path, infra.Metrics.Handler().ServeHTTP)
	}

	return router
}
