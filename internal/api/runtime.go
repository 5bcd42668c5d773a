package api

import (
	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/infrastructure"
	"github.com/JaimeStill/linkguard/pkg/pagination"
)

// Runtime is the infrastructure view handed to API handlers, scoped to
// the api module logger and carrying API request limits.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	BatchWorkers  int
	MaxUploadSize int64
}

// NewRuntime scopes infra for the api module.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: infra.WithLogger(infra.Logger.With("module", "api")),
		Pagination:     cfg.API.Pagination,
		BatchWorkers:   cfg.Scoring.BatchWorkers,
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
	}
}
