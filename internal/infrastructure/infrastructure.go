// Package infrastructure assembles the shared systems every module
// depends on: logging, lifecycle, database, blob storage, the scoring
// engine, event publishing, and metrics.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/events"
	"github.com/JaimeStill/linkguard/internal/metrics"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/database"
	"github.com/JaimeStill/linkguard/pkg/lifecycle"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

// Infrastructure holds the systems shared across modules.
//
// Events is nil when event publishing is disabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Scoring   *scoring.Engine
	Events    *events.Publisher
	Metrics   *metrics.Recorder
}

// New builds every system from cfg without starting any of them.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := cfg.Log.NewLogger(os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	blobs, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	recorder := metrics.New()

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   blobs,
		Scoring:   scoring.New(&cfg.Scoring, logger, scoring.WithObserver(recorder)),
		Events:    events.New(&cfg.Events, logger),
		Metrics:   recorder,
	}, nil
}

// WithLogger returns a shallow copy that logs through logger. Systems
// are shared with the receiver.
func (i *Infrastructure) WithLogger(logger *slog.Logger) *Infrastructure {
	scoped := *i
	scoped.Logger = logger
	return &scoped
}

// Start hands each system to the lifecycle coordinator in dependency
// order. The first failure stops the sequence.
func (i *Infrastructure) Start() error {
	systems := []struct {
		name  string
		start func(*lifecycle.Coordinator) error
	}{
		{"database", i.Database.Start},
		{"storage", i.Storage.Start},
		{"scoring", i.Scoring.Start},
		{"events", i.Events.Start},
	}

	for _, s := range systems {
		if err := s.start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", s.name, err)
		}
	}
	return nil
}
