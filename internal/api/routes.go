package api

import (
	"net/http"

	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/feeds"
	"github.com/JaimeStill/linkguard/pkg/middleware"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, groups []routes.Group, spec []byte) {
	routes.Register(mux, groups...)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
}

// routeGroups returns every route group served by the API module. JSON
// bodies on the detection and feed routes are capped at the upload limit.
func routeGroups(domain *Domain, cfg *config.Config, runtime *Runtime) []routes.Group {
	feedsHandler := feeds.NewHandler(
		runtime.Scoring,
		runtime.Storage,
		domain.Detections,
		domain.Sectors,
		runtime.BatchWorkers,
		runtime.Logger,
	)

	blobs := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
		runtime.MaxUploadSize,
	)

	scorer := newScoringHandler(runtime.Scoring, runtime.Storage, runtime.Logger)

	limit := []func(http.Handler) http.Handler{
		middleware.MaxBody(runtime.MaxUploadSize),
	}

	detections := domain.Detections.Handler().Routes()
	detections.Middleware = limit

	ingest := feedsHandler.Routes()
	ingest.Middleware = limit

	return []routes.Group{
		detections,
		ingest,
		blobs.routes(),
		scorer.routes(),
	}
}
