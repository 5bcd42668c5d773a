package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/pkg/handlers"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/routes"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

// Store persists scored feed results and returns how many were saved.
type Store interface {
	SaveBatch(ctx context.Context, results []batch.Result) (int, error)
}

// IngestRequest names a feed blob in storage and its format.
type IngestRequest struct {
	Key    string `json:"key"`
	Format string `json:"format"`
	Source string `json:"source,omitempty"`
}

// Handler provides the HTTP endpoint for feed ingestion.
type Handler struct {
	scorer  batch.Scorer
	blobs   storage.System
	store   Store
	sectors *Sectors
	workers int
	logger  *slog.Logger
}

// NewHandler creates a Handler that reads feeds from blobs, scores them
// with scorer, and saves results to store.
func NewHandler(
	scorer batch.Scorer,
	blobs storage.System,
	store Store,
	sectors *Sectors,
	workers int,
	logger *slog.Logger,
) *Handler {
	if sectors == nil {
		sectors = DefaultSectors()
	}
	return &Handler{
		scorer:  scorer,
		blobs:   blobs,
		store:   store,
		sectors: sectors,
		workers: workers,
		logger:  logger.With("handler", "feeds"),
	}
}

// Routes returns the route group definition for feed endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/feeds",
		Tags:    []string{"Feeds"},
		Schemas: schemas,
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/ingest", Handler: h.Ingest, OpenAPI: ingestOp},
		},
	}
}

// Ingest downloads the named feed blob, scores every entry, and persists
// the results. Responds with the ingestion report.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if status, err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingKey)
		return
	}

	if _, err := ParserForFormat(req.Format); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	blob, err := h.blobs.Download(r.Context(), req.Key)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	report, err := Ingest(r.Context(), h.scorer, blob.Body, Options{
		Format:  req.Format,
		Source:  req.Source,
		Sectors: h.sectors,
		Workers: h.workers,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	saved, err := h.store.SaveBatch(r.Context(), report.Results)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	report.Saved = saved

	h.logger.Info("feed ingested",
		"key", req.Key,
		"source", report.Source,
		"entries", report.Entries,
		"saved", report.Saved,
	)
	handlers.RespondJSON(w, http.StatusOK, report)
}

var ingestOp = &openapi.Operation{
	OperationID: "ingestFeed",
	Summary:     "Score and persist a threat feed stored as a blob",
	RequestBody: openapi.RequestBodyJSON("IngestRequest", true),
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Ingestion report", "IngestReport"),
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseRef("NotFound"),
		413: openapi.ResponseRef("PayloadTooLarge"),
	},
}

var schemas = map[string]*openapi.Schema{
	"IngestRequest": openapi.Object([]string{"key"}, map[string]*openapi.Schema{
		"key":    openapi.String("Feed blob key"),
		"format": openapi.Enum("Feed format, default list", "urlhaus", "adblock", "list", "hostfile"),
		"source": openapi.String("Source name recorded on each detection"),
	}),
	"IngestReport": openapi.Object(nil, map[string]*openapi.Schema{
		"source":       openapi.String("Source name"),
		"format":       openapi.String("Parsed feed format"),
		"entries":      {Type: "integer"},
		"scored":       {Type: "integer"},
		"saved":        {Type: "integer"},
		"by_status":    openapi.MapOf("Result counts by risk label", &openapi.Schema{Type: "integer"}),
		"collected_at": {Type: "string", Format: "date-time"},
	}),
}
