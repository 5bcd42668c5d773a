package detections

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/handlers"
	"github.com/JaimeStill/linkguard/pkg/pagination"
	"github.com/JaimeStill/linkguard/pkg/routes"
)

// Handler provides HTTP endpoints for detection operations.
type Handler struct {
	sys        System
	scorer     Scorer
	logger     *slog.Logger
	pagination pagination.Config
	workers    int
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, scorer, logger,
// pagination config, and batch worker count.
func NewHandler(
	sys System,
	scorer Scorer,
	logger *slog.Logger,
	pagination pagination.Config,
	workers int,
) *Handler {
	return &Handler{
		sys:        sys,
		scorer:     scorer,
		logger:     logger.With("handler", "detections"),
		pagination: pagination,
		workers:    workers,
	}
}

// Routes returns the route group definition for detection endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Schemas: schemas(),
		Children: []routes.Group{
			{
				Prefix: "/detect",
				Tags:   []string{"Detect"},
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/url", Handler: h.DetectURL, OpenAPI: detectOp("detectURL", "Score a web URL", "DetectURLRequest")},
					{Method: "POST", Pattern: "/app", Handler: h.DetectApp, OpenAPI: detectOp("detectApp", "Score an app download link", "DetectAppRequest")},
					{Method: "POST", Pattern: "/content", Handler: h.DetectContent, OpenAPI: detectOp("detectContent", "Score a content link", "DetectContentRequest")},
				},
			},
			{
				Prefix: "/detections",
				Tags:   []string{"Detections"},
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: listOp},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: findOp},
					{Method: "POST", Pattern: "/search", Handler: h.Search, OpenAPI: searchOp},
					{Method: "POST", Pattern: "/batch", Handler: h.Batch, OpenAPI: batchOp},
					{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, OpenAPI: deleteOp},
				},
			},
		},
	}
}

// DetectURL scores a web URL and persists the result.
func (h *Handler) DetectURL(w http.ResponseWriter, r *http.Request) {
	var req DetectURLRequest
	if status, err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingURL)
		return
	}

	h.respondDetection(w, r, h.scorer.ScoreURL(r.Context(), raw, req.Sector))
}

// DetectApp scores an app distribution link. The link is read from
// app_info (a string or an object with url) or from url.
func (h *Handler) DetectApp(w http.ResponseWriter, r *http.Request) {
	var req DetectAppRequest
	if status, err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	raw, platform := req.link()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingApp)
		return
	}

	h.respondDetection(w, r, h.scorer.ScoreApp(r.Context(), raw, platform, req.Sector))
}

// DetectContent scores a downloadable content link read from content or url.
func (h *Handler) DetectContent(w http.ResponseWriter, r *http.Request) {
	var req DetectContentRequest
	if status, err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	raw := strings.TrimSpace(req.link())
	if raw == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingContent)
		return
	}

	h.respondDetection(w, r, h.scorer.ScoreContent(r.Context(), raw, req.Sector))
}

// respondDetection persists rec and writes the detect response. A failed
// save is logged and the record is still returned without an id.
func (h *Handler) respondDetection(w http.ResponseWriter, r *http.Request, rec *scoring.Record) {
	resp := DetectResponse{URL: rec.URL, Result: rec}

	d, err := h.sys.Save(r.Context(), SaveCommand{Record: rec, Source: SourceAPI})
	if err != nil {
		h.logger.Warn("detection not persisted", "url", rec.URL, "error", err)
	} else {
		resp.ID = &d.ID
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Batch scores a schema document and returns the bucketed results.
// Results are persisted with source=batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	schema, err := batch.DecodeSchema(r.Body)
	if err != nil {
		handlers.RespondError(w, h.logger, handlers.BodyStatus(err), handlers.BodyError(err))
		return
	}

	items := schema.Items()
	for i := range items {
		items[i].Source = SourceBatch
	}

	results, err := batch.Run(r.Context(), h.scorer, items, h.workers)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	if _, err := h.sys.SaveBatch(r.Context(), results); err != nil {
		h.logger.Warn("batch not persisted", "count", len(results), "error", err)
	}

	handlers.RespondJSON(w, http.StatusOK, batch.Bucket(results))
}

// List returns a paginated list of detections with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching detections.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if status, err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single detection by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	d, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// Delete removes a detection by its UUID path parameter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
