package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/linkguard/pkg/handlers"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/routes"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

type storageHandler struct {
	store         storage.System
	logger        *slog.Logger
	maxListSize   int32
	maxUploadSize int64
}

func newStorageHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
	maxUploadSize int64,
) *storageHandler {
	return &storageHandler{
		store:         store,
		logger:        logger.With("handler", "storage"),
		maxListSize:   maxListSize,
		maxUploadSize: maxUploadSize,
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix:  "/storage",
		Tags:    []string{"Storage"},
		Schemas: storageSchemas,
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list, OpenAPI: &openapi.Operation{
				OperationID: "listBlobs",
				Summary:     "List blobs",
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("prefix", "string", "Key prefix", false),
					openapi.QueryParam("marker", "string", "Continuation marker", false),
					openapi.QueryParam("max_results", "integer", "Page size", false),
				},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Blob listing", "BlobList"),
					400: openapi.ResponseRef("BadRequest"),
				},
			}},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download, OpenAPI: &openapi.Operation{
				OperationID: "downloadBlob",
				Summary:     "Download a blob",
				Parameters:  []*openapi.Parameter{blobKey},
				Responses: map[int]*openapi.Response{
					200: {Description: "Blob content"},
					404: openapi.ResponseRef("NotFound"),
				},
			}},
			{Method: "GET", Pattern: "/{key...}", Handler: h.find, OpenAPI: &openapi.Operation{
				OperationID: "findBlob",
				Summary:     "Blob metadata",
				Parameters:  []*openapi.Parameter{blobKey},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Blob metadata", "BlobMeta"),
					404: openapi.ResponseRef("NotFound"),
				},
			}},
			{Method: "PUT", Pattern: "/{key...}", Handler: h.upload, OpenAPI: &openapi.Operation{
				OperationID: "uploadBlob",
				Summary:     "Upload a blob from the request body",
				Parameters:  []*openapi.Parameter{blobKey},
				RequestBody: openapi.RequestBodyBinary("Blob content, stored with the request Content-Type"),
				Responses: map[int]*openapi.Response{
					201: openapi.ResponseJSON("Blob metadata", "BlobMeta"),
					400: openapi.ResponseRef("BadRequest"),
					413: openapi.ResponseRef("PayloadTooLarge"),
				},
			}},
			{Method: "DELETE", Pattern: "/{key...}", Handler: h.delete, OpenAPI: &openapi.Operation{
				OperationID: "deleteBlob",
				Summary:     "Delete a blob",
				Parameters:  []*openapi.Parameter{blobKey},
				Responses: map[int]*openapi.Response{
					204: {Description: "Deleted"},
					404: openapi.ResponseRef("NotFound"),
				},
			}},
		},
	}
}

var blobKey = openapi.PathParam("key", "", "Blob key, may contain slashes")

var storageSchemas = map[string]*openapi.Schema{
	"BlobMeta": openapi.Object(nil, map[string]*openapi.Schema{
		"key":            openapi.String("Blob key"),
		"content_type":   openapi.String("Stored content type"),
		"content_length": {Type: "integer"},
		"last_modified":  {Type: "string", Format: "date-time"},
		"etag":           openapi.String("Entity tag"),
	}),
	"BlobList": openapi.Object(nil, map[string]*openapi.Schema{
		"blobs":       openapi.ArrayOf(openapi.SchemaRef("BlobMeta")),
		"next_marker": openapi.String("Marker for the next page"),
	}),
}

func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	marker := r.URL.Query().Get("marker")

	maxResults, err := storage.ParseMaxResults(
		r.URL.Query().Get("max_results"),
		h.maxListSize,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusBadRequest, err,
		)
		return
	}

	result, err := h.store.List(
		r.Context(),
		prefix,
		marker,
		maxResults,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusInternalServerError, err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *storageHandler) find(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	result, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)

	if result.ContentLength > 0 {
		w.Header().Set(
			"Content-Length",
			strconv.FormatInt(result.ContentLength, 10),
		)
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, result.Body)
}

// upload stores the raw request body under key. Artifacts and feed files
// are plain documents, so no multipart form is involved.
func (h *storageHandler) upload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := h.store.Upload(r.Context(), key, body, contentType); err != nil {
		status := storage.MapHTTPStatus(err)
		if handlers.BodyStatus(err) == http.StatusRequestEntityTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, handlers.BodyError(err))
		return
	}

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	h.logger.Info("blob uploaded", "key", key, "size", meta.ContentLength)
	handlers.RespondJSON(w, http.StatusCreated, meta)
}

func (h *storageHandler) delete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.store.Delete(r.Context(), key); err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
