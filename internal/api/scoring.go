package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/handlers"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/routes"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

// Blob keys read by a scoring reload.
const (
	WhitelistKey      = "artifacts/whitelist.txt"
	ModelKey          = "artifacts/model.json"
	FeatureColumnsKey = "artifacts/feature_columns.json"
)

var errInvalidArtifact = errors.New("invalid scoring artifact")

// ScoringStatus describes the published scoring snapshot.
type ScoringStatus struct {
	Whitelist int       `json:"whitelist"`
	Model     bool      `json:"model"`
	Features  int       `json:"features"`
	TLDs      int       `json:"tlds"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// ReloadResult reports which artifacts a reload replaced.
type ReloadResult struct {
	Loaded []string      `json:"loaded"`
	Status ScoringStatus `json:"status"`
}

var scoringSchemas = map[string]*openapi.Schema{
	"ScoringStatus": openapi.Object(nil, map[string]*openapi.Schema{
		"whitelist": {Type: "integer"},
		"model":     {Type: "boolean"},
		"features":  {Type: "integer"},
		"tlds":      {Type: "integer"},
		"loaded_at": {Type: "string", Format: "date-time"},
	}),
	"ReloadResult": openapi.Object(nil, map[string]*openapi.Schema{
		"loaded": openapi.ArrayOf(openapi.String("Blob key")),
		"status": openapi.SchemaRef("ScoringStatus"),
	}),
}

type scoringHandler struct {
	engine *scoring.Engine
	store  storage.System
	logger *slog.Logger
}

func newScoringHandler(engine *scoring.Engine, store storage.System, logger *slog.Logger) *scoringHandler {
	return &scoringHandler{
		engine: engine,
		store:  store,
		logger: logger.With("handler", "scoring"),
	}
}

func (h *scoringHandler) routes() routes.Group {
	return routes.Group{
		Prefix:  "/scoring",
		Tags:    []string{"Scoring"},
		Schemas: scoringSchemas,
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.status, OpenAPI: &openapi.Operation{
				OperationID: "scoringStatus",
				Summary:     "Scoring snapshot status",
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Snapshot status", "ScoringStatus"),
				},
			}},
			{Method: "POST", Pattern: "/reload", Handler: h.reload, OpenAPI: &openapi.Operation{
				OperationID: "reloadScoring",
				Summary:     "Reload scoring artifacts from storage",
				Description: "Reads " + WhitelistKey + ", " + ModelKey + ", and " + FeatureColumnsKey + " when present.",
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Reloaded artifacts and snapshot status", "ReloadResult"),
					400: openapi.ResponseRef("BadRequest"),
				},
			}},
		},
	}
}

func (h *scoringHandler) status(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, statusOf(h.engine.Snapshot()))
}

func (h *scoringHandler) reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		artifacts scoring.Artifacts
		loaded    []string
	)

	readers := []struct {
		key string
		dst *io.Reader
	}{
		{WhitelistKey, &artifacts.Whitelist},
		{ModelKey, &artifacts.Model},
		{FeatureColumnsKey, &artifacts.Columns},
	}

	for _, rd := range readers {
		body, err := h.open(ctx, rd.key)
		if err != nil {
			handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
			return
		}
		if body == nil {
			continue
		}
		defer body.Close()
		*rd.dst = body
		loaded = append(loaded, rd.key)
	}

	if artifacts.Model == nil {
		artifacts.Columns = nil
		loaded = without(loaded, FeatureColumnsKey)
	}

	snap, err := h.engine.Reload(artifacts)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.Join(errInvalidArtifact, err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ReloadResult{
		Loaded: loaded,
		Status: statusOf(snap),
	})
}

// open returns the blob body for key, or nil when the blob is absent.
func (h *scoringHandler) open(ctx context.Context, key string) (io.ReadCloser, error) {
	ok, err := h.store.Exists(ctx, key)
	if err != nil || !ok {
		return nil, err
	}

	blob, err := h.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return blob.Body, nil
}

func statusOf(snap *scoring.Snapshot) ScoringStatus {
	s := ScoringStatus{
		Whitelist: snap.Whitelist.Len(),
		Model:     snap.Model != nil,
		LoadedAt:  snap.LoadedAt,
	}
	if snap.Model != nil {
		s.Features = len(snap.Model.Features)
	}
	if snap.TLDs != nil {
		s.TLDs = snap.TLDs.Len()
	}
	return s
}

func without(keys []string, drop string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != drop {
			out = append(out, k)
		}
	}
	return out
}
