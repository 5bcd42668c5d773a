package detections_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/detections"
	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/internal/whitelist"
	"github.com/JaimeStill/linkguard/pkg/pagination"
	"github.com/JaimeStill/linkguard/pkg/routes"
)

var sampleID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

type mockSystem struct {
	listFn      func(ctx context.Context, page pagination.PageRequest, filters detections.Filters) (*pagination.PageResult[detections.Detection], error)
	findFn      func(ctx context.Context, id uuid.UUID) (*detections.Detection, error)
	saveFn      func(ctx context.Context, cmd detections.SaveCommand) (*detections.Detection, error)
	saveBatchFn func(ctx context.Context, results []batch.Result) (int, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSystem) Handler() *detections.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters detections.Filters) (*pagination.PageResult[detections.Detection], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*detections.Detection, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Save(ctx context.Context, cmd detections.SaveCommand) (*detections.Detection, error) {
	if m.saveFn == nil {
		return &detections.Detection{ID: sampleID}, nil
	}
	return m.saveFn(ctx, cmd)
}

func (m *mockSystem) SaveBatch(ctx context.Context, results []batch.Result) (int, error) {
	if m.saveBatchFn == nil {
		return len(results), nil
	}
	return m.saveBatchFn(ctx, results)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func testEngine() *scoring.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return scoring.New(&scoring.Config{}, logger, scoring.WithSnapshot(&scoring.Snapshot{
		Whitelist: whitelist.New("bank.com"),
		TLDs:      features.DefaultTLDs(),
		LoadedAt:  time.Now(),
	}))
}

func newTestHandler(sys *mockSystem) *detections.Handler {
	return detections.NewHandler(
		sys,
		testEngine(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		4,
	)
}

func setupMux(h *detections.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func post(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeDetect(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestHandlerDetectURL(t *testing.T) {
	t.Run("scores and persists", func(t *testing.T) {
		var captured detections.SaveCommand
		sys := &mockSystem{
			saveFn: func(_ context.Context, cmd detections.SaveCommand) (*detections.Detection, error) {
				captured = cmd
				return &detections.Detection{ID: sampleID}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := post(mux, "/detect/url", `{"url": "http://192.168.1.1/login"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		body := decodeDetect(t, rec)
		if body["id"] != sampleID.String() {
			t.Errorf("id = %v, want %s", body["id"], sampleID)
		}
		if body["url"] != "http://192.168.1.1/login" {
			t.Errorf("url = %v", body["url"])
		}

		result := body["result"].(map[string]any)
		if result["score"] != float64(65) {
			t.Errorf("score = %v, want 65", result["score"])
		}
		if result["status"] != "Medium Risk" {
			t.Errorf("status = %v, want Medium Risk", result["status"])
		}

		if captured.Source != detections.SourceAPI {
			t.Errorf("source = %q, want api", captured.Source)
		}
		if captured.Record == nil || captured.Record.Score != 65 {
			t.Errorf("saved record = %+v", captured.Record)
		}
	})

	t.Run("missing url returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := post(mux, "/detect/url", `{"sector": "banking"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := decodeDetect(t, rec)
		if body["error"] != "Missing 'url'" {
			t.Errorf("error = %v, want Missing 'url'", body["error"])
		}
	})

	t.Run("persistence failure still returns record", func(t *testing.T) {
		sys := &mockSystem{
			saveFn: func(_ context.Context, _ detections.SaveCommand) (*detections.Detection, error) {
				return nil, errors.New("db down")
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := post(mux, "/detect/url", `{"url": "https://www.bank.com"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decodeDetect(t, rec)
		if _, ok := body["id"]; ok {
			t.Errorf("id present = %v, want omitted", body["id"])
		}
		result := body["result"].(map[string]any)
		if result["status"] != "Safe" {
			t.Errorf("status = %v, want Safe", result["status"])
		}
	})

	t.Run("invalid json returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := post(mux, "/detect/url", `{`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerDetectApp(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantURL  string
		wantPlat string
	}{
		{"app_info string", `{"app_info": "http://dl.example.com/app.apk"}`, "http://dl.example.com/app.apk", "android"},
		{"app_info object", `{"app_info": {"url": "http://dl.example.com/app.ipa", "platform": "iPhone"}}`, "http://dl.example.com/app.ipa", "ios"},
		{"url field", `{"url": "http://dl.example.com/app.apk", "platform": "ios"}`, "http://dl.example.com/app.apk", "ios"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(newTestHandler(&mockSystem{}))

			rec := post(mux, "/detect/app", tt.body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			result := decodeDetect(t, rec)["result"].(map[string]any)
			if result["url"] != tt.wantURL {
				t.Errorf("url = %v, want %s", result["url"], tt.wantURL)
			}
			if result["type"] != "app" {
				t.Errorf("type = %v, want app", result["type"])
			}
			if result["platform"] != tt.wantPlat {
				t.Errorf("platform = %v, want %s", result["platform"], tt.wantPlat)
			}
		})
	}

	t.Run("missing app_info returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := post(mux, "/detect/app", `{"app_info": {"platform": "android"}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body := decodeDetect(t, rec); body["error"] != "Missing 'app_info'" {
			t.Errorf("error = %v", body["error"])
		}
	})
}

func TestHandlerDetectContent(t *testing.T) {
	t.Run("scores dangerous download", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := post(mux, "/detect/content", `{"content": "http://evil.com/invoice123.exe"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		result := decodeDetect(t, rec)["result"].(map[string]any)
		if result["score"] != float64(80) {
			t.Errorf("score = %v, want 80", result["score"])
		}
		if result["status"] != "High Risk" {
			t.Errorf("status = %v, want High Risk", result["status"])
		}
	})

	t.Run("missing content returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := post(mux, "/detect/content", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body := decodeDetect(t, rec); body["error"] != "Missing 'content'" {
			t.Errorf("error = %v", body["error"])
		}
	})
}

func TestHandlerBatch(t *testing.T) {
	var saved []batch.Result
	sys := &mockSystem{
		saveBatchFn: func(_ context.Context, results []batch.Result) (int, error) {
			saved = results
			return len(results), nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := `{
		"urls": {"u1": {"url": "http://192.168.1.1/login", "sector": "banking"}},
		"apps": {"a1": {"link": "http://dl.example.com/app.apk"}},
		"content": {"c1": {"text": "https://example.com/readme.pdf"}}
	}`
	rec := post(mux, "/detections/batch", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var scored batch.Scored
	if err := json.NewDecoder(rec.Body).Decode(&scored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scored.URLs["u1"].Sector != "banking" {
		t.Errorf("u1 sector = %q, want banking", scored.URLs["u1"].Sector)
	}
	if scored.Apps["a1"].Score == nil || scored.Apps["a1"].Score.Type != features.KindApp {
		t.Errorf("a1 = %+v", scored.Apps["a1"])
	}
	if len(scored.Content) != 1 {
		t.Errorf("content length = %d, want 1", len(scored.Content))
	}

	if len(saved) != 3 {
		t.Fatalf("saved = %d, want 3", len(saved))
	}
	for _, r := range saved {
		if r.Source != detections.SourceBatch {
			t.Errorf("source = %q, want batch", r.Source)
		}
	}
}

func TestHandlerBatchInvalidSchema(t *testing.T) {
	mux := setupMux(newTestHandler(&mockSystem{}))

	rec := post(mux, "/detections/batch", `{"urls": [1]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerList(t *testing.T) {
	d := detections.Detection{ID: sampleID, Type: "url", URL: "http://192.168.1.1/login", Score: 65, Status: "Medium Risk"}
	var captured detections.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f detections.Filters) (*pagination.PageResult[detections.Detection], error) {
			captured = f
			result := pagination.NewPageResult([]detections.Detection{d}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/detections?type=url&min_score=40", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[detections.Detection]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || result.Data[0].ID != sampleID {
		t.Errorf("result = %+v", result)
	}
	if captured.Type == nil || *captured.Type != "url" {
		t.Errorf("type filter = %v, want url", captured.Type)
	}
	if captured.MinScore == nil || *captured.MinScore != 40 {
		t.Errorf("min_score filter = %v, want 40", captured.MinScore)
	}
}

func TestHandlerSearch(t *testing.T) {
	var capturedPage pagination.PageRequest
	var capturedFilters detections.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f detections.Filters) (*pagination.PageResult[detections.Detection], error) {
			capturedPage = page
			capturedFilters = f
			result := pagination.NewPageResult([]detections.Detection{}, 0, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body, _ := json.Marshal(map[string]any{
		"page":      2,
		"page_size": 500,
		"status":    "High Risk",
		"max_score": 90,
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/detections/search", bytes.NewReader(body))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if capturedPage.Page != 2 || capturedPage.PageSize != 100 {
		t.Errorf("page = %+v, want page 2 size 100", capturedPage)
	}
	if capturedFilters.Status == nil || *capturedFilters.Status != "High Risk" {
		t.Errorf("status filter = %v", capturedFilters.Status)
	}
	if capturedFilters.MaxScore == nil || *capturedFilters.MaxScore != 90 {
		t.Errorf("max_score filter = %v", capturedFilters.MaxScore)
	}
}

func TestHandlerFind(t *testing.T) {
	t.Run("returns detection", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, id uuid.UUID) (*detections.Detection, error) {
				return &detections.Detection{ID: id, URL: "http://example.com"}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/detections/"+sampleID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("invalid uuid returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/detections/not-a-uuid", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, _ uuid.UUID) (*detections.Detection, error) {
				return nil, detections.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/detections/"+uuid.New().String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerDelete(t *testing.T) {
	t.Run("deletes detection", func(t *testing.T) {
		var capturedID uuid.UUID
		sys := &mockSystem{
			deleteFn: func(_ context.Context, id uuid.UUID) error {
				capturedID = id
				return nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/detections/"+sampleID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if capturedID != sampleID {
			t.Errorf("id = %v, want %v", capturedID, sampleID)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			deleteFn: func(_ context.Context, _ uuid.UUID) error {
				return detections.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/detections/"+uuid.New().String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	group := newTestHandler(&mockSystem{}).Routes()

	want := map[string][]string{
		"/detect":     {"POST /url", "POST /app", "POST /content"},
		"/detections": {"GET ", "GET /{id}", "POST /search", "POST /batch", "DELETE /{id}"},
	}

	if len(group.Children) != len(want) {
		t.Fatalf("child count = %d, want %d", len(group.Children), len(want))
	}

	for _, child := range group.Children {
		patterns, ok := want[child.Prefix]
		if !ok {
			t.Errorf("unexpected prefix %q", child.Prefix)
			continue
		}
		if len(child.Routes) != len(patterns) {
			t.Fatalf("%s route count = %d, want %d", child.Prefix, len(child.Routes), len(patterns))
		}
		for i, p := range patterns {
			r := child.Routes[i]
			if got := r.Method + " " + r.Pattern; got != p {
				t.Errorf("%s route[%d] = %q, want %q", child.Prefix, i, got, p)
			}
			if r.OpenAPI == nil {
				t.Errorf("%s %s has no openapi operation", child.Prefix, p)
			}
		}
	}

	for _, name := range []string{"DetectResponse", "DetectionPage", "BatchSchema", "BatchResult", "SearchRequest"} {
		if _, ok := group.Schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}
}
