package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/linkguard/internal/api"
	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/infrastructure"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/database"
	"github.com/JaimeStill/linkguard/pkg/middleware"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/pagination"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=linkguardstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/linkguardstore;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "linkguard",
			User:            "linkguard",
			Password:        "linkguard",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "linkguard",
			ConnectionString: azuriteConnString,
			MaxListSize:      50,
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: "10MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
			OpenAPI: openapi.Config{
				Title: "Linkguard API",
			},
		},
		Scoring: scoring.Config{
			WhitelistPath:      dir + "/whitelist.txt",
			ModelPath:          dir + "/model.json",
			FeatureColumnsPath: dir + "/feature_columns.json",
			BatchWorkers:       4,
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
	if err := cfg.Scoring.Finalize(nil); err != nil {
		t.Fatalf("scoring finalize: %v", err)
	}
	return cfg
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewModuleInvalidSectors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Scoring.SectorsPath = t.TempDir() + "/missing.json"
	infra := setupInfra(t, cfg)

	if _, err := api.NewModule(cfg, infra); err == nil {
		t.Fatal("expected error for missing sectors file")
	}
}

func TestModuleServesOpenAPI(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	rec := httptest.NewRecorder()
	m.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var spec openapi.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}
	if spec.Info.Title != "Linkguard API" {
		t.Errorf("title: got %s, want Linkguard API", spec.Info.Title)
	}
	if _, ok := spec.Paths["/detect/url"]; !ok {
		t.Error("spec missing /detect/url")
	}
}

func TestModuleServesScoringStatus(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scoring", nil)
	rec := httptest.NewRecorder()
	m.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var status api.ScoringStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Model {
		t.Error("model should not be loaded")
	}
	if status.TLDs == 0 {
		t.Error("tld set should not be empty")
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max page size: got %d, want 100", runtime.Pagination.MaxPageSize)
	}
	if runtime.BatchWorkers != 4 {
		t.Errorf("batch workers: got %d, want 4", runtime.BatchWorkers)
	}
	if runtime.MaxUploadSize != 10<<20 {
		t.Errorf("max upload size: got %d, want %d", runtime.MaxUploadSize, 10<<20)
	}
	if runtime.Logger == nil || runtime.Logger == infra.Logger {
		t.Error("runtime logger should be module scoped")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Storage == nil {
		t.Error("runtime storage is nil")
	}
	if runtime.Scoring == nil {
		t.Error("runtime scoring is nil")
	}
	if runtime.Lifecycle == nil {
		t.Error("runtime lifecycle is nil")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(runtime, "")
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}
	if domain.Detections == nil {
		t.Error("detections system is nil")
	}
	if domain.Sectors.Len() == 0 {
		t.Error("default sectors should be loaded")
	}
}

func TestNewSpec(t *testing.T) {
	cfg := validConfig(t)
	spec, err := api.NewSpec(cfg)
	if err != nil {
		t.Fatalf("NewSpec() error = %v", err)
	}

	if spec.Info.Version != "0.1.0" {
		t.Errorf("version: got %s, want 0.1.0", spec.Info.Version)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers: got %v", spec.Servers)
	}
	if len(spec.Tags) != 5 {
		t.Errorf("tags: got %d, want 5", len(spec.Tags))
	}
	if len(spec.Paths) != 0 {
		t.Errorf("spec without groups should have no paths, got %d", len(spec.Paths))
	}
}

func TestModuleSpecPaths(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))

	var spec openapi.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}

	for _, path := range []string{
		"/detect/url", "/detect/app", "/detect/content",
		"/detections", "/detections/{id}", "/detections/search", "/detections/batch",
		"/feeds/ingest", "/storage", "/storage/{key}", "/storage/download/{key}",
		"/scoring", "/scoring/reload",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("missing path %s", path)
		}
	}

	for _, name := range []string{"DetectionRecord", "DetectResponse", "Detection", "PageRequest", "BlobMeta", "IngestReport", "ScoringStatus"} {
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}
}
