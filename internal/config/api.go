package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/linkguard/pkg/formatting"
	"github.com/JaimeStill/linkguard/pkg/middleware"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/pagination"
)

const (
	EnvAPIBasePath      = "LINKGUARD_API_BASE_PATH"
	EnvAPIMaxUploadSize = "LINKGUARD_API_MAX_UPLOAD_SIZE"

	// DefaultMaxUploadSize caps request bodies when max_upload_size is unset.
	DefaultMaxUploadSize = "50MB"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LINKGUARD_CORS_ENABLED",
	Origins:          "LINKGUARD_CORS_ORIGINS",
	AllowedMethods:   "LINKGUARD_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LINKGUARD_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "LINKGUARD_CORS_EXPOSED_HEADERS",
	AllowCredentials: "LINKGUARD_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LINKGUARD_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "LINKGUARD_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "LINKGUARD_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "LINKGUARD_OPENAPI_TITLE",
	Description: "LINKGUARD_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, CORS, pagination, and OpenAPI settings.
// MaxUploadSize bounds JSON request bodies as well as blob uploads.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes. An unparseable
// value, which Finalize rejects, reads as DefaultMaxUploadSize.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	if size, err := formatting.ParseBytes(c.MaxUploadSize); err == nil {
		return size
	}
	size, _ := formatting.ParseBytes(DefaultMaxUploadSize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, pagination, and OpenAPI configs.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") || c.BasePath == "/" || strings.HasSuffix(c.BasePath, "/") {
		return fmt.Errorf("invalid base_path %q: must start with / and name a segment", c.BasePath)
	}
	if strings.Count(c.BasePath, "/") > 1 {
		return fmt.Errorf("invalid base_path %q: must be a single segment", c.BasePath)
	}
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size < 1 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
