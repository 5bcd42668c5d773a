package storage

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/linkguard/pkg/formatting"
)

// Config holds Azure Blob Storage connection and transfer parameters.
type Config struct {
	ContainerName     string `toml:"container_name"`
	ConnectionString  string `toml:"connection_string"`
	MaxListSize       int32  `toml:"max_list_size"`
	UploadBlockSize   string `toml:"upload_block_size"`
	UploadConcurrency int    `toml:"upload_concurrency"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ContainerName     string
	ConnectionString  string
	MaxListSize       string
	UploadBlockSize   string
	UploadConcurrency string
}

// UploadBlockSizeBytes returns UploadBlockSize in bytes.
func (c *Config) UploadBlockSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.UploadBlockSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
	if overlay.UploadBlockSize != "" {
		c.UploadBlockSize = overlay.UploadBlockSize
	}
	if overlay.UploadConcurrency != 0 {
		c.UploadConcurrency = overlay.UploadConcurrency
	}
}

func (c *Config) loadDefaults() {
	if c.ContainerName == "" {
		c.ContainerName = "linkguard"
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = 50
	}
	c.MaxListSize = min(c.MaxListSize, MaxListCap)
	if c.UploadBlockSize == "" {
		c.UploadBlockSize = "4MB"
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	lookup := func(name string) (string, bool) {
		if name == "" {
			return "", false
		}
		v := os.Getenv(name)
		return v, v != ""
	}

	if v, ok := lookup(env.ContainerName); ok {
		c.ContainerName = v
	}
	if v, ok := lookup(env.ConnectionString); ok {
		c.ConnectionString = v
	}
	if v, ok := lookup(env.MaxListSize); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxListSize = int32(min(n, int(MaxListCap)))
		}
	}
	if v, ok := lookup(env.UploadBlockSize); ok {
		c.UploadBlockSize = v
	}
	if v, ok := lookup(env.UploadConcurrency); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.UploadConcurrency = n
		}
	}
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("connection_string required")
	}
	n, err := formatting.ParseBytes(c.UploadBlockSize)
	if err != nil {
		return fmt.Errorf("invalid upload_block_size: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("upload_block_size must be positive")
	}
	return nil
}
