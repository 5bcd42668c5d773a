package metrics

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config controls the metrics endpoint.
type Config struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled string
	Path    string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if env != nil {
		if v := os.Getenv(env.Enabled); env.Enabled != "" && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
		if v := os.Getenv(env.Path); env.Path != "" && v != "" {
			c.Path = v
		}
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}
