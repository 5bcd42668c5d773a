package scoring

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/linkguard/internal/features"
)

// Config holds scoring artifact locations, TLD refresh, and probe settings.
type Config struct {
	WhitelistPath      string      `toml:"whitelist_path"`
	ModelPath          string      `toml:"model_path"`
	FeatureColumnsPath string      `toml:"feature_columns_path"`
	SectorsPath        string      `toml:"sectors_path"`
	TLDListURL         string      `toml:"tld_list_url"`
	TLDRefresh         bool        `toml:"tld_refresh"`
	BatchWorkers       int         `toml:"batch_workers"`
	Probes             ProbeConfig `toml:"probes"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	WhitelistPath      string
	ModelPath          string
	FeatureColumnsPath string
	SectorsPath        string
	TLDListURL         string
	TLDRefresh         string
	BatchWorkers       string
	Probes             *ProbeEnv
}

// ProbeConfig controls outbound reachability and TLS probes.
type ProbeConfig struct {
	Enabled   bool   `toml:"enabled"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// ProbeEnv maps probe config fields to environment variable names.
type ProbeEnv struct {
	Enabled   string
	Timeout   string
	UserAgent string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ProbeConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if err := c.validate(); err != nil {
		return err
	}

	var probeEnv *ProbeEnv
	if env != nil {
		probeEnv = env.Probes
	}
	if err := c.Probes.Finalize(probeEnv); err != nil {
		return fmt.Errorf("probes: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.WhitelistPath != "" {
		c.WhitelistPath = overlay.WhitelistPath
	}
	if overlay.ModelPath != "" {
		c.ModelPath = overlay.ModelPath
	}
	if overlay.FeatureColumnsPath != "" {
		c.FeatureColumnsPath = overlay.FeatureColumnsPath
	}
	if overlay.SectorsPath != "" {
		c.SectorsPath = overlay.SectorsPath
	}
	if overlay.TLDListURL != "" {
		c.TLDListURL = overlay.TLDListURL
	}
	if overlay.TLDRefresh {
		c.TLDRefresh = true
	}
	if overlay.BatchWorkers != 0 {
		c.BatchWorkers = overlay.BatchWorkers
	}
	c.Probes.Merge(&overlay.Probes)
}

func (c *Config) loadDefaults() {
	if c.WhitelistPath == "" {
		c.WhitelistPath = "artifacts/whitelist.txt"
	}
	if c.ModelPath == "" {
		c.ModelPath = "artifacts/model.json"
	}
	if c.FeatureColumnsPath == "" {
		c.FeatureColumnsPath = "artifacts/feature_columns.json"
	}
	if c.TLDListURL == "" {
		c.TLDListURL = features.IANAListURL
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = 8
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.WhitelistPath != "" {
		if v := os.Getenv(env.WhitelistPath); v != "" {
			c.WhitelistPath = v
		}
	}
	if env.ModelPath != "" {
		if v := os.Getenv(env.ModelPath); v != "" {
			c.ModelPath = v
		}
	}
	if env.FeatureColumnsPath != "" {
		if v := os.Getenv(env.FeatureColumnsPath); v != "" {
			c.FeatureColumnsPath = v
		}
	}
	if env.SectorsPath != "" {
		if v := os.Getenv(env.SectorsPath); v != "" {
			c.SectorsPath = v
		}
	}
	if env.TLDListURL != "" {
		if v := os.Getenv(env.TLDListURL); v != "" {
			c.TLDListURL = v
		}
	}
	if env.TLDRefresh != "" {
		if v := os.Getenv(env.TLDRefresh); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.TLDRefresh = b
			}
		}
	}
	if env.BatchWorkers != "" {
		if v := os.Getenv(env.BatchWorkers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.BatchWorkers = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be positive")
	}
	return nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ProbeConfig) Finalize(env *ProbeEnv) error {
	if c.Timeout == "" {
		c.Timeout = "3s"
	}
	if c.UserAgent == "" {
		c.UserAgent = "linkguard/0.1"
	}

	if env != nil {
		if v := os.Getenv(env.Enabled); env.Enabled != "" && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
		if v := os.Getenv(env.Timeout); env.Timeout != "" && v != "" {
			c.Timeout = v
		}
		if v := os.Getenv(env.UserAgent); env.UserAgent != "" && v != "" {
			c.UserAgent = v
		}
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ProbeConfig) Merge(overlay *ProbeConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
}
