package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// overlayFlags records the boolean keys an overlay file sets. Section
// Merge methods cannot tell an omitted bool from false, so explicit
// values are applied from here after Merge.
type overlayFlags struct {
	API struct {
		CORS struct {
			Enabled          *bool `toml:"enabled"`
			AllowCredentials *bool `toml:"allow_credentials"`
		} `toml:"cors"`
	} `toml:"api"`
	Scoring struct {
		TLDRefresh *bool `toml:"tld_refresh"`
		Probes     struct {
			Enabled *bool `toml:"enabled"`
		} `toml:"probes"`
	} `toml:"scoring"`
	Events struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"events"`
	Metrics struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"metrics"`
}

func (f *overlayFlags) apply(c *Config) {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.API.CORS.Enabled, f.API.CORS.Enabled)
	set(&c.API.CORS.AllowCredentials, f.API.CORS.AllowCredentials)
	set(&c.Scoring.TLDRefresh, f.Scoring.TLDRefresh)
	set(&c.Scoring.Probes.Enabled, f.Scoring.Probes.Enabled)
	set(&c.Events.Enabled, f.Events.Enabled)
	set(&c.Metrics.Enabled, f.Metrics.Enabled)
}

// mergeOverlay merges the overlay file at path into c.
func mergeOverlay(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var overlay Config
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	var flags overlayFlags
	if err := toml.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.Merge(&overlay)
	flags.apply(c)
	return nil
}
