package events

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds Kafka publishing parameters for detection events.
type Config struct {
	Enabled      bool     `toml:"enabled"`
	Brokers      []string `toml:"brokers"`
	Topic        string   `toml:"topic"`
	MinScore     int      `toml:"min_score"`
	BatchTimeout string   `toml:"batch_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled      string
	Brokers      string
	Topic        string
	MinScore     string
	BatchTimeout string
}

// BatchTimeoutDuration returns BatchTimeout as a time.Duration.
func (c *Config) BatchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.BatchTimeout)
	return d
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
	if overlay.Enabled {
		c.Enabled = true
	}
	if len(overlay.Brokers) > 0 {
		c.Brokers = overlay.Brokers
	}
	if overlay.Topic != "" {
		c.Topic = overlay.Topic
	}
	if overlay.MinScore != 0 {
		c.MinScore = overlay.MinScore
	}
	if overlay.BatchTimeout != "" {
		c.BatchTimeout = overlay.BatchTimeout
	}
}

func (c *Config) loadDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = "linkguard.detections"
	}
	if c.MinScore == 0 {
		c.MinScore = 40
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "10ms"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.Brokers != "" {
		if v := os.Getenv(env.Brokers); v != "" {
			c.Brokers = splitList(v)
		}
	}
	if env.Topic != "" {
		if v := os.Getenv(env.Topic); v != "" {
			c.Topic = v
		}
	}
	if env.MinScore != "" {
		if v := os.Getenv(env.MinScore); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinScore = n
			}
		}
	}
	if env.BatchTimeout != "" {
		if v := os.Getenv(env.BatchTimeout); v != "" {
			c.BatchTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("min_score must be between 0 and 100")
	}
	if _, err := time.ParseDuration(c.BatchTimeout); err != nil {
		return fmt.Errorf("invalid batch_timeout: %w", err)
	}
	if c.Enabled {
		if len(c.Brokers) == 0 {
			return fmt.Errorf("brokers required")
		}
		if c.Topic == "" {
			return fmt.Errorf("topic required")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
