package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/linkguard/internal/events"
	"github.com/JaimeStill/linkguard/internal/metrics"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/database"
	"github.com/JaimeStill/linkguard/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLinkguardEnv             = "LINKGUARD_ENV"
	EnvLinkguardShutdownTimeout = "LINKGUARD_SHUTDOWN_TIMEOUT"
	EnvLinkguardVersion         = "LINKGUARD_VERSION"
)

var databaseEnv = &database.Env{
	URL:             "LINKGUARD_DB_URL",
	Host:            "LINKGUARD_DB_HOST",
	Port:            "LINKGUARD_DB_PORT",
	Name:            "LINKGUARD_DB_NAME",
	User:            "LINKGUARD_DB_USER",
	Password:        "LINKGUARD_DB_PASSWORD",
	SSLMode:         "LINKGUARD_DB_SSL_MODE",
	MaxOpenConns:    "LINKGUARD_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LINKGUARD_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LINKGUARD_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LINKGUARD_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:     "LINKGUARD_STORAGE_CONTAINER_NAME",
	ConnectionString:  "LINKGUARD_STORAGE_CONNECTION_STRING",
	MaxListSize:       "LINKGUARD_STORAGE_MAX_LIST_SIZE",
	UploadBlockSize:   "LINKGUARD_STORAGE_UPLOAD_BLOCK_SIZE",
	UploadConcurrency: "LINKGUARD_STORAGE_UPLOAD_CONCURRENCY",
}

var scoringEnv = &scoring.Env{
	WhitelistPath:      "LINKGUARD_SCORING_WHITELIST_PATH",
	ModelPath:          "LINKGUARD_SCORING_MODEL_PATH",
	FeatureColumnsPath: "LINKGUARD_SCORING_FEATURE_COLUMNS_PATH",
	SectorsPath:        "LINKGUARD_SCORING_SECTORS_PATH",
	TLDListURL:         "LINKGUARD_SCORING_TLD_LIST_URL",
	TLDRefresh:         "LINKGUARD_SCORING_TLD_REFRESH",
	BatchWorkers:       "LINKGUARD_SCORING_BATCH_WORKERS",
	Probes: &scoring.ProbeEnv{
		Enabled:   "LINKGUARD_PROBES_ENABLED",
		Timeout:   "LINKGUARD_PROBES_TIMEOUT",
		UserAgent: "LINKGUARD_PROBES_USER_AGENT",
	},
}

var eventsEnv = &events.Env{
	Enabled:      "LINKGUARD_EVENTS_ENABLED",
	Brokers:      "LINKGUARD_EVENTS_BROKERS",
	Topic:        "LINKGUARD_EVENTS_TOPIC",
	MinScore:     "LINKGUARD_EVENTS_MIN_SCORE",
	BatchTimeout: "LINKGUARD_EVENTS_BATCH_TIMEOUT",
}

var metricsEnv = &metrics.Env{
	Enabled: "LINKGUARD_METRICS_ENABLED",
	Path:    "LINKGUARD_METRICS_PATH",
}

// Config is the root configuration for the Linkguard service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Scoring         scoring.Config  `toml:"scoring"`
	Events          events.Config   `toml:"events"`
	Metrics         metrics.Config  `toml:"metrics"`
	Log             LogConfig       `toml:"log"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LINKGUARD_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLinkguardEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Offline is the configuration subset read by offline tools.
type Offline struct {
	Scoring *scoring.Config
	Log     *LogConfig
}

// LoadOffline reads the same files as Load but finalizes only the scoring
// and log sections, so offline tools skip database and storage validation.
func LoadOffline() (*Offline, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Scoring.Finalize(scoringEnv); err != nil {
		return nil, fmt.Errorf("finalize scoring: %w", err)
	}
	if err := cfg.Log.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize log: %w", err)
	}

	return &Offline{Scoring: &cfg.Scoring, Log: &cfg.Log}, nil
}

// LoadDatabase reads the same files as Load but finalizes only the
// database section. The migrate command uses it.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("finalize database: %w", err)
	}

	return &cfg.Database, nil
}

func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		if err := mergeOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
// A false bool in overlay is indistinguishable from an omitted one and
// leaves the receiver unchanged.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Scoring.Merge(&overlay.Scoring)
	c.Events.Merge(&overlay.Events)
	c.Metrics.Merge(&overlay.Metrics)
	c.Log.Merge(&overlay.Log)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Scoring.Finalize(scoringEnv); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Events.Finalize(eventsEnv); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := c.Metrics.Finalize(metricsEnv); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Log.Finalize(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLinkguardShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLinkguardVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvLinkguardEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
