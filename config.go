package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/refresh"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a Client. Build it once, usually through
// [LoadConfig] or [DefaultConfig], and treat it as immutable afterwards.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Refresh RefreshConfig `yaml:"refresh"`
	Storage StorageConfig `yaml:"storage"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds one request including a renewal it waits for. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls credential renewal.
type RefreshConfig struct {
	// Timeout bounds one renewal. A renewal that exceeds it is a failure and
	// ends the session.
	Timeout time.Duration `yaml:"timeout"`
	// Rotation is "optional" (keep the old refresh token when the backend does
	// not send a new one) or "required".
	Rotation string `yaml:"rotation"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// StorageConfig selects where the credential pair survives restarts.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis storage backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	// Profile separates several signed-in identities sharing one Redis.
	Profile string        `yaml:"profile"`
	TTL     time.Duration `yaml:"ttl"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// EventsConfig controls asynchronous lifecycle event delivery.
type EventsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig selects the level and format of the default logger. Level "off"
// discards everything.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Refresh: RefreshConfig{
			Timeout:  refresh.DefaultTimeout,
			Rotation: "optional",
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "gs",
				Profile: "default",
				TTL:     7 * 24 * time.Hour,
			},
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "off",
			Format: "text",
		},
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if _, err := parseRotation(c.Refresh.Rotation); err != nil {
		return err
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("Storage Path must be set for the file backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			return errors.New("Storage Redis Addr must be set for the redis backend")
		}
		if c.Storage.Redis.TTL < 0 {
			return errors.New("Storage Redis TTL must be >= 0")
		}
		if c.Storage.Redis.DB < 0 {
			return errors.New("Storage Redis DB must be >= 0")
		}
	default:
		return fmt.Errorf("Storage Backend must be one of memory, file, redis (got %q)", c.Storage.Backend)
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Log
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("Log Level %q is not one of off, debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("Log Format %q is not one of text, json", c.Log.Format)
	}
	return nil
}

func parseRotation(s string) (refresh.Rotation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "optional":
		return refresh.RotationOptional, nil
	case "required":
		return refresh.RotationRequired, nil
	default:
		return 0, fmt.Errorf("Refresh Rotation %q is not one of optional, required", s)
	}
}

// LoadConfig reads an optional YAML file over the defaults, then applies
// GOSESSION_* environment variables (a .env file in the working directory is
// loaded first when present) and validates the result. A missing file is not
// an error.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config yaml: %w", err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("GOSESSION_API_BASE_URL", &cfg.API.BaseURL)
	str("GOSESSION_REFRESH_ROTATION", &cfg.Refresh.Rotation)
	str("GOSESSION_STORAGE_BACKEND", &cfg.Storage.Backend)
	str("GOSESSION_STORAGE_PATH", &cfg.Storage.Path)
	str("GOSESSION_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	str("GOSESSION_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	str("GOSESSION_REDIS_PREFIX", &cfg.Storage.Redis.Prefix)
	str("GOSESSION_REDIS_PROFILE", &cfg.Storage.Redis.Profile)
	str("GOSESSION_LOG_LEVEL", &cfg.Log.Level)
	str("GOSESSION_LOG_FORMAT", &cfg.Log.Format)

	if v, ok := os.LookupEnv("GOSESSION_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOSESSION_REDIS_DB: %w", err)
		}
		cfg.Storage.Redis.DB = db
	}

	for key, dst := range map[string]*time.Duration{
		"GOSESSION_API_TIMEOUT":     &cfg.API.Timeout,
		"GOSESSION_REFRESH_TIMEOUT": &cfg.Refresh.Timeout,
		"GOSESSION_REDIS_TTL":       &cfg.Storage.Redis.TTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"GOSESSION_EVENTS_ENABLED":  &cfg.Events.Enabled,
		"GOSESSION_METRICS_ENABLED": &cfg.Metrics.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}
