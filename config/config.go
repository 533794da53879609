// Package config loads leadsync configuration from a YAML file, a .env file
// and LEADSYNC_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/leadsync/auth"
)

// Config is the top-level configuration.
type Config struct {
	Backend  BackendConfig `yaml:"backend"`
	Storage  StorageConfig `yaml:"storage"`
	Browser  BrowserConfig `yaml:"browser"`
	HTTP     HTTPConfig    `yaml:"http"`
	Sync     SyncConfig    `yaml:"sync"`
	LogLevel string        `yaml:"log_level"` // debug | info | warn | error
}

// BackendConfig points at the lead management API.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// HealthURL is polled to decide whether the backend is reachable.
	// Defaults to BaseURL + "/up".
	HealthURL     string        `yaml:"health_url"`
	CheckInterval time.Duration `yaml:"check_interval"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst     int           `yaml:"rate_burst"`
}

// StorageConfig locates local state.
type StorageConfig struct {
	SchemaDB string `yaml:"schema_db"`
	StateDB  string `yaml:"state_db"`
	// RedisURL, when set, replaces StateDB for tokens and the handoff slot.
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Mode             string        `yaml:"mode"` // headless | headful
	NoStealth        bool          `yaml:"no_stealth"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
}

// HTTPConfig configures the authoring API.
type HTTPConfig struct {
	Listen    string `yaml:"listen"`
	JWTSecret string `yaml:"jwt_secret"`
	// RequireAuth rejects anonymous schema mutations.
	RequireAuth bool `yaml:"require_auth"`
}

// SyncConfig tunes the extractor and the handoff.
type SyncConfig struct {
	SearchInterval time.Duration `yaml:"search_interval"`
	HandoffWindow  time.Duration `yaml:"handoff_window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       30 * time.Second,
			CheckInterval: 15 * time.Second,
		},
		Storage: StorageConfig{
			SchemaDB:    "leadsync.db",
			StateDB:     "leadsync-state.db",
			RedisPrefix: "leadsync:",
		},
		Browser: BrowserConfig{
			Mode:             "headless",
			ResourceBlocking: []string{"image", "font", "media"},
		},
		HTTP:     HTTPConfig{Listen: ":8085"},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty; .env is optional.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env.local", ".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"LEADSYNC_BACKEND_URL":    &c.Backend.BaseURL,
		"LEADSYNC_HEALTH_URL":     &c.Backend.HealthURL,
		"LEADSYNC_SCHEMA_DB":      &c.Storage.SchemaDB,
		"LEADSYNC_STATE_DB":       &c.Storage.StateDB,
		"LEADSYNC_REDIS_URL":      &c.Storage.RedisURL,
		"LEADSYNC_BROWSER_REMOTE": &c.Browser.Remote,
		"LEADSYNC_BROWSER_MODE":   &c.Browser.Mode,
		"LEADSYNC_HTTP_LISTEN":    &c.HTTP.Listen,
		"LEADSYNC_JWT_SECRET":     &c.HTTP.JWTSecret,
		"LEADSYNC_LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv("LEADSYNC_REQUIRE_AUTH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LEADSYNC_REQUIRE_AUTH: %w", err)
		}
		c.HTTP.RequireAuth = b
	}
	if v, ok := os.LookupEnv("LEADSYNC_BACKEND_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: LEADSYNC_BACKEND_TIMEOUT: %w", err)
		}
		c.Backend.Timeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.HealthURL == "" && c.Backend.BaseURL != "" {
		c.Backend.HealthURL = c.Backend.BaseURL + "/up"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Backend.CheckInterval <= 0 {
		c.Backend.CheckInterval = 15 * time.Second
	}
	if c.Backend.RateLimit > 0 && c.Backend.RateBurst <= 0 {
		c.Backend.RateBurst = 1
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Browser.SettleDelay <= 0 {
		c.Browser.SettleDelay = 2 * time.Second
	}
	if c.Sync.SearchInterval <= 0 {
		c.Sync.SearchInterval = 3 * time.Second
	}
	if c.Sync.HandoffWindow <= 0 {
		c.Sync.HandoffWindow = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks values that would fail later in a less obvious way.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: backend.base_url %q must be an http(s) URL", c.Backend.BaseURL)
	}
	if c.Storage.SchemaDB == "" {
		return errors.New("config: storage.schema_db is required")
	}
	if c.Storage.StateDB == "" && c.Storage.RedisURL == "" {
		return errors.New("config: storage.state_db or storage.redis_url is required")
	}
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode %q (use headless or headful)", c.Browser.Mode)
	}
	if c.HTTP.JWTSecret != "" && len(c.HTTP.JWTSecret) < auth.MinSecretLen {
		return fmt.Errorf("config: http.jwt_secret: %w", auth.ErrWeakSecret)
	}
	if c.HTTP.RequireAuth && c.HTTP.JWTSecret == "" {
		return errors.New("config: http.require_auth needs http.jwt_secret")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level %q", c.LogLevel)
	}
	return nil
}
