package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/leadsync/auth"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leadsync.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.HealthURL != "http://localhost:8000/up" {
		t.Errorf("health url = %q", cfg.Backend.HealthURL)
	}
	if cfg.Backend.Timeout != 30*time.Second || cfg.Sync.HandoffWindow != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Browser.Mode != "headless" {
		t.Errorf("mode = %q", cfg.Browser.Mode)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, `
backend:
  base_url: "https://leads.example.com/"
  timeout: 10s
  rate_limit: 5
storage:
  schema_db: /var/lib/leadsync/schemas.db
browser:
  mode: headful
  settle_delay: 500ms
log_level: debug
`)
	t.Setenv("LEADSYNC_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("LEADSYNC_BACKEND_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "https://leads.example.com" || cfg.Backend.HealthURL != "https://leads.example.com/up" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateBurst != 1 {
		t.Errorf("burst = %d", cfg.Backend.RateBurst)
	}
	if cfg.Storage.RedisURL != "redis://localhost:6379/2" || cfg.Storage.SchemaDB != "/var/lib/leadsync/schemas.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Browser.Mode != "headful" || cfg.Browser.SettleDelay != 500*time.Millisecond {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LEADSYNC_HTTP_LISTEN=127.0.0.1:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LEADSYNC_HTTP_LISTEN") })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Listen != "127.0.0.1:9999" {
		t.Errorf("listen = %q", cfg.HTTP.Listen)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad url", func(c *Config) { c.Backend.BaseURL = "localhost:8000" }, "base_url"},
		{"no schema db", func(c *Config) { c.Storage.SchemaDB = "" }, "schema_db"},
		{"no state", func(c *Config) { c.Storage.StateDB = "" }, "state_db"},
		{"bad mode", func(c *Config) { c.Browser.Mode = "kiosk" }, "browser.mode"},
		{"auth without secret", func(c *Config) { c.HTTP.RequireAuth = true }, "require_auth"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	cfg.HTTP.JWTSecret = "short"
	if err := cfg.Validate(); !errors.Is(err, auth.ErrWeakSecret) {
		t.Errorf("weak secret err = %v", err)
	}
}
