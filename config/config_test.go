package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spindleworks/spindle/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spindle.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "resolver:\n  base_dir: ./manifests\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 3009 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Resolver.BaseDir != "./manifests" {
		t.Errorf("base_dir = %q", cfg.Resolver.BaseDir)
	}
	if cfg.Resolver.CacheMaxAge != 5*time.Minute {
		t.Errorf("cache_max_age = %v", cfg.Resolver.CacheMaxAge)
	}
	if cfg.Resolver.MaxDepth != 32 {
		t.Errorf("max_depth = %d", cfg.Resolver.MaxDepth)
	}
	if !cfg.Watch.IsEnabled() {
		t.Error("watch not enabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8090
resolver:
  base_dir: /srv/manifests
  cache_max_age: 90s
  max_depth: 8
registry:
  dsn: /var/lib/spindle/registry.db
watch:
  enabled: false
logging:
  level: debug
  format: console
metrics:
  enabled: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Resolver.CacheMaxAge != 90*time.Second {
		t.Errorf("cache_max_age = %v", cfg.Resolver.CacheMaxAge)
	}
	if cfg.Resolver.MaxDepth != 8 {
		t.Errorf("max_depth = %d", cfg.Resolver.MaxDepth)
	}
	if cfg.Registry.DSN != "/var/lib/spindle/registry.db" {
		t.Errorf("registry dsn = %q", cfg.Registry.DSN)
	}
	if cfg.Watch.IsEnabled() {
		t.Error("explicit watch disable ignored")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics not enabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8090\n")
	t.Setenv("SPINDLE_SERVER_PORT", "9000")
	t.Setenv("SPINDLE_MAX_DEPTH", "4")
	t.Setenv("SPINDLE_WATCH_ENABLED", "no")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Resolver.MaxDepth != 4 {
		t.Errorf("max_depth = %d", cfg.Resolver.MaxDepth)
	}
	if cfg.Watch.IsEnabled() {
		t.Error("env watch disable ignored")
	}
}

func TestLoad_ExpandsEnvInFile(t *testing.T) {
	t.Setenv("MANIFEST_DIR", "/data/manifests")
	path := writeConfig(t, "resolver:\n  base_dir: ${MANIFEST_DIR}\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Resolver.BaseDir != "/data/manifests" {
		t.Errorf("base_dir = %q", cfg.Resolver.BaseDir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"negative depth", "resolver:\n  max_depth: -1\n"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadWithFallback(t *testing.T) {
	// Missing file falls back to env-driven defaults.
	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3009 {
		t.Errorf("port = %d", cfg.Server.Port)
	}

	path := writeConfig(t, "server:\n  port: 8090\n")
	cfg, err = config.LoadWithFallback(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d, want file value", cfg.Server.Port)
	}
}
