package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  snapshot_dir: /srv/snapshots
site:
  name: example.org
  default_slug: hello-world
content:
  source: http
  base_url: https://content.example.org/
  timeout_seconds: 5
snapshot:
  host: http://localhost:9090
  public_host: https://example.org
  renderer: auto
  concurrency: 6
  max_attempts: 4
  render_qps: 1.5
  settle_ms: 500
storage:
  backend: gcs
  bucket: snapshots
  prefix: site
db:
  dsn: postgres://localhost/kalmas
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Site.Name != "example.org" || cfg.Site.DefaultSlug != "hello-world" {
		t.Fatalf("expected site overrides, got %+v", cfg.Site)
	}
	if cfg.Content.Source != "http" || cfg.ContentTimeout() != 5*time.Second {
		t.Fatalf("expected content overrides, got %+v", cfg.Content)
	}
	if cfg.Snapshot.Renderer != "auto" || cfg.Snapshot.Concurrency != 6 || cfg.Snapshot.RenderQPS != 1.5 {
		t.Fatalf("expected snapshot overrides, got %+v", cfg.Snapshot)
	}
	if cfg.SettleDelay() != 500*time.Millisecond {
		t.Fatalf("expected settle 500ms, got %v", cfg.SettleDelay())
	}
	if !cfg.Snapshot.StripScripts {
		t.Fatal("expected strip_scripts default to survive partial snapshot section")
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "snapshots" {
		t.Fatalf("expected storage overrides, got %+v", cfg.Storage)
	}
	if cfg.DB.Table != "snapshot_runs" {
		t.Fatalf("expected default table, got %q", cfg.DB.Table)
	}
	if cfg.DB.MaxConnLifetime != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", cfg.DB.MaxConnLifetime)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Site.Name != "kalmas.net" {
		t.Fatalf("expected default site name, got %q", cfg.Site.Name)
	}
	if cfg.Content.Source != "dir" || cfg.Content.RootDir != "." {
		t.Fatalf("unexpected content defaults %+v", cfg.Content)
	}
	if cfg.Snapshot.Renderer != "headless" || cfg.Snapshot.MaxAttempts != 3 {
		t.Fatalf("unexpected snapshot defaults %+v", cfg.Snapshot)
	}
	initial, maxDelay := cfg.Backoff()
	if initial != 250*time.Millisecond || maxDelay != 2*time.Second {
		t.Fatalf("unexpected backoff %v/%v", initial, maxDelay)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout())
	}
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "4567")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4567 {
		t.Fatalf("expected PORT to set server.port, got %d", cfg.Server.Port)
	}
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("KALMAS_SITE_DEFAULT_SLUG", "from-env")
	t.Setenv("KALMAS_SNAPSHOT_CONCURRENCY", "9")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Site.DefaultSlug != "from-env" {
		t.Fatalf("expected env slug, got %q", cfg.Site.DefaultSlug)
	}
	if cfg.Snapshot.Concurrency != 9 {
		t.Fatalf("expected env concurrency 9, got %d", cfg.Snapshot.Concurrency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 3000},
			Content:  ContentConfig{Source: "dir", RootDir: ".", TimeoutSeconds: 10},
			Snapshot: SnapshotConfig{Renderer: "headless", Concurrency: 1, MaxAttempts: 1},
			Storage:  StorageConfig{Backend: "local"},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "source", mutate: func(c *Config) { c.Content.Source = "ftp" }, want: "content.source"},
		{name: "root dir", mutate: func(c *Config) { c.Content.RootDir = "" }, want: "content.root_dir"},
		{name: "base url", mutate: func(c *Config) { c.Content.Source = "http" }, want: "content.base_url"},
		{name: "content timeout", mutate: func(c *Config) { c.Content.TimeoutSeconds = 0 }, want: "content.timeout_seconds"},
		{name: "renderer", mutate: func(c *Config) { c.Snapshot.Renderer = "phantom" }, want: "snapshot.renderer"},
		{name: "concurrency", mutate: func(c *Config) { c.Snapshot.Concurrency = 0 }, want: "snapshot.concurrency"},
		{name: "attempts", mutate: func(c *Config) { c.Snapshot.MaxAttempts = 0 }, want: "snapshot.max_attempts"},
		{name: "qps", mutate: func(c *Config) { c.Snapshot.RenderQPS = -1 }, want: "snapshot.render_qps"},
		{name: "backend", mutate: func(c *Config) { c.Storage.Backend = "s3" }, want: "storage.backend"},
		{name: "bucket", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, want: "storage.bucket"},
	}
	for _, tt := range tests {
		cfg := valid()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tt.name, tt.want, err)
		}
	}
}
