// Package config loads and validates site configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KALMAS_SERVER_PORT.
const EnvPrefix = "KALMAS"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Site     SiteConfig     `mapstructure:"site"`
	Content  ContentConfig  `mapstructure:"content"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int    `mapstructure:"port"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	SnapshotDir           string `mapstructure:"snapshot_dir"`
}

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Name        string `mapstructure:"name"`
	DefaultSlug string `mapstructure:"default_slug"`
}

// ContentConfig selects and tunes the content store.
type ContentConfig struct {
	Source         string `mapstructure:"source"`
	RootDir        string `mapstructure:"root_dir"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// SnapshotConfig governs the offline snapshot build.
type SnapshotConfig struct {
	Host               string  `mapstructure:"host"`
	PublicHost         string  `mapstructure:"public_host"`
	Renderer           string  `mapstructure:"renderer"`
	Concurrency        int     `mapstructure:"concurrency"`
	MaxAttempts        int     `mapstructure:"max_attempts"`
	BackoffInitialMs   int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs       int     `mapstructure:"backoff_max_ms"`
	RenderQPS          float64 `mapstructure:"render_qps"`
	SettleMs           int     `mapstructure:"settle_ms"`
	NavTimeoutSeconds  int     `mapstructure:"nav_timeout_seconds"`
	UserAgent          string  `mapstructure:"user_agent"`
	PromotionThreshold int     `mapstructure:"promotion_threshold"`
	StripScripts       bool    `mapstructure:"strip_scripts"`
}

// StorageConfig sets where snapshot files are written.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	ContentType  string `mapstructure:"content_type"`
	CacheControl string `mapstructure:"cache_control"`
}

// DBConfig controls the optional snapshot run store.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PubSubConfig holds the optional snapshot notification topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. PORT is honoured as an alias
// for server.port.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.snapshot_dir", "snapshots")
	v.SetDefault("site.name", "kalmas.net")
	v.SetDefault("site.default_slug", "")
	v.SetDefault("content.source", "dir")
	v.SetDefault("content.root_dir", ".")
	v.SetDefault("content.base_url", "")
	v.SetDefault("content.timeout_seconds", 10)
	v.SetDefault("content.user_agent", "kalmas-net/1.0")
	v.SetDefault("snapshot.host", "http://localhost:3000")
	v.SetDefault("snapshot.public_host", "")
	v.SetDefault("snapshot.renderer", "headless")
	v.SetDefault("snapshot.concurrency", 2)
	v.SetDefault("snapshot.max_attempts", 3)
	v.SetDefault("snapshot.backoff_initial_ms", 250)
	v.SetDefault("snapshot.backoff_max_ms", 2000)
	v.SetDefault("snapshot.render_qps", 0)
	v.SetDefault("snapshot.settle_ms", 1500)
	v.SetDefault("snapshot.nav_timeout_seconds", 30)
	v.SetDefault("snapshot.user_agent", "kalmas-net-snapshot/1.0")
	v.SetDefault("snapshot.promotion_threshold", 2048)
	v.SetDefault("snapshot.strip_scripts", true)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("storage.cache_control", "public, max-age=300")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "snapshot_runs")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Content.Source {
	case "dir":
		if c.Content.RootDir == "" {
			return fmt.Errorf("content.root_dir must be set when content.source is dir")
		}
	case "http":
		if c.Content.BaseURL == "" {
			return fmt.Errorf("content.base_url must be set when content.source is http")
		}
	default:
		return fmt.Errorf("content.source must be dir or http, got %q", c.Content.Source)
	}
	if c.Content.TimeoutSeconds <= 0 {
		return fmt.Errorf("content.timeout_seconds must be > 0")
	}
	switch c.Snapshot.Renderer {
	case "headless", "static", "auto":
	default:
		return fmt.Errorf("snapshot.renderer must be headless, static or auto, got %q", c.Snapshot.Renderer)
	}
	if c.Snapshot.Concurrency <= 0 {
		return fmt.Errorf("snapshot.concurrency must be > 0")
	}
	if c.Snapshot.MaxAttempts <= 0 {
		return fmt.Errorf("snapshot.max_attempts must be > 0")
	}
	if c.Snapshot.RenderQPS < 0 {
		return fmt.Errorf("snapshot.render_qps must be >= 0")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend must be local, gcs or memory, got %q", c.Storage.Backend)
	}
	return nil
}

// RequestTimeout bounds each HTTP request served by the site.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ContentTimeout bounds each content store fetch.
func (c Config) ContentTimeout() time.Duration {
	return time.Duration(c.Content.TimeoutSeconds) * time.Second
}

// SettleDelay is how long a headless render waits after load before
// capturing the page.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Snapshot.SettleMs) * time.Millisecond
}

// NavTimeout bounds a single snapshot render.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Snapshot.NavTimeoutSeconds) * time.Second
}

// Backoff returns the initial and maximum retry delays for snapshot tasks.
func (c Config) Backoff() (initial, maxDelay time.Duration) {
	return time.Duration(c.Snapshot.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.Snapshot.BackoffMaxMs) * time.Millisecond
}
