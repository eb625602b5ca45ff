// Package config defines the top-level configuration for OrbsTracker and
// provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ORBS_* environment variables.
type Config struct {
	Upstream UpstreamConfig `toml:"upstream"`
	Server   ServerConfig   `toml:"server"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Database DatabaseConfig `toml:"database"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// UpstreamConfig points at the odds backend and tunes how it is read.
type UpstreamConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
	// Revalidate is how long a fetched snapshot is served from the cache.
	// Zero disables caching. Needs Redis.
	Revalidate duration `toml:"revalidate"`
	// PollInterval drives the background refresher. Zero disables it.
	PollInterval duration `toml:"poll_interval"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	Timezone    string   `toml:"timezone"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the history, audit and archive routes.
	APIKey     string   `toml:"api_key"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
	// TrustProxy keys the rate limit on X-Forwarded-For. Off by default.
	TrustProxy bool `toml:"trust_proxy"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters for the snapshot
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the sighting log
// and the audit trail.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration lets TOML carry Go duration strings such as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config that serves the dashboard against a local backend
// with every optional backend switched off.
func Defaults() Config {
	return Config{
		Upstream: UpstreamConfig{
			BaseURL:      "http://localhost:8000",
			Timeout:      duration{10 * time.Second},
			Revalidate:   duration{30 * time.Second},
			PollInterval: duration{0},
		},
		Server: ServerConfig{
			Addr:       ":3000",
			Timezone:   "Local",
			RateLimit:  0,
			RateWindow: duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "orbs:",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "orbstracker",
			Prefix:         "snapshots",
			ForcePathStyle: true,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "orbstracker",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "upstream_failed"},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Location resolves Server.Timezone. Empty or "Local" is the host zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Server.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("upstream: base_url must be an absolute http(s) URL, got %q", c.Upstream.BaseURL))
	}
	if c.Upstream.Timeout.Duration <= 0 {
		errs = append(errs, "upstream: timeout must be > 0")
	}
	if c.Upstream.Revalidate.Duration < 0 {
		errs = append(errs, "upstream: revalidate must be >= 0")
	}
	if c.Upstream.PollInterval.Duration < 0 {
		errs = append(errs, "upstream: poll_interval must be >= 0")
	}
	if p := c.Upstream.PollInterval.Duration; p > 0 && p < time.Second {
		errs = append(errs, "upstream: poll_interval must be at least 1s when set")
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, "server: addr must not be empty")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("server: unknown timezone %q", c.Server.Timezone))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 {
		if c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
		if !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit requires redis.enabled")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
