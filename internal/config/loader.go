package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORBS_* environment variable overrides, and
// returns the final Config. A missing file is not an error, so the service
// can run from defaults and environment alone. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORBS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty).
func applyEnvOverrides(cfg *Config) {
	// ── Upstream ──
	setStr(&cfg.Upstream.BaseURL, "ORBS_UPSTREAM_BASE_URL")
	setDuration(&cfg.Upstream.Timeout, "ORBS_UPSTREAM_TIMEOUT")
	setDuration(&cfg.Upstream.Revalidate, "ORBS_UPSTREAM_REVALIDATE")
	setDuration(&cfg.Upstream.PollInterval, "ORBS_UPSTREAM_POLL_INTERVAL")

	// ── Server ──
	setStr(&cfg.Server.Addr, "ORBS_SERVER_ADDR")
	setStr(&cfg.Server.Timezone, "ORBS_SERVER_TIMEZONE")
	setStringSlice(&cfg.Server.CORSOrigins, "ORBS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ORBS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ORBS_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "ORBS_SERVER_RATE_WINDOW")
	setBool(&cfg.Server.TrustProxy, "ORBS_SERVER_TRUST_PROXY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ORBS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ORBS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORBS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORBS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORBS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORBS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORBS_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "ORBS_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ORBS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ORBS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORBS_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORBS_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "ORBS_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "ORBS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORBS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ORBS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ORBS_S3_FORCE_PATH_STYLE")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "ORBS_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "ORBS_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "ORBS_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ORBS_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ORBS_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "ORBS_DATABASE_USER")
	setStr(&cfg.Database.Password, "ORBS_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ORBS_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "ORBS_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ORBS_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ORBS_DATABASE_RUN_MIGRATIONS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORBS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORBS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORBS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORBS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ORBS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
