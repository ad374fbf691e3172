package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BUILDERTRADES_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BUILDERTRADES_* environment variables
// and overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Builder ──
	setStr(&cfg.Builder.ClobHost, "BUILDERTRADES_CLOB_HOST")
	setStr(&cfg.Builder.ApiKey, "BUILDERTRADES_BUILDER_API_KEY")
	setStr(&cfg.Builder.ApiSecret, "BUILDERTRADES_BUILDER_API_SECRET")
	setStr(&cfg.Builder.ApiPassphrase, "BUILDERTRADES_BUILDER_API_PASSPHRASE")
	// Compatibility aliases matching the venue's documented variable names.
	setStr(&cfg.Builder.ApiKey, "POLY_BUILDER_API_KEY")
	setStr(&cfg.Builder.ApiSecret, "POLY_BUILDER_SECRET")
	setStr(&cfg.Builder.ApiPassphrase, "POLY_BUILDER_PASSPHRASE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BUILDERTRADES_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "BUILDERTRADES_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BUILDERTRADES_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BUILDERTRADES_DATABASE_NAME")
	setStr(&cfg.Database.User, "BUILDERTRADES_DATABASE_USER")
	setStr(&cfg.Database.Password, "BUILDERTRADES_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BUILDERTRADES_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "BUILDERTRADES_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BUILDERTRADES_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BUILDERTRADES_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BUILDERTRADES_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BUILDERTRADES_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BUILDERTRADES_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BUILDERTRADES_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BUILDERTRADES_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BUILDERTRADES_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.SummaryTTLSecs, "BUILDERTRADES_REDIS_SUMMARY_TTL_SECS")
	setInt(&cfg.Redis.LockTTLSecs, "BUILDERTRADES_REDIS_LOCK_TTL_SECS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BUILDERTRADES_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BUILDERTRADES_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BUILDERTRADES_S3_REGION")
	setStr(&cfg.S3.Bucket, "BUILDERTRADES_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BUILDERTRADES_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BUILDERTRADES_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BUILDERTRADES_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BUILDERTRADES_S3_FORCE_PATH_STYLE")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "BUILDERTRADES_SYNC_INTERVAL")
	setDuration(&cfg.Sync.ArchiveInterval, "BUILDERTRADES_SYNC_ARCHIVE_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "BUILDERTRADES_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BUILDERTRADES_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BUILDERTRADES_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BUILDERTRADES_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BUILDERTRADES_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BUILDERTRADES_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BUILDERTRADES_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "BUILDERTRADES_LOG_LEVEL")
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
