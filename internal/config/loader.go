package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DIPBUYER_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults and the
// environment are used. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DIPBUYER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty).
func applyEnvOverrides(cfg *Config) {
	// ── Quote ──
	setStr(&cfg.Quote.Provider, "DIPBUYER_QUOTE_PROVIDER")
	setStr(&cfg.Quote.FinnhubAPIKey, "DIPBUYER_QUOTE_FINNHUB_API_KEY")
	setStr(&cfg.Quote.FinnhubAPIKey, "FINNHUB_API_KEY") // compatibility alias
	setStr(&cfg.Quote.FinnhubBaseURL, "DIPBUYER_QUOTE_FINNHUB_BASE_URL")
	setDuration(&cfg.Quote.Timeout, "DIPBUYER_QUOTE_TIMEOUT")
	setFloat64(&cfg.Quote.RatePerSecond, "DIPBUYER_QUOTE_RATE_PER_SECOND")
	setInt(&cfg.Quote.Burst, "DIPBUYER_QUOTE_BURST")
	setInt(&cfg.Quote.BreakerFailures, "DIPBUYER_QUOTE_BREAKER_FAILURES")
	setDuration(&cfg.Quote.BreakerTimeout, "DIPBUYER_QUOTE_BREAKER_TIMEOUT")

	// ── Strategy ──
	setStr(&cfg.Strategy.Symbol, "DIPBUYER_STRATEGY_SYMBOL")
	setFloat64(&cfg.Strategy.MaxExpenditure, "DIPBUYER_STRATEGY_MAX_EXPENDITURE")
	setFloat64(&cfg.Strategy.ScaleFactor, "DIPBUYER_STRATEGY_SCALE_FACTOR")
	setInt64(&cfg.Strategy.InitialQuantity, "DIPBUYER_STRATEGY_INITIAL_QUANTITY")
	setDuration(&cfg.Strategy.PollInterval, "DIPBUYER_STRATEGY_POLL_INTERVAL")
	setBool(&cfg.Strategy.FreshValuationQuote, "DIPBUYER_STRATEGY_FRESH_VALUATION_QUOTE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "DIPBUYER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DIPBUYER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "DIPBUYER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DIPBUYER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DIPBUYER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DIPBUYER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DIPBUYER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DIPBUYER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DIPBUYER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DIPBUYER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DIPBUYER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DIPBUYER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DIPBUYER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DIPBUYER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DIPBUYER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DIPBUYER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DIPBUYER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DIPBUYER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "DIPBUYER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "DIPBUYER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DIPBUYER_S3_REGION")
	setStr(&cfg.S3.Bucket, "DIPBUYER_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "DIPBUYER_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "DIPBUYER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DIPBUYER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DIPBUYER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DIPBUYER_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DIPBUYER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DIPBUYER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DIPBUYER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "DIPBUYER_SERVER_API_KEY")
	setFloat64(&cfg.Server.RatePerSecond, "DIPBUYER_SERVER_RATE_PER_SECOND")
	setInt(&cfg.Server.Burst, "DIPBUYER_SERVER_BURST")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DIPBUYER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DIPBUYER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DIPBUYER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DIPBUYER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DIPBUYER_MODE")
	setStr(&cfg.LogLevel, "DIPBUYER_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
