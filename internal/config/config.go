// Package config defines the top-level configuration for dipbuyer and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DIPBUYER_* environment variables.
type Config struct {
	Quote    QuoteConfig    `toml:"quote"`
	Strategy StrategyConfig `toml:"strategy"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// QuoteConfig selects the quote provider and tunes the fetch pipeline.
type QuoteConfig struct {
	// Provider is "yahoo" or "finnhub".
	Provider       string   `toml:"provider"`
	FinnhubAPIKey  string   `toml:"finnhub_api_key"`
	FinnhubBaseURL string   `toml:"finnhub_base_url"`
	Timeout        duration `toml:"timeout"`

	RatePerSecond   float64  `toml:"rate_per_second"`
	Burst           int      `toml:"burst"`
	BreakerFailures int      `toml:"breaker_failures"`
	BreakerTimeout  duration `toml:"breaker_timeout"`
}

// StrategyConfig holds the dip-buying parameters and the loop cadence.
type StrategyConfig struct {
	// Symbol is the ticker to watch. Empty means prompt on start.
	Symbol         string  `toml:"symbol"`
	MaxExpenditure float64 `toml:"max_expenditure"`
	ScaleFactor    float64 `toml:"scale_factor"`
	// InitialQuantity > 0 fixes the bootstrap quantity; 0 computes it from
	// MaxExpenditure.
	InitialQuantity     int64    `toml:"initial_quantity"`
	PollInterval        duration `toml:"poll_interval"`
	FreshValuationQuote bool     `toml:"fresh_valuation_quote"`
}

// PostgresConfig holds the purchase journal connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for report archives.
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

// duration wraps time.Duration so it can be decoded from a TOML string such
// as "5m" or "30s".
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

// ServerConfig controls the status API.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey, when set, is required on every route except health and metrics.
	APIKey        string  `toml:"api_key"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with sensible defaults. Load decodes
// the TOML file on top of these values.
func Defaults() Config {
	return Config{
		Quote: QuoteConfig{
			Provider:        "yahoo",
			FinnhubBaseURL:  "https://finnhub.io/api/v1",
			Timeout:         duration{30 * time.Second},
			RatePerSecond:   1,
			Burst:           1,
			BreakerFailures: 5,
			BreakerTimeout:  duration{time.Minute},
		},
		Strategy: StrategyConfig{
			MaxExpenditure:      10000,
			ScaleFactor:         100,
			PollInterval:        duration{5 * time.Minute},
			FreshValuationQuote: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "dipbuyer",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "dipbuyer-reports",
			Prefix:         "reports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:       true,
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			RatePerSecond: 10,
			Burst:         20,
		},
		Notify: NotifyConfig{
			Events: []string{"initial_purchase", "purchase", "quote_error", "session_ended"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"paper": true,
	"full":  true,
}

var validProviders = map[string]bool{
	"yahoo":   true,
	"finnhub": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the Config for logical consistency and returns a combined
// error describing every problem found, or nil.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Quote
	if !validProviders[strings.ToLower(c.Quote.Provider)] {
		errs = append(errs, fmt.Sprintf("quote: unknown provider %q (valid: yahoo, finnhub)", c.Quote.Provider))
	}
	if strings.EqualFold(c.Quote.Provider, "finnhub") && c.Quote.FinnhubAPIKey == "" {
		errs = append(errs, "quote: finnhub_api_key is required for provider finnhub")
	}
	if c.Quote.RatePerSecond < 0 {
		errs = append(errs, "quote: rate_per_second must be >= 0")
	}
	if c.Quote.RatePerSecond > 0 && c.Quote.Burst < 1 {
		errs = append(errs, "quote: burst must be >= 1 when rate_per_second is set")
	}
	if c.Quote.BreakerFailures < 0 {
		errs = append(errs, "quote: breaker_failures must be >= 0")
	}
	if c.Quote.Timeout.Duration < 0 {
		errs = append(errs, "quote: timeout must be >= 0")
	}

	// Strategy
	if c.Strategy.MaxExpenditure <= 0 {
		errs = append(errs, "strategy: max_expenditure must be > 0")
	}
	if c.Strategy.ScaleFactor <= 0 {
		errs = append(errs, "strategy: scale_factor must be > 0")
	}
	if c.Strategy.InitialQuantity < 0 {
		errs = append(errs, "strategy: initial_quantity must be >= 0")
	}
	if c.Strategy.PollInterval.Duration <= 0 {
		errs = append(errs, "strategy: poll_interval must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled && strings.EqualFold(c.Mode, "full") {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RatePerSecond < 0 {
			errs = append(errs, "server: rate_per_second must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
