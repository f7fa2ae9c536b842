package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "paper", cfg.Mode)
	assert.Equal(t, 100.0, cfg.Strategy.ScaleFactor)
	assert.Equal(t, 10000.0, cfg.Strategy.MaxExpenditure)
	assert.Equal(t, 5*time.Minute, cfg.Strategy.PollInterval.Duration)
	assert.True(t, cfg.Strategy.FreshValuationQuote)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
mode = "full"

[quote]
provider = "finnhub"
finnhub_api_key = "k"

[strategy]
symbol = "AAPL"
poll_interval = "30s"
initial_quantity = 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "finnhub", cfg.Quote.Provider)
	assert.Equal(t, "AAPL", cfg.Strategy.Symbol)
	assert.Equal(t, 30*time.Second, cfg.Strategy.PollInterval.Duration)
	assert.Equal(t, int64(5), cfg.Strategy.InitialQuantity)
	assert.Equal(t, 10000.0, cfg.Strategy.MaxExpenditure, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Quote.Provider, cfg.Quote.Provider)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(writeFile(t, "mode = "))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DIPBUYER_STRATEGY_SYMBOL", "MSFT")
	t.Setenv("DIPBUYER_STRATEGY_POLL_INTERVAL", "1m")
	t.Setenv("DIPBUYER_STRATEGY_FRESH_VALUATION_QUOTE", "false")
	t.Setenv("DIPBUYER_NOTIFY_EVENTS", "purchase, ,session_ended")
	t.Setenv("DIPBUYER_REDIS_POOL_SIZE", "not-a-number")

	cfg, err := Load(writeFile(t, `[strategy]
symbol = "AAPL"
`))
	require.NoError(t, err)

	assert.Equal(t, "MSFT", cfg.Strategy.Symbol)
	assert.Equal(t, time.Minute, cfg.Strategy.PollInterval.Duration)
	assert.False(t, cfg.Strategy.FreshValuationQuote)
	assert.Equal(t, []string{"purchase", "session_ended"}, cfg.Notify.Events)
	assert.Equal(t, 10, cfg.Redis.PoolSize, "unparsable values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"provider", func(c *Config) { c.Quote.Provider = "bloomberg" }, "unknown provider"},
		{"finnhub key", func(c *Config) { c.Quote.Provider = "finnhub" }, "finnhub_api_key"},
		{"scale", func(c *Config) { c.Strategy.ScaleFactor = 0 }, "scale_factor"},
		{"initial quantity", func(c *Config) { c.Strategy.InitialQuantity = -1 }, "initial_quantity"},
		{"poll", func(c *Config) { c.Strategy.PollInterval = duration{} }, "poll_interval"},
		{"postgres", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.Host = "" }, "postgres: host"},
		{"s3", func(c *Config) { c.S3.Enabled = true; c.S3.Bucket = "" }, "s3: bucket"},
		{"server", func(c *Config) { c.Mode = "full"; c.Server.Port = 0 }, "server: port"},
		{"server rate", func(c *Config) { c.Mode = "full"; c.Server.RatePerSecond = -1 }, "rate_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("disabled sections are not checked", func(t *testing.T) {
		cfg := Defaults()
		cfg.Redis.Addr = ""
		cfg.S3.Bucket = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Quote.FinnhubAPIKey = "abc"
	cfg.Postgres.Password = "pw"
	cfg.Notify.TelegramToken = "tok"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Quote.FinnhubAPIKey)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "", out.Redis.Password, "empty values stay empty")
	assert.Equal(t, "abc", cfg.Quote.FinnhubAPIKey)

	out.Notify.Events[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Notify.Events[0])
}
