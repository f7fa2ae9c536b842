package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/dipbuyer/internal/blob/s3"
	"github.com/alanyoungcy/dipbuyer/internal/cache/memory"
	"github.com/alanyoungcy/dipbuyer/internal/cache/redis"
	"github.com/alanyoungcy/dipbuyer/internal/config"
	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/metrics"
	"github.com/alanyoungcy/dipbuyer/internal/notify"
	"github.com/alanyoungcy/dipbuyer/internal/platform/finnhub"
	"github.com/alanyoungcy/dipbuyer/internal/platform/yahoo"
	"github.com/alanyoungcy/dipbuyer/internal/server/handler"
	"github.com/alanyoungcy/dipbuyer/internal/service"
	"github.com/alanyoungcy/dipbuyer/internal/store/postgres"
)

// priceCacheTTL is how long a cached last price lives in Redis.
const priceCacheTTL = 24 * time.Hour

// Dependencies bundles everything a session and the status API need. Every
// optional backend is nil when its config section is disabled, except Bus,
// which falls back to an in-process bus.
type Dependencies struct {
	Quotes     *service.PriceService
	PriceCache domain.PriceCache
	Bus        domain.SignalBus
	Purchases  domain.PurchaseStore
	Audit      domain.AuditStore
	Archiver   domain.ReportArchiver
	Notifier   *notify.Notifier
	Metrics    *metrics.Registry

	// Checks are the dependency checks served by the health endpoint.
	Checks map[string]handler.Checker
}

// NewProvider builds the configured quote provider.
func NewProvider(cfg config.QuoteConfig) (domain.QuoteSource, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", yahoo.ProviderName:
		return yahoo.NewClient(), nil
	case finnhub.ProviderName:
		return finnhub.NewClient(cfg.FinnhubAPIKey, cfg.FinnhubBaseURL, cfg.Timeout.Duration), nil
	default:
		return nil, fmt.Errorf("wire: unknown quote provider %q", cfg.Provider)
	}
}

// Wire constructs the dependencies enabled in cfg and returns them with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		Metrics: metrics.New(),
		Checks:  make(map[string]handler.Checker),
	}

	// --- PostgreSQL journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.Purchases = postgres.NewPurchaseStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = pgClient.Ping
	}

	// --- Redis cache and bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, priceCacheTTL)
		deps.Bus = redis.NewSignalBus(redisClient)
		deps.Checks["redis"] = redisClient.Ping
	} else {
		deps.Bus = memory.NewBus()
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Archiver = s3blob.NewReportArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix)
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Quote pipeline ---
	provider, err := NewProvider(cfg.Quote)
	if err != nil {
		return fail(err)
	}
	deps.Quotes = service.NewPriceService(provider, service.PriceServiceConfig{
		Provider:        strings.ToLower(cfg.Quote.Provider),
		RatePerSecond:   cfg.Quote.RatePerSecond,
		Burst:           cfg.Quote.Burst,
		BreakerFailures: cfg.Quote.BreakerFailures,
		BreakerTimeout:  cfg.Quote.BreakerTimeout.Duration,
	}, deps.PriceCache, deps.Metrics, logger)

	// --- Notifications ---
	senders := notify.SendersFromConfig(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Notify.DiscordWebhookURL)
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	logger.InfoContext(ctx, "dependencies wired",
		slog.Bool("postgres", deps.Purchases != nil),
		slog.Bool("redis", deps.PriceCache != nil),
		slog.Bool("s3", deps.Archiver != nil),
		slog.Int("notify_senders", len(senders)),
		slog.String("quote_provider", cfg.Quote.Provider),
	)
	return deps, cleanup, nil
}

// SimulationDependencies returns in-process dependencies around a scripted
// quote source: no throttling, no breaker, no external backends.
func SimulationDependencies(quotes domain.QuoteSource, logger *slog.Logger) *Dependencies {
	m := metrics.New()
	return &Dependencies{
		Quotes:   service.NewPriceService(quotes, service.PriceServiceConfig{Provider: "replay"}, nil, m, logger),
		Bus:      memory.NewBus(),
		Notifier: notify.NewNotifier(nil, nil, logger),
		Metrics:  m,
		Checks:   map[string]handler.Checker{},
	}
}
