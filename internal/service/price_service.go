package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/metrics"
)

// PriceServiceConfig tunes the quote pipeline.
type PriceServiceConfig struct {
	// Provider labels logs and metrics.
	Provider string
	// RatePerSecond <= 0 disables throttling.
	RatePerSecond float64
	Burst         int
	// BreakerFailures <= 0 disables the circuit breaker.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// PriceService implements domain.QuoteSource by wrapping a provider with a
// rate limiter and a circuit breaker. Successful prices are written through
// to the price cache; the cache is never read to serve a cycle.
type PriceService struct {
	provider domain.QuoteSource
	name     string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    domain.PriceCache
	metrics  *metrics.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewPriceService creates a PriceService. cache and m may be nil.
func NewPriceService(
	provider domain.QuoteSource,
	cfg PriceServiceConfig,
	cache domain.PriceCache,
	m *metrics.Registry,
	logger *slog.Logger,
) *PriceService {
	s := &PriceService{
		provider: provider,
		name:     cfg.Provider,
		cache:    cache,
		metrics:  m,
		logger:   logger.With(slog.String("component", "price_service")),
		now:      time.Now,
	}
	if s.name == "" {
		s.name = "unknown"
	}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	if cfg.BreakerFailures > 0 {
		failures := uint32(cfg.BreakerFailures)
		s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        s.name,
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// Cancellation says nothing about provider health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				s.logger.Warn("quote circuit state change",
					slog.String("provider", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
	}
	return s
}

// Price fetches a fresh price for symbol through the limiter and breaker.
func (s *PriceService) Price(ctx context.Context, symbol string) (float64, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, domain.NewQuoteFetchError(symbol, fmt.Errorf("price_service: rate limit wait: %w", err))
		}
	}

	start := s.now()
	price, err := s.fetch(ctx, symbol)
	s.metrics.ObserveQuote(s.name, symbol, s.now().Sub(start), price, err)
	if err != nil {
		return 0, domain.NewQuoteFetchError(symbol, err)
	}

	if s.cache != nil {
		if cerr := s.cache.SetPrice(ctx, symbol, price, start.UTC()); cerr != nil {
			s.logger.WarnContext(ctx, "price_service: cache price failed",
				slog.String("symbol", symbol),
				slog.String("error", cerr.Error()),
			)
		}
	}
	return price, nil
}

func (s *PriceService) fetch(ctx context.Context, symbol string) (float64, error) {
	if s.breaker == nil {
		return s.provider.Price(ctx, symbol)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Price(ctx, symbol)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return 0, fmt.Errorf("price_service: %s: %w", s.name, domain.ErrCircuitOpen)
	case err != nil:
		return 0, err
	}
	return out.(float64), nil
}

// BreakerState reports the circuit breaker state, or "disabled".
func (s *PriceService) BreakerState() string {
	if s.breaker == nil {
		return "disabled"
	}
	return s.breaker.State().String()
}

var _ domain.QuoteSource = (*PriceService)(nil)
