package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/metrics"
	"github.com/alanyoungcy/dipbuyer/internal/platform/replay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockPriceCache struct{ mock.Mock }

func (m *mockPriceCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	return m.Called(ctx, symbol, price, ts).Error(0)
}

func (m *mockPriceCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockPriceCache) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	args := m.Called(ctx, symbols)
	return args.Get(0).(map[string]float64), args.Error(1)
}

func TestPriceService_WriteThrough(t *testing.T) {
	cache := new(mockPriceCache)
	cache.On("SetPrice", mock.Anything, "AAPL", 101.5, mock.AnythingOfType("time.Time")).Return(nil).Once()
	cache.On("SetPrice", mock.Anything, "AAPL", 99.0, mock.AnythingOfType("time.Time")).Return(errors.New("redis down")).Once()

	m := metrics.New()
	svc := NewPriceService(replay.New(101.5, 99), PriceServiceConfig{Provider: "replay"}, cache, m, discardLogger())

	p, err := svc.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 101.5, p)

	p, err = svc.Price(context.Background(), "AAPL")
	require.NoError(t, err, "cache failures must not fail the fetch")
	assert.Equal(t, 99.0, p)

	cache.AssertExpectations(t)
	assert.Equal(t, 99.0, testutil.ToFloat64(m.LastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, "disabled", svc.BreakerState())
}

func TestPriceService_ProviderError(t *testing.T) {
	cause := errors.New("503")
	m := metrics.New()
	svc := NewPriceService(replay.NewSteps(replay.Step{Err: cause}), PriceServiceConfig{Provider: "replay"}, nil, m, discardLogger())

	_, err := svc.Price(context.Background(), "GOOG")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuoteFetch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteErrors.WithLabelValues("replay")))
}

func TestPriceService_CircuitBreaker(t *testing.T) {
	boom := errors.New("boom")
	src := replay.NewSteps(
		replay.Step{Err: boom},
		replay.Step{Err: boom},
		replay.Step{Price: 50},
	)
	svc := NewPriceService(src, PriceServiceConfig{
		Provider:        "replay",
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	}, nil, nil, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := svc.Price(context.Background(), "GOOG")
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", svc.BreakerState())

	_, err := svc.Price(context.Background(), "GOOG")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrQuoteFetch)
	assert.Equal(t, 1, src.Remaining(), "open circuit must not reach the provider")
}

func TestPriceService_RateLimit(t *testing.T) {
	src := replay.New(1, 2)
	svc := NewPriceService(src, PriceServiceConfig{RatePerSecond: 0.001, Burst: 1}, nil, nil, discardLogger())

	_, err := svc.Price(context.Background(), "MSFT")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Price(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrQuoteFetch)
	assert.Equal(t, 1, src.Remaining())
}

func TestPriceService_PassesSymbolAndContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "trace-1")

	var gotSymbol string
	var gotValue any
	provider := domain.QuoteSourceFunc(func(ctx context.Context, symbol string) (float64, error) {
		gotSymbol = symbol
		gotValue = ctx.Value(ctxKey{})
		return 42, nil
	})
	svc := NewPriceService(provider, PriceServiceConfig{BreakerFailures: 3, BreakerTimeout: time.Minute}, nil, nil, discardLogger())

	price, err := svc.Price(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 42.0, price)
	assert.Equal(t, "AAPL", gotSymbol)
	assert.Equal(t, "trace-1", gotValue)
	assert.Equal(t, "closed", svc.BreakerState())

	assert.Equal(t, "disabled", NewPriceService(provider, PriceServiceConfig{}, nil, nil, discardLogger()).BreakerState())
}
