package domain

import (
	"context"
	"time"
)

// QuoteSource returns the latest unit price for a symbol. Implementations may
// block, fail, or return a stale value; callers treat the result as opaque.
type QuoteSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// QuoteSourceFunc adapts a plain function to QuoteSource.
type QuoteSourceFunc func(ctx context.Context, symbol string) (float64, error)

// Price calls f(ctx, symbol).
func (f QuoteSourceFunc) Price(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// Quote is a detailed quote as reported by a provider.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name,omitempty"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency,omitempty"`
	Time     time.Time `json:"time"`
	Provider string    `json:"provider"`
}

// QuoteDetailer is implemented by providers that can report more than the
// bare price.
type QuoteDetailer interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}
