// Package yahoo implements domain.QuoteSource on top of Yahoo Finance via
// piquette/finance-go.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// ProviderName identifies this source in logs and metrics.
const ProviderName = "yahoo"

// Client fetches quotes from Yahoo Finance. finance-go does not accept a
// context, so cancellation is only checked before the request is sent.
type Client struct {
	getQuote func(symbol string) (*finance.Quote, error)
}

// NewClient creates a Yahoo Finance quote client.
func NewClient() *Client {
	return &Client{getQuote: quote.Get}
}

// Price returns the regular-market price for symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// Quote returns the detailed regular-market quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, domain.NewQuoteFetchError(symbol, err)
	}

	sym := strings.ToUpper(strings.TrimSpace(symbol))
	q, err := c.getQuote(sym)
	if err != nil {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("yahoo: get quote: %w", err))
	}
	if q == nil {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("yahoo: no quote for %s: %w", sym, domain.ErrNotFound))
	}
	if !domain.ValidPrice(q.RegularMarketPrice) {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("yahoo: unusable price %v", q.RegularMarketPrice))
	}

	ts := time.Now().UTC()
	if q.RegularMarketTime > 0 {
		ts = time.Unix(int64(q.RegularMarketTime), 0).UTC()
	}

	return domain.Quote{
		Symbol:   q.Symbol,
		Name:     q.ShortName,
		Price:    q.RegularMarketPrice,
		Currency: q.CurrencyID,
		Time:     ts,
		Provider: ProviderName,
	}, nil
}

// Compile-time interface checks.
var (
	_ domain.QuoteSource   = (*Client)(nil)
	_ domain.QuoteDetailer = (*Client)(nil)
)
