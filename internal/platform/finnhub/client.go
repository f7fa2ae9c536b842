// Package finnhub implements domain.QuoteSource against the Finnhub REST API.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

const (
	// ProviderName identifies this source in logs and metrics.
	ProviderName = "finnhub"

	DefaultBaseURL = "https://finnhub.io/api/v1"
)

// quoteResponse is the body of GET /quote.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client fetches real-time quotes from Finnhub.
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient creates a Finnhub client. An empty baseURL uses DefaultBaseURL;
// a zero timeout leaves resty's default in place.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c, apiKey: apiKey}
}

// Price returns the current price for symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// Quote returns the current quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if c.apiKey == "" {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, errors.New("finnhub: api key not configured"))
	}

	var body quoteResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": sym,
			"token":  c.apiKey,
		}).
		SetResult(&body).
		SetError(&apiErr).
		Get("/quote")
	if err != nil {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("finnhub: get quote: %w", err))
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("finnhub: %w", domain.ErrRateLimited))
	case resp.IsError():
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("finnhub: status %d: %s", resp.StatusCode(), msg))
	}

	// Finnhub answers unknown symbols with 200 and an all-zero body.
	if body.Current == 0 && body.Timestamp == 0 {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("finnhub: no quote for %s: %w", sym, domain.ErrNotFound))
	}
	if !domain.ValidPrice(body.Current) {
		return domain.Quote{}, domain.NewQuoteFetchError(sym, fmt.Errorf("finnhub: unusable price %v", body.Current))
	}

	ts := time.Now().UTC()
	if body.Timestamp > 0 {
		ts = time.Unix(body.Timestamp, 0).UTC()
	}
	return domain.Quote{
		Symbol:   sym,
		Price:    body.Current,
		Currency: "USD",
		Time:     ts,
		Provider: ProviderName,
	}, nil
}

var (
	_ domain.QuoteSource   = (*Client)(nil)
	_ domain.QuoteDetailer = (*Client)(nil)
)
