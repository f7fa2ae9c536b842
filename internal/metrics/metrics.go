// Package metrics exposes Prometheus instruments for the evaluation loop.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

const namespace = "dipbuyer"

// Cycle result label values.
const (
	ResultPurchased  = "purchased"
	ResultNoPurchase = "no_purchase"
	ResultQuoteError = "quote_error"
	ResultInvalid    = "invalid_price"
	ResultOtherError = "error"
)

// Registry holds every dipbuyer metric on its own prometheus.Registry.
type Registry struct {
	reg *prometheus.Registry

	Cycles          *prometheus.CounterVec
	Purchases       *prometheus.CounterVec
	UnitsPurchased  prometheus.Counter
	QuoteErrors     *prometheus.CounterVec
	QuoteLatency    *prometheus.HistogramVec
	LedgerEntries   prometheus.Gauge
	PortfolioValue  prometheus.Gauge
	PortfolioProfit prometheus.Gauge
	LastPrice       *prometheus.GaugeVec
}

// New creates and registers all metrics. Go runtime and process collectors
// are registered alongside them.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Evaluation cycles by result.",
			},
			[]string{"result"},
		),
		Purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Simulated purchases by kind.",
			},
			[]string{"kind"},
		),
		UnitsPurchased: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "units_purchased_total",
				Help:      "Units added to the ledger.",
			},
		),
		QuoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quote_errors_total",
				Help:      "Failed quote fetches by provider.",
			},
			[]string{"provider"},
		),
		QuoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quote_fetch_seconds",
				Help:      "Quote fetch latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		LedgerEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_entries",
				Help:      "Entries in the in-memory ledger.",
			},
		),
		PortfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_value",
				Help:      "Ledger value at the last valuation price.",
			},
		),
		PortfolioProfit: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_profit",
				Help:      "Ledger profit at the last valuation price.",
			},
		),
		LastPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last fetched price by symbol.",
			},
			[]string{"symbol"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Cycles,
		r.Purchases,
		r.UnitsPurchased,
		r.QuoteErrors,
		r.QuoteLatency,
		r.LedgerEntries,
		r.PortfolioValue,
		r.PortfolioProfit,
		r.LastPrice,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveQuote records one quote fetch. A nil receiver is a no-op so callers
// can run without metrics.
func (r *Registry) ObserveQuote(provider, symbol string, elapsed time.Duration, price float64, err error) {
	if r == nil {
		return
	}
	r.QuoteLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		r.QuoteErrors.WithLabelValues(provider).Inc()
		return
	}
	r.LastPrice.WithLabelValues(symbol).Set(price)
}

// ObserveCycle records the outcome of one evaluation cycle.
func (r *Registry) ObserveCycle(res domain.CycleResult, ledgerLen int, err error) {
	if r == nil {
		return
	}
	r.Cycles.WithLabelValues(CycleResultLabel(res, err)).Inc()
	if err != nil {
		return
	}
	for _, p := range []*domain.Purchase{res.Initial, res.Purchase} {
		if p == nil {
			continue
		}
		r.Purchases.WithLabelValues(string(p.Kind)).Inc()
		r.UnitsPurchased.Add(float64(p.Quantity))
	}
	r.LedgerEntries.Set(float64(ledgerLen))
}

// ObserveValuation records the latest portfolio valuation.
func (r *Registry) ObserveValuation(v domain.Valuation) {
	if r == nil {
		return
	}
	r.PortfolioValue.Set(v.Value)
	r.PortfolioProfit.Set(v.Profit)
}

// CycleResultLabel maps a cycle outcome to its "result" label.
func CycleResultLabel(res domain.CycleResult, err error) string {
	switch {
	case err == nil && (res.Purchased || res.Bootstrapped):
		return ResultPurchased
	case err == nil:
		return ResultNoPurchase
	case errors.Is(err, domain.ErrQuoteFetch):
		return ResultQuoteError
	case errors.Is(err, domain.ErrInvalidPrice):
		return ResultInvalid
	default:
		return ResultOtherError
	}
}
