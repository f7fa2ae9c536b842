package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// Config holds the tunables of the dip-buying rule.
type Config struct {
	// MaxExpenditure bounds the bootstrap purchase.
	MaxExpenditure float64
	// ScaleFactor sizes dip purchases.
	ScaleFactor float64
	// InitialQuantity, when > 0, replaces the computed bootstrap quantity.
	InitialQuantity int64
}

// DefaultConfig returns the rule's default tunables.
func DefaultConfig() Config {
	return Config{
		MaxExpenditure: DefaultMaxExpenditure,
		ScaleFactor:    DefaultScaleFactor,
	}
}

// Evaluator runs evaluation cycles. It holds no ledger: callers pass the
// current ledger in and keep the one returned.
type Evaluator struct {
	cfg    Config
	quotes domain.QuoteSource
	now    func() time.Time
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator that reads prices from quotes.
func NewEvaluator(cfg Config, quotes domain.QuoteSource, logger *slog.Logger) *Evaluator {
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = DefaultScaleFactor
	}
	return &Evaluator{
		cfg:    cfg,
		quotes: quotes,
		now:    time.Now,
		logger: logger.With(slog.String("component", "evaluator")),
	}
}

// Cycle fetches the current price for symbol once and applies the rule to
// ledger. An empty ledger is bootstrapped at the fetched price, which then
// serves as the last price, so a bootstrap cycle never buys twice.
//
// On any error the input ledger is returned unchanged.
func (e *Evaluator) Cycle(ctx context.Context, symbol string, ledger domain.Ledger) (domain.Ledger, domain.CycleResult, error) {
	res := domain.CycleResult{Symbol: symbol, LedgerLen: ledger.Len()}

	price, err := e.quotes.Price(ctx, symbol)
	if err != nil {
		return ledger, res, domain.NewQuoteFetchError(symbol, err)
	}
	res.Price = price
	res.At = e.now().UTC()
	if !domain.ValidPrice(price) {
		return ledger, res, &domain.InvalidPriceError{Price: price}
	}

	next := ledger
	lastPrice, ok := next.LastPrice()
	if !ok {
		qty := e.cfg.InitialQuantity
		if qty <= 0 {
			qty, err = InitialPurchase(price, e.cfg.MaxExpenditure)
			if err != nil {
				return ledger, res, fmt.Errorf("evaluator: initial purchase: %w", err)
			}
		}
		next, err = next.Append(qty, price)
		if err != nil {
			return ledger, res, fmt.Errorf("evaluator: append initial: %w", err)
		}
		lastPrice = price
		res.Bootstrapped = true
		res.Initial = &domain.Purchase{Kind: domain.PurchaseKindInitial, Quantity: qty, Price: price}

		e.logger.InfoContext(ctx, "initial purchase",
			slog.String("symbol", symbol),
			slog.Int64("quantity", qty),
			slog.Float64("price", price),
		)
	}

	res.LastPrice = lastPrice
	res.Change = roundCents(price - lastPrice)
	res.Direction = domain.DirectionOf(price - lastPrice)

	if ShouldPurchase(lastPrice, price) {
		qty, err := PurchaseQuantity(lastPrice, price, e.cfg.ScaleFactor)
		if err != nil {
			return ledger, res, fmt.Errorf("evaluator: purchase quantity: %w", err)
		}
		next, err = next.Append(qty, price)
		if err != nil {
			return ledger, res, fmt.Errorf("evaluator: append purchase: %w", err)
		}
		res.Purchased = true
		res.Purchase = &domain.Purchase{Kind: domain.PurchaseKindDip, Quantity: qty, Price: price}

		e.logger.InfoContext(ctx, "dip purchase",
			slog.String("symbol", symbol),
			slog.Int64("quantity", qty),
			slog.Float64("price", price),
			slog.Float64("last_price", lastPrice),
		)
	} else {
		e.logger.DebugContext(ctx, "no purchase",
			slog.String("symbol", symbol),
			slog.Float64("price", price),
			slog.Float64("last_price", lastPrice),
		)
	}

	res.LedgerLen = next.Len()
	return next, res, nil
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
