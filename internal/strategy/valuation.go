package strategy

import (
	"context"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// Valuate computes the value and profit of ledger at price. It has no side
// effects.
func Valuate(ledger domain.Ledger, price float64) domain.Valuation {
	return domain.Valuation{
		Price:     price,
		Value:     ledger.TotalValue(price),
		Profit:    ledger.TotalProfit(price),
		Quantity:  ledger.TotalQuantity(),
		CostBasis: ledger.CostBasis(),
	}
}

// Valuator prices a ledger against a freshly fetched quote.
type Valuator struct {
	quotes domain.QuoteSource
}

// NewValuator creates a Valuator reading from quotes.
func NewValuator(quotes domain.QuoteSource) *Valuator {
	return &Valuator{quotes: quotes}
}

// Valuate fetches the current price for symbol and values ledger at it.
func (v *Valuator) Valuate(ctx context.Context, symbol string, ledger domain.Ledger) (domain.Valuation, error) {
	price, err := v.quotes.Price(ctx, symbol)
	if err != nil {
		return domain.Valuation{}, domain.NewQuoteFetchError(symbol, err)
	}
	if !domain.ValidPrice(price) {
		return domain.Valuation{}, &domain.InvalidPriceError{Price: price}
	}
	return Valuate(ledger, price), nil
}
