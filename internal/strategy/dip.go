// Package strategy holds the dip-buying decision rule and the evaluation cycle
// that applies it to a paper-trading ledger.
package strategy

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

const (
	// DefaultScaleFactor sizes dip purchases: a 1% drop buys one unit.
	DefaultScaleFactor = 100.0

	// DefaultMaxExpenditure caps the bootstrap purchase.
	DefaultMaxExpenditure = 10000.0
)

// State is the logical state of a ledger with respect to the decision rule.
type State int

const (
	// StateNeedsInitialPurchase applies while the ledger is empty.
	StateNeedsInitialPurchase State = iota
	// StateEvaluating applies once any entry exists. It is never left.
	StateEvaluating
)

func (s State) String() string {
	switch s {
	case StateNeedsInitialPurchase:
		return "needs_initial_purchase"
	case StateEvaluating:
		return "evaluating"
	default:
		return "unknown"
	}
}

// StateOf reports the decision state for ledger.
func StateOf(ledger domain.Ledger) State {
	if ledger.IsEmpty() {
		return StateNeedsInitialPurchase
	}
	return StateEvaluating
}

// InitialPurchase returns floor(maxExpenditure / currentPrice).
func InitialPurchase(currentPrice, maxExpenditure float64) (int64, error) {
	if !domain.ValidPrice(currentPrice) {
		return 0, &domain.InvalidPriceError{Price: currentPrice}
	}
	return toQuantity(math.Floor(maxExpenditure / currentPrice))
}

// ShouldPurchase reports whether currentPrice is strictly below lastPrice.
func ShouldPurchase(lastPrice, currentPrice float64) bool {
	return currentPrice < lastPrice
}

// PurchaseQuantity returns floor((lastPrice - currentPrice) / currentPrice * scaleFactor).
//
// The drop is measured relative to the current price, not the last one.
func PurchaseQuantity(lastPrice, currentPrice, scaleFactor float64) (int64, error) {
	if !domain.ValidPrice(currentPrice) {
		return 0, &domain.InvalidPriceError{Price: currentPrice}
	}
	return toQuantity(math.Floor((lastPrice - currentPrice) / currentPrice * scaleFactor))
}

// toQuantity converts a floored unit count to int64. Values at or beyond
// math.MaxInt64 do not survive the conversion.
func toQuantity(q float64) (int64, error) {
	switch {
	case math.IsNaN(q), q < 0:
		return 0, domain.ErrInvalidQuantity
	case q >= math.MaxInt64:
		return 0, fmt.Errorf("quantity %g: %w", q, domain.ErrQuantityOverflow)
	}
	return int64(q), nil
}
