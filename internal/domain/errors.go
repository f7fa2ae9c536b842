package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrCircuitOpen     = errors.New("quote circuit open")
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrQuantityOverflow is returned when a computed quantity does not fit
	// in an int64.
	ErrQuantityOverflow = errors.New("quantity overflow")

	// ErrQuoteFetch and ErrInvalidPrice are the errors.Is targets for
	// QuoteFetchError and InvalidPriceError.
	ErrQuoteFetch   = errors.New("quote fetch failed")
	ErrInvalidPrice = errors.New("invalid price")
)

// QuoteFetchError reports that the quote source failed or returned data that
// could not be turned into a price. The ledger is left unchanged and the cycle
// is aborted; the driver decides whether to retry on its next tick.
type QuoteFetchError struct {
	Symbol string
	Err    error
}

func (e *QuoteFetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("quote fetch %s failed", e.Symbol)
	}
	return fmt.Sprintf("quote fetch %s: %v", e.Symbol, e.Err)
}

func (e *QuoteFetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrQuoteFetch) match any QuoteFetchError.
func (e *QuoteFetchError) Is(target error) bool { return target == ErrQuoteFetch }

// NewQuoteFetchError wraps err for symbol. An err that is already a
// QuoteFetchError is returned unchanged.
func NewQuoteFetchError(symbol string, err error) error {
	var qe *QuoteFetchError
	if errors.As(err, &qe) {
		return err
	}
	return &QuoteFetchError{Symbol: symbol, Err: err}
}

// ValidPrice reports whether p is a finite, strictly positive price.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

// InvalidPriceError reports a non-positive price reaching the decision rule
// or the ledger.
type InvalidPriceError struct {
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %v: must be finite and > 0", e.Price)
}

// Is lets errors.Is(err, ErrInvalidPrice) match any InvalidPriceError.
func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }
