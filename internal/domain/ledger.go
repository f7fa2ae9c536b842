package domain

import "github.com/shopspring/decimal"

// LedgerEntry is a single simulated purchase: Quantity units bought at Price
// each. Entries are immutable once created.
type LedgerEntry struct {
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// Ledger is the append-only paper-trading record. Insertion order is
// chronological and the last entry defines the reference price for the next
// decision.
//
// A Ledger is a value. Append never touches the receiver's backing array, so a
// ledger handed to another goroutine stays valid while the owner keeps
// appending to its own copy.
type Ledger struct {
	entries []LedgerEntry
}

// NewLedger returns a ledger holding a copy of entries. It does not validate
// them; use Append to build a ledger from untrusted input.
func NewLedger(entries ...LedgerEntry) Ledger {
	if len(entries) == 0 {
		return Ledger{}
	}
	out := make([]LedgerEntry, len(entries))
	copy(out, entries)
	return Ledger{entries: out}
}

// Len returns the number of entries.
func (l Ledger) Len() int { return len(l.entries) }

// IsEmpty reports whether no purchase has been recorded yet.
func (l Ledger) IsEmpty() bool { return len(l.entries) == 0 }

// Entries returns a copy of the entries in chronological order.
func (l Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns the most recently appended entry.
func (l Ledger) Last() (LedgerEntry, bool) {
	if len(l.entries) == 0 {
		return LedgerEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// LastPrice returns the price of the most recently appended entry, or false
// when the ledger is empty.
func (l Ledger) LastPrice() (float64, bool) {
	e, ok := l.Last()
	return e.Price, ok
}

// Append returns a new ledger with (quantity, price) added at the end.
func (l Ledger) Append(quantity int64, price float64) (Ledger, error) {
	if quantity < 0 {
		return l, ErrInvalidQuantity
	}
	if !ValidPrice(price) {
		return l, &InvalidPriceError{Price: price}
	}
	out := make([]LedgerEntry, len(l.entries), len(l.entries)+1)
	copy(out, l.entries)
	out = append(out, LedgerEntry{Quantity: quantity, Price: price})
	return Ledger{entries: out}, nil
}

// TotalQuantity returns the number of units held across all entries.
func (l Ledger) TotalQuantity() int64 {
	var n int64
	for _, e := range l.entries {
		n += e.Quantity
	}
	return n
}

// CostBasis returns the amount spent across all entries.
func (l Ledger) CostBasis() float64 {
	sum := decimal.Zero
	for _, e := range l.entries {
		sum = sum.Add(decimal.NewFromInt(e.Quantity).Mul(decimal.NewFromFloat(e.Price)))
	}
	return sum.InexactFloat64()
}

// TotalValue returns sum(quantity * currentPrice). It is 0 for an empty ledger.
func (l Ledger) TotalValue(currentPrice float64) float64 {
	cur := decimal.NewFromFloat(currentPrice)
	sum := decimal.Zero
	for _, e := range l.entries {
		sum = sum.Add(decimal.NewFromInt(e.Quantity).Mul(cur))
	}
	return sum.InexactFloat64()
}

// TotalProfit returns sum(quantity * (currentPrice - price)) rounded to two
// decimal places. It is 0 for an empty ledger.
func (l Ledger) TotalProfit(currentPrice float64) float64 {
	cur := decimal.NewFromFloat(currentPrice)
	sum := decimal.Zero
	for _, e := range l.entries {
		diff := cur.Sub(decimal.NewFromFloat(e.Price))
		sum = sum.Add(decimal.NewFromInt(e.Quantity).Mul(diff))
	}
	return sum.Round(2).InexactFloat64()
}
