package domain

import "time"

// Direction is the sign of the price change observed in a cycle.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// DirectionOf classifies a signed price change.
func DirectionOf(change float64) Direction {
	switch {
	case change > 0:
		return DirectionUp
	case change < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// PurchaseKind distinguishes the bootstrap purchase from dip purchases.
type PurchaseKind string

const (
	PurchaseKindInitial PurchaseKind = "initial"
	PurchaseKindDip     PurchaseKind = "dip"
)

// CycleResult describes what one evaluation cycle observed and did.
type CycleResult struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	LastPrice    float64   `json:"last_price"`
	Change       float64   `json:"change"`
	Direction    Direction `json:"direction"`
	Bootstrapped bool      `json:"bootstrapped"`
	Initial      *Purchase `json:"initial,omitempty"`
	Purchased    bool      `json:"purchased"`
	Purchase     *Purchase `json:"purchase,omitempty"`
	LedgerLen    int       `json:"ledger_len"`
	At           time.Time `json:"at"`
}

// Purchase is a simulated buy recorded by a cycle.
type Purchase struct {
	Kind     PurchaseKind `json:"kind"`
	Quantity int64        `json:"quantity"`
	Price    float64      `json:"price"`
}

// Valuation is the read-side view of a ledger at a given price.
type Valuation struct {
	Price     float64 `json:"price"`
	Value     float64 `json:"value"`
	Profit    float64 `json:"profit"`
	Quantity  int64   `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
}

// SessionSnapshot is an immutable picture of a running session, published by
// the driver after every cycle for read-only consumers such as the HTTP API.
type SessionSnapshot struct {
	SessionID string       `json:"session_id"`
	Symbol    string       `json:"symbol"`
	Mode      string       `json:"mode"`
	StartedAt time.Time    `json:"started_at"`
	Cycles    int64        `json:"cycles"`
	Failures  int64        `json:"failures"`
	Ledger    Ledger       `json:"-"`
	LastCycle *CycleResult `json:"last_cycle,omitempty"`
	Valuation *Valuation   `json:"valuation,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SnapshotSource exposes the latest session snapshot.
type SnapshotSource interface {
	Snapshot() SessionSnapshot
}
