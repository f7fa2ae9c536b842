package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Symbol string
	Since  *time.Time
	Until  *time.Time
}

// PurchaseRecord is a journaled purchase. The journal is an audit trail only;
// the in-memory ledger is never rebuilt from it.
type PurchaseRecord struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Symbol    string       `json:"symbol"`
	Kind      PurchaseKind `json:"kind"`
	Quantity  int64        `json:"quantity"`
	Price     float64      `json:"price"`
	CreatedAt time.Time    `json:"created_at"`
}

// PurchaseStore persists the purchase journal.
type PurchaseStore interface {
	Insert(ctx context.Context, rec PurchaseRecord) error
	List(ctx context.Context, opts ListOpts) ([]PurchaseRecord, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
