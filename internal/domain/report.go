package domain

import (
	"context"
	"time"
)

// SessionReport summarises a finished session for archival.
type SessionReport struct {
	SessionID string        `json:"session_id"`
	Symbol    string        `json:"symbol"`
	Mode      string        `json:"mode"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Cycles    int64         `json:"cycles"`
	Failures  int64         `json:"failures"`
	Entries   []LedgerEntry `json:"entries"`
	Valuation *Valuation    `json:"valuation,omitempty"`
}

// ReportArchiver stores session reports and returns the object key.
type ReportArchiver interface {
	Archive(ctx context.Context, report SessionReport) (string, error)
}
