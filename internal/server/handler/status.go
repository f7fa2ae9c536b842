package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/strategy"
)

// BreakerReporter reports the quote circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// StatusHandler serves the running session's status.
type StatusHandler struct {
	snapshots domain.SnapshotSource
	breaker   BreakerReporter
	purchases domain.PurchaseStore
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. breaker and purchases may be nil;
// without a store the journaled purchase count is omitted.
func NewStatusHandler(snapshots domain.SnapshotSource, breaker BreakerReporter, purchases domain.PurchaseStore, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		snapshots: snapshots,
		breaker:   breaker,
		purchases: purchases,
		logger:    logHandler(logger, "status"),
	}
}

type statusResponse struct {
	domain.SessionSnapshot
	State         string  `json:"state"`
	LedgerEntries int     `json:"ledger_entries"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Breaker       string  `json:"breaker,omitempty"`
	LastPrice     float64 `json:"last_purchase_price,omitempty"`
	Journaled     *int64  `json:"journaled_purchases,omitempty"`
}

// GetStatus responds with the latest session snapshot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	resp := statusResponse{
		SessionSnapshot: snap,
		State:           strategy.StateOf(snap.Ledger).String(),
		LedgerEntries:   snap.Ledger.Len(),
	}
	if !snap.StartedAt.IsZero() {
		resp.UptimeSeconds = int64(time.Since(snap.StartedAt).Seconds())
	}
	if p, ok := snap.Ledger.LastPrice(); ok {
		resp.LastPrice = p
	}
	if h.breaker != nil {
		resp.Breaker = h.breaker.BreakerState()
	}
	if h.purchases != nil && snap.SessionID != "" {
		n, err := h.purchases.CountBySession(r.Context(), snap.SessionID)
		if err != nil {
			h.logger.Warn("count purchases failed",
				slog.String("session_id", snap.SessionID),
				slog.String("error", err.Error()),
			)
		} else {
			resp.Journaled = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
