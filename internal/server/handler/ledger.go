package handler

import (
	"net/http"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// LedgerHandler serves the in-memory ledger of the running session.
type LedgerHandler struct {
	snapshots domain.SnapshotSource
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(snapshots domain.SnapshotSource) *LedgerHandler {
	return &LedgerHandler{snapshots: snapshots}
}

type ledgerResponse struct {
	Symbol        string               `json:"symbol"`
	Entries       []domain.LedgerEntry `json:"entries"`
	TotalQuantity int64                `json:"total_quantity"`
	CostBasis     float64              `json:"cost_basis"`
	Valuation     *domain.Valuation    `json:"valuation,omitempty"`
}

// GetLedger responds with every entry, the totals, and the latest valuation.
// GET /api/ledger
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	writeJSON(w, http.StatusOK, ledgerResponse{
		Symbol:        snap.Symbol,
		Entries:       snap.Ledger.Entries(),
		TotalQuantity: snap.Ledger.TotalQuantity(),
		CostBasis:     snap.Ledger.CostBasis(),
		Valuation:     snap.Valuation,
	})
}
