package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// PurchaseHandler serves the purchase journal.
type PurchaseHandler struct {
	store  domain.PurchaseStore
	logger *slog.Logger
}

// NewPurchaseHandler creates a PurchaseHandler. A nil store makes every
// request answer 503.
func NewPurchaseHandler(store domain.PurchaseStore, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{store: store, logger: logHandler(logger, "purchases")}
}

// ListPurchases responds with journaled purchases, newest first.
// GET /api/purchases?symbol=&since=&until=&limit=&offset=
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "purchase journal is not configured")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since and until must be RFC 3339 timestamps")
		return
	}

	recs, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("list purchases failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}
	if recs == nil {
		recs = []domain.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"purchases": recs,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}
