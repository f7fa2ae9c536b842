package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/server/handler"
)

type staticSnapshot domain.SessionSnapshot

func (s staticSnapshot) Snapshot() domain.SessionSnapshot { return domain.SessionSnapshot(s) }

func newTestServer(apiKey string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	snap := staticSnapshot{SessionID: "s-1", Symbol: "GOOG"}
	return NewServer(Config{Port: 0, APIKey: apiKey}, Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Checker{
			"bus": func(context.Context) error { return nil },
		}, logger),
		Status:    handler.NewStatusHandler(snap, nil, nil, logger),
		Ledger:    handler.NewLedgerHandler(snap),
		Purchases: handler.NewPurchaseHandler(nil, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}, nil, logger)
}

func TestServer_Routes(t *testing.T) {
	h := newTestServer("").Handler()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/status", http.StatusOK},
		{http.MethodGet, "/api/ledger", http.StatusOK},
		{http.MethodGet, "/api/purchases", http.StatusServiceUnavailable},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/api/status", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/orders", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_Auth(t *testing.T) {
	h := newTestServer("secret").Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
