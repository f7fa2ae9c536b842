package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dipbuyer/internal/cache/memory"
	"github.com/alanyoungcy/dipbuyer/internal/console"
	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/notify"
	"github.com/alanyoungcy/dipbuyer/internal/platform/replay"
	"github.com/alanyoungcy/dipbuyer/internal/strategy"
)

type mockPurchaseStore struct{ mock.Mock }

func (m *mockPurchaseStore) Insert(ctx context.Context, rec domain.PurchaseRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockPurchaseStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.PurchaseRecord, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).([]domain.PurchaseRecord), args.Error(1)
}

func (m *mockPurchaseStore) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) Archive(ctx context.Context, report domain.SessionReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

type recordingSender struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

func newTestSession(src domain.QuoteSource, cfg SessionConfig, deps SessionDeps) *Session {
	deps.Evaluator = strategy.NewEvaluator(strategy.DefaultConfig(), src, discardLogger())
	deps.Valuator = strategy.NewValuator(src)
	if cfg.Symbol == "" {
		cfg.Symbol = "GOOG"
	}
	if cfg.Mode == "" {
		cfg.Mode = "paper"
	}
	return NewSession(cfg, deps, discardLogger())
}

func TestSession_Scenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewBus()
	purchasesCh, err := bus.Subscribe(ctx, domain.ChannelPurchases)
	require.NoError(t, err)

	store := new(mockPurchaseStore)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(r domain.PurchaseRecord) bool {
		return r.Symbol == "GOOG" && r.ID != ""
	})).Return(nil).Times(3)

	sender := &recordingSender{}
	var out bytes.Buffer
	s := newTestSession(replay.New(100, 90, 95, 80), SessionConfig{}, SessionDeps{
		Bus:       bus,
		Purchases: store,
		Notifier:  notify.NewNotifier([]notify.Sender{sender}, nil, discardLogger()),
		Display:   console.NewDisplay(&out),
	})

	s.RunCycles(ctx, 4)

	snap := s.Snapshot()
	assert.Equal(t, []domain.LedgerEntry{
		{Quantity: 100, Price: 100},
		{Quantity: 11, Price: 90},
		{Quantity: 12, Price: 80},
	}, snap.Ledger.Entries())
	assert.Equal(t, int64(4), snap.Cycles)
	assert.Zero(t, snap.Failures)
	require.NotNil(t, snap.Valuation)
	assert.Equal(t, 80.0, snap.Valuation.Price)
	assert.Equal(t, 123*80.0, snap.Valuation.Value)
	require.NotNil(t, snap.LastCycle)
	assert.True(t, snap.LastCycle.Purchased)

	store.AssertExpectations(t)
	assert.Equal(t, []string{"Initial purchase", "Purchased", "Purchased"}, sender.Titles())

	var kinds []domain.PurchaseKind
	for i := 0; i < 3; i++ {
		select {
		case msg := <-purchasesCh:
			var rec domain.PurchaseRecord
			require.NoError(t, json.Unmarshal(msg, &rec))
			kinds = append(kinds, rec.Kind)
		case <-time.After(time.Second):
			t.Fatal("missing purchase event")
		}
	}
	assert.Equal(t, []domain.PurchaseKind{"initial", "dip", "dip"}, kinds)

	assert.Contains(t, out.String(), "Initial purchase of 100 GOOG")
	assert.Contains(t, out.String(), "Purchased 12 GOOG at $80.00")
}

func TestSession_FreshValuationQuote(t *testing.T) {
	s := newTestSession(replay.New(100, 104, 90, 88), SessionConfig{FreshValuationQuote: true}, SessionDeps{})

	require.NoError(t, s.Step(context.Background()))
	v := s.Snapshot().Valuation
	require.NotNil(t, v)
	assert.Equal(t, 104.0, v.Price)
	assert.Equal(t, 400.0, v.Profit)

	require.NoError(t, s.Step(context.Background()))
	v = s.Snapshot().Valuation
	assert.Equal(t, 88.0, v.Price)
	assert.Equal(t, []domain.LedgerEntry{{Quantity: 100, Price: 100}, {Quantity: 11, Price: 90}}, s.Snapshot().Ledger.Entries())
}

func TestSession_CycleFailure(t *testing.T) {
	sender := &recordingSender{}
	store := new(mockPurchaseStore)
	s := newTestSession(replay.NewSteps(
		replay.Step{Err: errors.New("connection reset")},
		replay.Step{Price: 50},
	), SessionConfig{}, SessionDeps{
		Purchases: store,
		Notifier:  notify.NewNotifier([]notify.Sender{sender}, []string{notify.EventQuoteError}, discardLogger()),
	})

	err := s.Step(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuoteFetch)

	snap := s.Snapshot()
	assert.True(t, snap.Ledger.IsEmpty())
	assert.Equal(t, int64(1), snap.Failures)
	assert.Contains(t, snap.LastError, "connection reset")
	assert.Equal(t, []string{"Quote error"}, sender.Titles())
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)

	store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	require.NoError(t, s.Step(context.Background()), "journal failures do not fail the cycle")
	snap = s.Snapshot()
	assert.Equal(t, 1, snap.Ledger.Len())
	assert.Empty(t, snap.LastError)
	store.AssertExpectations(t)
}

func TestSession_RunArchivesOnExit(t *testing.T) {
	archiver := new(mockArchiver)
	archiver.On("Archive", mock.Anything, mock.MatchedBy(func(r domain.SessionReport) bool {
		return r.Symbol == "MSFT" && len(r.Entries) >= 1
	})).Return("reports/MSFT/x.json", nil).Once()

	sender := &recordingSender{}
	s := newTestSession(replay.New(100, 90), SessionConfig{
		Symbol:       "MSFT",
		PollInterval: time.Millisecond,
	}, SessionDeps{
		Archiver: archiver,
		Notifier: notify.NewNotifier([]notify.Sender{sender}, []string{notify.EventSessionEnded}, discardLogger()),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	archiver.AssertExpectations(t)
	assert.Equal(t, []string{"Session ended"}, sender.Titles())
	assert.GreaterOrEqual(t, s.Snapshot().Cycles, int64(2))
	assert.Equal(t, []domain.LedgerEntry{{Quantity: 100, Price: 100}, {Quantity: 11, Price: 90}}, s.Snapshot().Ledger.Entries())
}

func TestSession_FinishReportsArchiveError(t *testing.T) {
	archiver := new(mockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything).Return("", errors.New("bucket missing"))

	s := newTestSession(replay.New(10), SessionConfig{}, SessionDeps{Archiver: archiver})
	s.RunCycles(context.Background(), 1)

	report, err := s.Finish(context.Background())
	assert.ErrorContains(t, err, "bucket missing")
	assert.Equal(t, s.ID(), report.SessionID)
	assert.Len(t, report.Entries, 1)
}
