package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/dipbuyer/internal/console"
	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/metrics"
	"github.com/alanyoungcy/dipbuyer/internal/notify"
	"github.com/alanyoungcy/dipbuyer/internal/strategy"
)

// finishTimeout bounds the shutdown work (report upload, final
// notification) once the run context is gone.
const finishTimeout = 30 * time.Second

// SessionConfig describes one watched symbol.
type SessionConfig struct {
	Symbol       string
	Mode         string
	PollInterval time.Duration
	// FreshValuationQuote values the ledger at a second, freshly fetched
	// price; otherwise the cycle price is reused.
	FreshValuationQuote bool
}

// SessionDeps are the collaborators of a Session. Everything except
// Evaluator and Valuator may be nil.
type SessionDeps struct {
	Evaluator *strategy.Evaluator
	Valuator  *strategy.Valuator
	Bus       domain.SignalBus
	Purchases domain.PurchaseStore
	Audit     domain.AuditStore
	Archiver  domain.ReportArchiver
	Notifier  *notify.Notifier
	Display   *console.Display
	Metrics   *metrics.Registry
}

// Session owns the ledger for one symbol and drives evaluation cycles. The
// ledger is only touched by the goroutine calling Run or RunCycles; other
// goroutines read the immutable snapshot published after every cycle.
type Session struct {
	id   string
	cfg  SessionConfig
	deps SessionDeps

	ledger    domain.Ledger
	valuation *domain.Valuation
	cycles    int64
	failures  int64
	startedAt time.Time

	snapshot atomic.Pointer[domain.SessionSnapshot]
	now      func() time.Time
	logger   *slog.Logger
}

// NewSession creates a Session with an empty ledger.
func NewSession(cfg SessionConfig, deps SessionDeps, logger *slog.Logger) *Session {
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		deps:   deps,
		ledger: domain.NewLedger(),
		now:    time.Now,
	}
	s.startedAt = s.now().UTC()
	s.logger = logger.With(
		slog.String("component", "session"),
		slog.String("session_id", s.id),
		slog.String("symbol", cfg.Symbol),
	)
	s.publishSnapshot(nil, "")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns the latest published state. It is safe to call from any
// goroutine.
func (s *Session) Snapshot() domain.SessionSnapshot {
	return *s.snapshot.Load()
}

// Run executes cycles every PollInterval until ctx is done, then finishes
// the session. Cycle failures are reported and retried on the next tick.
func (s *Session) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "session started",
		slog.String("mode", s.cfg.Mode),
		slog.Duration("poll_interval", s.cfg.PollInterval),
	)
	if s.deps.Display != nil {
		s.deps.Display.Banner(s.cfg.Symbol, s.cfg.Mode)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_, err := s.Finish(context.WithoutCancel(ctx))
			return err
		case <-timer.C:
		}

		s.Step(ctx)
		timer.Reset(s.cfg.PollInterval)
	}
}

// RunCycles executes n cycles back to back without sleeping. It stops early
// if ctx is done.
func (s *Session) RunCycles(ctx context.Context, n int) {
	for i := 0; i < n && ctx.Err() == nil; i++ {
		s.Step(ctx)
	}
}

// Step runs one evaluation cycle with all of its side effects and returns
// the cycle error, if any. The ledger is unchanged on error.
func (s *Session) Step(ctx context.Context) error {
	s.cycles++
	next, res, err := s.deps.Evaluator.Cycle(ctx, s.cfg.Symbol, s.ledger)
	s.deps.Metrics.ObserveCycle(res, next.Len(), err)

	if err != nil {
		s.failures++
		s.handleCycleError(ctx, err)
		s.publishSnapshot(nil, err.Error())
		return err
	}
	s.ledger = next

	s.publish(ctx, domain.ChannelCycles, res)
	for _, p := range []*domain.Purchase{res.Initial, res.Purchase} {
		if p != nil {
			s.recordPurchase(ctx, *p)
		}
	}

	s.revalue(ctx, res.Price)

	if d := s.deps.Display; d != nil {
		d.Cycle(res)
		if s.valuation != nil {
			d.Valuation(*s.valuation)
		}
	}
	s.publishSnapshot(&res, "")
	return nil
}

func (s *Session) handleCycleError(ctx context.Context, err error) {
	s.logger.ErrorContext(ctx, "cycle failed",
		slog.Int64("cycle", s.cycles),
		slog.String("error", err.Error()),
	)
	if s.deps.Display != nil {
		s.deps.Display.Error(err)
	}
	if errors.Is(err, domain.ErrQuoteFetch) {
		s.notify(ctx, notify.EventQuoteError, "Quote error",
			fmt.Sprintf("%s: %v", s.cfg.Symbol, err))
	}
	s.audit(ctx, "cycle_failed", map[string]any{"error": err.Error()})
}

func (s *Session) recordPurchase(ctx context.Context, p domain.Purchase) {
	rec := domain.PurchaseRecord{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Symbol:    s.cfg.Symbol,
		Kind:      p.Kind,
		Quantity:  p.Quantity,
		Price:     p.Price,
		CreatedAt: s.now().UTC(),
	}
	if s.deps.Purchases != nil {
		if err := s.deps.Purchases.Insert(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "journal purchase failed",
				slog.String("purchase_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.audit(ctx, "purchase", map[string]any{
		"purchase_id": rec.ID,
		"kind":        string(p.Kind),
		"quantity":    p.Quantity,
		"price":       p.Price,
	})
	s.publish(ctx, domain.ChannelPurchases, rec)

	event, title := notify.EventPurchase, "Purchased"
	if p.Kind == domain.PurchaseKindInitial {
		event, title = notify.EventInitialPurchase, "Initial purchase"
	}
	s.notify(ctx, event, title, fmt.Sprintf("%d %s at $%.2f", p.Quantity, s.cfg.Symbol, p.Price))
}

// revalue updates the valuation. A failed fresh quote keeps the previous
// valuation.
func (s *Session) revalue(ctx context.Context, cyclePrice float64) {
	var v domain.Valuation
	if s.cfg.FreshValuationQuote && s.deps.Valuator != nil {
		fresh, err := s.deps.Valuator.Valuate(ctx, s.cfg.Symbol, s.ledger)
		if err != nil {
			s.logger.WarnContext(ctx, "valuation quote failed",
				slog.String("error", err.Error()),
			)
			return
		}
		v = fresh
	} else {
		v = strategy.Valuate(s.ledger, cyclePrice)
	}
	s.valuation = &v
	s.deps.Metrics.ObserveValuation(v)

	s.logger.InfoContext(ctx, "portfolio valued",
		slog.Float64("price", v.Price),
		slog.Float64("value", v.Value),
		slog.Float64("profit", v.Profit),
		slog.Int64("quantity", v.Quantity),
	)
}

// Finish archives the session report and sends the session_ended
// notification. It returns the report even when archiving fails.
func (s *Session) Finish(ctx context.Context) (domain.SessionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, finishTimeout)
	defer cancel()

	report := s.Report()
	s.logger.InfoContext(ctx, "session ended",
		slog.Int64("cycles", report.Cycles),
		slog.Int64("failures", report.Failures),
		slog.Int("entries", len(report.Entries)),
	)

	var archiveErr error
	if s.deps.Archiver != nil {
		key, err := s.deps.Archiver.Archive(ctx, report)
		if err != nil {
			archiveErr = fmt.Errorf("session: archive report: %w", err)
			s.logger.ErrorContext(ctx, "archive report failed", slog.String("error", err.Error()))
		} else {
			s.logger.InfoContext(ctx, "report archived", slog.String("key", key))
		}
	}

	msg := fmt.Sprintf("%s: %d cycles, %d entries", s.cfg.Symbol, report.Cycles, len(report.Entries))
	if v := report.Valuation; v != nil {
		msg += fmt.Sprintf(", value $%.2f, profit $%.2f", v.Value, v.Profit)
	}
	s.notify(ctx, notify.EventSessionEnded, "Session ended", msg)
	s.audit(ctx, "session_ended", map[string]any{
		"cycles":   report.Cycles,
		"failures": report.Failures,
		"entries":  len(report.Entries),
	})
	return report, archiveErr
}

// Report builds the session report from the current state.
func (s *Session) Report() domain.SessionReport {
	snap := s.Snapshot()
	return domain.SessionReport{
		SessionID: s.id,
		Symbol:    s.cfg.Symbol,
		Mode:      s.cfg.Mode,
		StartedAt: s.startedAt,
		EndedAt:   s.now().UTC(),
		Cycles:    snap.Cycles,
		Failures:  snap.Failures,
		Entries:   snap.Ledger.Entries(),
		Valuation: snap.Valuation,
	}
}

func (s *Session) publishSnapshot(last *domain.CycleResult, lastErr string) {
	prev := s.snapshot.Load()
	if last == nil && prev != nil {
		last = prev.LastCycle
	}
	snap := &domain.SessionSnapshot{
		SessionID: s.id,
		Symbol:    s.cfg.Symbol,
		Mode:      s.cfg.Mode,
		StartedAt: s.startedAt,
		Cycles:    s.cycles,
		Failures:  s.failures,
		Ledger:    s.ledger,
		LastCycle: last,
		Valuation: s.valuation,
		LastError: lastErr,
		UpdatedAt: s.now().UTC(),
	}
	s.snapshot.Store(snap)
	if s.cycles > 0 {
		s.publish(context.Background(), domain.ChannelStatus, snap)
	}
}

func (s *Session) publish(ctx context.Context, channel string, v any) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.deps.Bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Session) notify(ctx context.Context, event, title, message string) {
	if !s.deps.Notifier.Enabled(event) {
		return
	}
	// Failures are already logged per sender.
	_ = s.deps.Notifier.Notify(ctx, event, title, message)
}

func (s *Session) audit(ctx context.Context, event string, detail map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	detail["session_id"] = s.id
	detail["symbol"] = s.cfg.Symbol
	if err := s.deps.Audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
