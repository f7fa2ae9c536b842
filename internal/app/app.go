// Package app wires the dipbuyer dependencies and runs a session in the
// configured mode.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/dipbuyer/internal/config"
	"github.com/alanyoungcy/dipbuyer/internal/console"
	"github.com/alanyoungcy/dipbuyer/internal/service"
	"github.com/alanyoungcy/dipbuyer/internal/strategy"
)

// App owns the configuration, logger, and cleanup functions, which run in
// reverse order on Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	closers []func()
}

// New creates an App. Console output goes to out.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		out:    out,
	}
}

// Run wires dependencies, starts a session for symbol in the configured
// mode, and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context, symbol string) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("symbol", symbol),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	session := a.NewSession(symbol, deps)

	switch strings.ToLower(a.cfg.Mode) {
	case "paper":
		return a.PaperMode(ctx, session)
	case "full":
		return a.FullMode(ctx, deps, session)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// NewSession builds a session for symbol on top of deps.
func (a *App) NewSession(symbol string, deps *Dependencies) *service.Session {
	evaluator := strategy.NewEvaluator(StrategyConfig(a.cfg.Strategy), deps.Quotes, a.logger)
	return service.NewSession(service.SessionConfig{
		Symbol:              symbol,
		Mode:                strings.ToLower(a.cfg.Mode),
		PollInterval:        a.cfg.Strategy.PollInterval.Duration,
		FreshValuationQuote: a.cfg.Strategy.FreshValuationQuote,
	}, service.SessionDeps{
		Evaluator: evaluator,
		Valuator:  strategy.NewValuator(deps.Quotes),
		Bus:       deps.Bus,
		Purchases: deps.Purchases,
		Audit:     deps.Audit,
		Archiver:  deps.Archiver,
		Notifier:  deps.Notifier,
		Display:   console.NewDisplay(a.out),
		Metrics:   deps.Metrics,
	}, a.logger)
}

// StrategyConfig maps the strategy config section to rule tunables.
func StrategyConfig(c config.StrategyConfig) strategy.Config {
	return strategy.Config{
		MaxExpenditure:  c.MaxExpenditure,
		ScaleFactor:     c.ScaleFactor,
		InitialQuantity: c.InitialQuantity,
	}
}

// Close runs the cleanup functions in reverse registration order. Later
// calls are no-ops.
func (a *App) Close() {
	if len(a.closers) == 0 {
		return
	}
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
