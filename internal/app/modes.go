package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/dipbuyer/internal/server"
	"github.com/alanyoungcy/dipbuyer/internal/server/handler"
	"github.com/alanyoungcy/dipbuyer/internal/server/ws"
	"github.com/alanyoungcy/dipbuyer/internal/service"
)

// shutdownTimeout bounds the HTTP server drain.
const shutdownTimeout = 5 * time.Second

// PaperMode runs the session loop alone.
func (a *App) PaperMode(ctx context.Context, session *service.Session) error {
	a.logger.InfoContext(ctx, "starting paper mode", slog.String("session_id", session.ID()))
	return session.Run(ctx)
}

// FullMode runs the session loop together with the status API and the
// websocket hub. When the server is disabled it behaves like PaperMode.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, session *service.Session) error {
	if !a.cfg.Server.Enabled {
		a.logger.WarnContext(ctx, "server disabled, running paper mode")
		return a.PaperMode(ctx, session)
	}
	a.logger.InfoContext(ctx, "starting full mode", slog.String("session_id", session.ID()))

	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.Bus, session, a.logger)
	srv := a.newServer(deps, session, hub)

	g.Go(func() error {
		return session.Run(gctx)
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

func (a *App) newServer(deps *Dependencies, session *service.Session, hub *ws.Hub) *server.Server {
	return server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RatePerSecond: a.cfg.Server.RatePerSecond,
		Burst:         a.cfg.Server.Burst,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(deps.Checks, a.logger),
		Status:    handler.NewStatusHandler(session, deps.Quotes, deps.Purchases, a.logger),
		Ledger:    handler.NewLedgerHandler(session),
		Purchases: handler.NewPurchaseHandler(deps.Purchases, a.logger),
		Metrics:   deps.Metrics.Handler(),
	}, hub, a.logger)
}
