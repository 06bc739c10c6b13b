// Package app provides the top-level application lifecycle management for
// the stink-bid bot. It wires together all dependencies (exchange clients,
// the order book, the trade window, the market maker, and the optional
// Redis and PostgreSQL backends) and runs the trading session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtrask/stinkbot/internal/config"
	"github.com/dtrask/stinkbot/internal/domain"
)

// journalWriteTimeout bounds a single order insert so a stalled database
// cannot wedge the writer goroutine past shutdown.
const journalWriteTimeout = 5 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the feed
// and decision loop goroutines, and blocks until the context is cancelled
// or the configured session duration elapses. On a clean shutdown it logs
// the final strategy statistics.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting stink-bid bot",
		slog.String("symbol", a.cfg.Binance.Symbol),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	runCtx := ctx
	if a.cfg.Session.DurationSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Session.DurationSec)*time.Second)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return deps.Feed.Run(gctx) })
	g.Go(func() error { return deps.Loop.Run(gctx) })
	if deps.journalCh != nil {
		g.Go(func() error { return a.runJournal(gctx, deps) })
	}

	err = g.Wait()

	// Session end by signal or timer is the normal exit path.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	a.logger.Info("session finished",
		slog.String("statistics", deps.Maker.Statistics()))
	return err
}

// runJournal drains terminal orders into the database until the context is
// cancelled, then flushes whatever is still queued.
func (a *App) runJournal(ctx context.Context, deps *Dependencies) error {
	write := func(o domain.Order) {
		wctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		defer cancel()
		if err := deps.orders.RecordTerminal(wctx, o); err != nil {
			a.logger.Warn("order journal write failed",
				slog.String("order_id", o.ID),
				slog.String("error", err.Error()))
		}
	}

	for {
		select {
		case o := <-deps.journalCh:
			write(o)
		case <-ctx.Done():
			for {
				select {
				case o := <-deps.journalCh:
					write(o)
				default:
					return ctx.Err()
				}
			}
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
