// Package feed serializes market data events into the single decision loop
// that owns the order book, trade window and market maker, and implements the
// snapshot-then-replay synchronization protocol with gap-triggered recovery.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dtrask/stinkbot/internal/domain"
	"github.com/dtrask/stinkbot/internal/maker"
)

// SnapshotFunc fetches a fresh depth snapshot out-of-band (REST).
type SnapshotFunc func(ctx context.Context) (domain.DepthSnapshot, error)

// StatsSink receives the periodic statistics readout, e.g. a Redis mirror.
type StatsSink interface {
	PublishStats(ctx context.Context, stats maker.Stats) error
}

// LoopConfig sizes the event queues and the statistics cadence.
type LoopConfig struct {
	DepthBuffer   int
	TradeBuffer   int
	StatsInterval time.Duration
}

// Loop is the fan-in multiplexer: producers push typed events into its
// bounded queues (a full queue blocks the producer), and a single goroutine
// drains them so book mutation and strategy decisions never interleave.
type Loop struct {
	maker    *maker.MarketMaker
	snapshot SnapshotFunc
	depthCh  chan domain.DepthUpdate
	tradeCh  chan domain.Trade

	statsInterval time.Duration
	sink          StatsSink
	logger        *slog.Logger
}

// NewLoop creates a decision loop around the given market maker. sink may be
// nil; statistics are always logged.
func NewLoop(m *maker.MarketMaker, snapshot SnapshotFunc, cfg LoopConfig, sink StatsSink, logger *slog.Logger) *Loop {
	if cfg.DepthBuffer <= 0 {
		cfg.DepthBuffer = 200
	}
	if cfg.TradeBuffer <= 0 {
		cfg.TradeBuffer = 200
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 30 * time.Second
	}
	return &Loop{
		maker:         m,
		snapshot:      snapshot,
		depthCh:       make(chan domain.DepthUpdate, cfg.DepthBuffer),
		tradeCh:       make(chan domain.Trade, cfg.TradeBuffer),
		statsInterval: cfg.StatsInterval,
		sink:          sink,
		logger:        logger.With(slog.String("component", "decision_loop")),
	}
}

// Depth is the producer side of the diff queue.
func (l *Loop) Depth() chan<- domain.DepthUpdate { return l.depthCh }

// Trades is the producer side of the trade queue.
func (l *Loop) Trades() chan<- domain.Trade { return l.tradeCh }

// Run executes sessions until ctx is cancelled. A session ends when a
// sequence gap is detected; the next iteration restarts the sync protocol
// from a fresh snapshot.
func (l *Loop) Run(ctx context.Context) error {
	for {
		err := l.session(ctx)
		if errors.Is(err, domain.ErrSequenceGap) || errors.Is(err, domain.ErrBootstrapGap) {
			l.logger.Warn("gap detected, resynchronizing", slog.String("error", err.Error()))
			continue
		}
		return err
	}
}

// session runs the ordered startup protocol, then processes live traffic:
//  1. buffer incoming diffs while the snapshot is fetched out-of-band;
//  2. apply the snapshot and strictly replay the buffer (any gap aborts);
//  3. process live diffs, tolerant of stale duplicates, fatal on a gap.
//
// Trades need no sequencing and are fed to the maker throughout.
func (l *Loop) session(ctx context.Context) error {
	type snapResult struct {
		snap domain.DepthSnapshot
		err  error
	}
	snapCh := make(chan snapResult, 1)
	go func() {
		snap, err := l.snapshot(ctx)
		snapCh <- snapResult{snap: snap, err: err}
	}()

	var buffered []domain.DepthUpdate
	var snap domain.DepthSnapshot
	waiting := true
	for waiting {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-l.depthCh:
			buffered = append(buffered, u)
		case t := <-l.tradeCh:
			l.maker.HandleTrade(t)
		case res := <-snapCh:
			if res.err != nil {
				return res.err
			}
			snap = res.snap
			waiting = false
		}
	}

	// Pick up diffs that queued while the snapshot result was delivered.
	for {
		select {
		case u := <-l.depthCh:
			buffered = append(buffered, u)
			continue
		default:
		}
		break
	}

	if err := l.maker.Bootstrap(snap, buffered); err != nil {
		return err
	}
	l.logger.Info("order book synchronized, starting live processing",
		slog.Int("replayed", len(buffered)),
		slog.Uint64("last_update_id", l.maker.Book().LastUpdateID()),
	)

	ticker := time.NewTicker(l.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-l.depthCh:
			if err := l.maker.HandleDepthUpdate(u); err != nil {
				return err
			}
		case t := <-l.tradeCh:
			l.maker.HandleTrade(t)
		case <-ticker.C:
			l.publishStats(ctx)
		}
	}
}

func (l *Loop) publishStats(ctx context.Context) {
	stats := l.maker.Stats()
	l.logger.Info("maker statistics",
		slog.Int("fills", stats.FillCount),
		slog.Int("attempts", stats.AttemptCount),
		slog.Float64("current_k", stats.CurrentK),
		slog.Int("active_orders", stats.ActiveOrders),
		slog.Int("filled_orders", stats.FilledOrders),
		slog.Int("cancelled_orders", stats.CancelledOrders),
		slog.Float64("last_imbalance", stats.LastImbalance),
		slog.Float64("last_volatility", stats.LastVolatility),
		slog.Float64("ewma_volatility", stats.EWMAVolatility),
		slog.Float64("mid_price", stats.MidPrice),
	)
	if l.sink == nil {
		return
	}
	if err := l.sink.PublishStats(ctx, stats); err != nil {
		l.logger.Debug("stats sink publish failed", slog.String("error", err.Error()))
	}
}
