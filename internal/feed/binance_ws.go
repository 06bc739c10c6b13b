package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dtrask/stinkbot/internal/binance"
	"github.com/dtrask/stinkbot/internal/domain"
)

// reconnectDelay is the pause before re-dialing a dropped stream.
const reconnectDelay = 2 * time.Second

// BinanceFeed connects to the Binance combined stream for one symbol and
// pushes decoded diffs and trades into the decision loop's queues. Sends
// block when a queue is full; that backpressure is deliberate.
type BinanceFeed struct {
	url    string
	depth  chan<- domain.DepthUpdate
	trades chan<- domain.Trade
	logger *slog.Logger
}

// NewBinanceFeed creates a feed subscribing to the diff depth stream and
// either the aggregate or raw trade stream for symbol.
func NewBinanceFeed(wsBase, symbol string, useAggTrades bool, depth chan<- domain.DepthUpdate, trades chan<- domain.Trade, logger *slog.Logger) *BinanceFeed {
	s := strings.ToLower(symbol)
	streams := []string{s + "@depth@100ms"}
	if useAggTrades {
		streams = append(streams, s+"@aggTrade")
	} else {
		streams = append(streams, s+"@trade")
	}
	return &BinanceFeed{
		url:    binance.StreamURL(wsBase, streams),
		depth:  depth,
		trades: trades,
		logger: logger.With(slog.String("component", "binance_feed")),
	}
}

// Run connects and pumps events until ctx is cancelled, reconnecting on
// disconnect.
func (f *BinanceFeed) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("binance stream disconnected, reconnecting",
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BinanceFeed) runConnection(ctx context.Context) error {
	client := binance.NewStreamClient(f.url, func(ev binance.Event) {
		f.dispatch(ctx, ev)
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	f.logger.Info("binance stream connected", slog.String("url", f.url))
	return client.Listen(ctx)
}

func (f *BinanceFeed) dispatch(ctx context.Context, ev binance.Event) {
	switch ev.Type {
	case binance.EventDepthUpdate:
		select {
		case f.depth <- *ev.DepthUpdate:
		case <-ctx.Done():
		}
	case binance.EventTrade, binance.EventAggTrade:
		select {
		case f.trades <- *ev.Trade:
		case <-ctx.Done():
		}
	case binance.EventUnknown:
		f.logger.Debug("unrecognized stream message", slog.Int("bytes", len(ev.Raw)))
	default:
		// Subscribed streams only produce depth and trades; anything else
		// is informational.
		f.logger.Debug("ignoring stream event", slog.String("type", string(ev.Type)))
	}
}
