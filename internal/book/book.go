// Package book maintains a local replica of an exchange limit order book from
// a snapshot-plus-incremental-diff feed and exposes derived metrics over it.
//
// The synchronization protocol follows the standard snapshot-then-replay
// scheme: buffer diffs, apply a snapshot, drain the buffer strictly, then
// process live diffs tolerating stale duplicates but failing on forward gaps.
package book

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dtrask/stinkbot/internal/domain"
)

// derived holds the cached metrics recomputed after every successful
// mutation. Strategy code reads these, never the raw ladders.
type derived struct {
	bestBid   domain.PriceLevel
	bestAsk   domain.PriceLevel
	hasBid    bool
	hasAsk    bool
	spread    float64
	mid       float64
	relSpread float64
	imbalance float64
	twoSided  bool
}

// OrderBook is a single-owner order book replica. It is not safe for
// concurrent use; the decision loop owns it exclusively.
type OrderBook struct {
	bids ladder
	asks ladder

	lastUpdateID   uint64
	lastUpdateTime time.Time

	cache  derived
	logger *slog.Logger
}

// New creates an empty, unsynchronized OrderBook. Derived metrics are absent
// until the first snapshot is applied.
func New(logger *slog.Logger) *OrderBook {
	return &OrderBook{
		bids:   newLadder(true),
		asks:   newLadder(false),
		logger: logger.With(slog.String("component", "orderbook")),
	}
}

// ApplySnapshot replaces the entire book with the snapshot contents and sets
// the sequence watermark. Levels with non-positive size are never inserted.
func (b *OrderBook) ApplySnapshot(snap domain.DepthSnapshot) {
	b.logger.Info("applying snapshot", slog.Uint64("last_update_id", snap.LastUpdateID))

	b.bids.clear()
	b.asks.clear()
	for _, lvl := range snap.Bids {
		if lvl.Size > 0 {
			b.bids.upsert(lvl.Price, lvl.Size)
		}
	}
	for _, lvl := range snap.Asks {
		if lvl.Size > 0 {
			b.asks.upsert(lvl.Price, lvl.Size)
		}
	}

	b.lastUpdateID = snap.LastUpdateID
	b.lastUpdateTime = time.Now().UTC()
	b.recompute()

	b.logger.Info("local orderbook initialized",
		slog.Uint64("last_update_id", b.lastUpdateID),
		slog.Int("bid_levels", b.bids.len()),
		slog.Int("ask_levels", b.asks.len()),
	)
}

// ProcessUpdate applies a live diff. Updates entirely at or below the
// watermark are stale and silently discarded; this is expected under
// at-least-once delivery. An update starting beyond watermark+1 is a sequence
// gap: the call fails with domain.ErrSequenceGap and the book is left
// unchanged, signalling the caller to resynchronize.
func (b *OrderBook) ProcessUpdate(u domain.DepthUpdate) error {
	if u.FinalUpdateID <= b.lastUpdateID {
		b.logger.Debug("ignoring stale update", slog.Uint64("final_update_id", u.FinalUpdateID))
		return nil
	}
	if u.FirstUpdateID > b.lastUpdateID+1 {
		return fmt.Errorf("book: local=%d update=[%d,%d]: %w",
			b.lastUpdateID, u.FirstUpdateID, u.FinalUpdateID, domain.ErrSequenceGap)
	}
	b.apply(u)
	return nil
}

// ProcessBuffer drains diffs accumulated before the snapshot was available.
// Stale entries are skipped; any other entry that does not continue the
// watermark is a fatal bootstrap gap. Unlike live processing there is no
// forgiveness here: this is the initial reconciliation step and a hole means
// the whole sync protocol must restart.
func (b *OrderBook) ProcessBuffer(buffer []domain.DepthUpdate) error {
	b.logger.Info("processing buffered updates", slog.Int("count", len(buffer)))
	for _, u := range buffer {
		if u.FinalUpdateID <= b.lastUpdateID {
			b.logger.Debug("ignoring stale buffered update", slog.Uint64("final_update_id", u.FinalUpdateID))
			continue
		}
		if u.FirstUpdateID > b.lastUpdateID+1 {
			b.logger.Warn("out of sequence update during initial buffering",
				slog.Uint64("local", b.lastUpdateID),
				slog.Uint64("first_update_id", u.FirstUpdateID),
			)
			return fmt.Errorf("book: local=%d update=[%d,%d]: %w",
				b.lastUpdateID, u.FirstUpdateID, u.FinalUpdateID, domain.ErrBootstrapGap)
		}
		b.apply(u)
	}
	return nil
}

// apply mutates the ladders, advances the watermark and recomputes the
// derived cache. Size > 0 upserts; size == 0 removes (absence is not an
// error).
func (b *OrderBook) apply(u domain.DepthUpdate) {
	for _, lvl := range u.Bids {
		if lvl.Size > 0 {
			b.bids.upsert(lvl.Price, lvl.Size)
		} else {
			b.bids.remove(lvl.Price)
		}
	}
	for _, lvl := range u.Asks {
		if lvl.Size > 0 {
			b.asks.upsert(lvl.Price, lvl.Size)
		} else {
			b.asks.remove(lvl.Price)
		}
	}

	b.lastUpdateID = u.FinalUpdateID
	if !u.EventTime.IsZero() {
		b.lastUpdateTime = u.EventTime
	} else {
		b.lastUpdateTime = time.Now().UTC()
	}
	b.recompute()
}

// recompute refreshes every cached metric from the ladders. It runs
// unconditionally after each successful mutation so the cache can never lag.
func (b *OrderBook) recompute() {
	var d derived
	d.bestBid, d.hasBid = b.bids.best()
	d.bestAsk, d.hasAsk = b.asks.best()
	if d.hasBid && d.hasAsk {
		d.twoSided = true
		d.spread = d.bestAsk.Price - d.bestBid.Price
		d.mid = (d.bestBid.Price + d.bestAsk.Price) / 2
		if d.mid != 0 {
			d.relSpread = d.spread / d.mid
		}
		if total := d.bestBid.Size + d.bestAsk.Size; total > 0 {
			d.imbalance = (d.bestBid.Size - d.bestAsk.Size) / total
		}
	}
	b.cache = d
}

// LastUpdateID returns the current sequence watermark.
func (b *OrderBook) LastUpdateID() uint64 { return b.lastUpdateID }

// LastUpdateTime returns the event time of the most recent mutation.
func (b *OrderBook) LastUpdateTime() time.Time { return b.lastUpdateTime }

// Depth returns the number of bid and ask levels currently held.
func (b *OrderBook) Depth() (bids, asks int) { return b.bids.len(), b.asks.len() }

// BestBid returns the highest resting bid level.
func (b *OrderBook) BestBid() (domain.PriceLevel, bool) {
	return b.cache.bestBid, b.cache.hasBid
}

// BestAsk returns the lowest resting ask level.
func (b *OrderBook) BestAsk() (domain.PriceLevel, bool) {
	return b.cache.bestAsk, b.cache.hasAsk
}

// Spread returns best ask minus best bid.
func (b *OrderBook) Spread() (float64, bool) {
	return b.cache.spread, b.cache.twoSided
}

// MidPrice returns the midpoint of best bid and best ask.
func (b *OrderBook) MidPrice() (float64, bool) {
	return b.cache.mid, b.cache.twoSided
}

// RelativeSpread returns the spread as a fraction of the mid price.
func (b *OrderBook) RelativeSpread() (float64, bool) {
	return b.cache.relSpread, b.cache.twoSided
}

// Imbalance returns the top-of-book volume imbalance
// (bid−ask)/(bid+ask) in [-1, 1]; positive means buy pressure.
func (b *OrderBook) Imbalance() (float64, bool) {
	return b.cache.imbalance, b.cache.twoSided
}
