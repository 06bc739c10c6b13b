package book

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dtrask/stinkbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lvl(price, size float64) domain.PriceLevel {
	return domain.PriceLevel{Price: price, Size: size}
}

func snapshot(lastID uint64, bids, asks []domain.PriceLevel) domain.DepthSnapshot {
	return domain.DepthSnapshot{LastUpdateID: lastID, Bids: bids, Asks: asks}
}

func update(first, final uint64, bids, asks []domain.PriceLevel) domain.DepthUpdate {
	return domain.DepthUpdate{FirstUpdateID: first, FinalUpdateID: final, Bids: bids, Asks: asks}
}

func TestApplySnapshot(t *testing.T) {
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1000,
		[]domain.PriceLevel{lvl(99, 2), lvl(100, 1), lvl(98, 0)},
		[]domain.PriceLevel{lvl(101, 3), lvl(102, 4)},
	))

	if got := b.LastUpdateID(); got != 1000 {
		t.Errorf("LastUpdateID = %d, want 1000", got)
	}
	bids, asks := b.Depth()
	if bids != 2 || asks != 2 {
		t.Errorf("Depth = (%d, %d), want (2, 2); zero-size levels must be dropped", bids, asks)
	}
	if bb, ok := b.BestBid(); !ok || bb.Price != 100 || bb.Size != 1 {
		t.Errorf("BestBid = %+v, %v; want price 100 size 1", bb, ok)
	}
	if ba, ok := b.BestAsk(); !ok || ba.Price != 101 || ba.Size != 3 {
		t.Errorf("BestAsk = %+v, %v; want price 101 size 3", ba, ok)
	}
}

func TestEmptyBookMetricsAbsent(t *testing.T) {
	b := New(testLogger())
	if _, ok := b.BestBid(); ok {
		t.Error("BestBid on empty book should be absent")
	}
	if _, ok := b.Spread(); ok {
		t.Error("Spread on empty book should be absent")
	}
	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice on empty book should be absent")
	}
	if _, ok := b.Imbalance(); ok {
		t.Error("Imbalance on empty book should be absent")
	}
}

func TestOneSidedBookMetricsAbsent(t *testing.T) {
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1, []domain.PriceLevel{lvl(100, 1)}, nil))

	if _, ok := b.BestBid(); !ok {
		t.Error("BestBid should be present on a bid-only book")
	}
	if _, ok := b.Spread(); ok {
		t.Error("Spread should be absent without both sides")
	}
	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice should be absent without both sides")
	}
}

func TestDerivedMetrics(t *testing.T) {
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1,
		[]domain.PriceLevel{lvl(100, 3)},
		[]domain.PriceLevel{lvl(102, 1)},
	))

	if spread, ok := b.Spread(); !ok || spread != 2 {
		t.Errorf("Spread = %v, %v; want 2", spread, ok)
	}
	if mid, ok := b.MidPrice(); !ok || mid != 101 {
		t.Errorf("MidPrice = %v, %v; want 101", mid, ok)
	}
	if rel, ok := b.RelativeSpread(); !ok || rel != 2.0/101 {
		t.Errorf("RelativeSpread = %v, %v; want %v", rel, ok, 2.0/101)
	}
	// (3-1)/(3+1) = 0.5
	if imb, ok := b.Imbalance(); !ok || imb != 0.5 {
		t.Errorf("Imbalance = %v, %v; want 0.5", imb, ok)
	}
}

func TestProcessUpdate(t *testing.T) {
	t.Run("contiguous update applies", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(10, []domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		err := b.ProcessUpdate(update(11, 12,
			[]domain.PriceLevel{lvl(100.5, 2)}, nil))
		if err != nil {
			t.Fatalf("ProcessUpdate: %v", err)
		}
		if got := b.LastUpdateID(); got != 12 {
			t.Errorf("LastUpdateID = %d, want 12", got)
		}
		if bb, _ := b.BestBid(); bb.Price != 100.5 {
			t.Errorf("BestBid.Price = %v, want 100.5", bb.Price)
		}
	})

	t.Run("straddling update applies", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(10, []domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		// First ID at or below watermark+1, final beyond it.
		if err := b.ProcessUpdate(update(9, 13, []domain.PriceLevel{lvl(99, 5)}, nil)); err != nil {
			t.Fatalf("ProcessUpdate: %v", err)
		}
		if got := b.LastUpdateID(); got != 13 {
			t.Errorf("LastUpdateID = %d, want 13", got)
		}
	})

	t.Run("stale update is dropped silently", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(10, []domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		if err := b.ProcessUpdate(update(5, 10, []domain.PriceLevel{lvl(90, 9)}, nil)); err != nil {
			t.Fatalf("stale update should not error: %v", err)
		}
		if got := b.LastUpdateID(); got != 10 {
			t.Errorf("LastUpdateID = %d, want 10 (unchanged)", got)
		}
		if bb, _ := b.BestBid(); bb.Price != 100 {
			t.Errorf("BestBid.Price = %v, want 100 (unchanged)", bb.Price)
		}
	})

	t.Run("gap rejects and leaves book unchanged", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(10, []domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		err := b.ProcessUpdate(update(12, 13, []domain.PriceLevel{lvl(100, 0)}, nil))
		if !errors.Is(err, domain.ErrSequenceGap) {
			t.Fatalf("err = %v, want ErrSequenceGap", err)
		}
		if got := b.LastUpdateID(); got != 10 {
			t.Errorf("LastUpdateID = %d, want 10 (unchanged)", got)
		}
		if bb, _ := b.BestBid(); bb.Price != 100 || bb.Size != 1 {
			t.Errorf("BestBid = %+v, want {100 1} (unchanged)", bb)
		}
	})

	t.Run("zero size removes level, absent removal is a no-op", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(10,
			[]domain.PriceLevel{lvl(100, 1), lvl(99, 2)},
			[]domain.PriceLevel{lvl(101, 1)},
		))

		err := b.ProcessUpdate(update(11, 11, []domain.PriceLevel{
			lvl(100, 0), // removes best bid
			lvl(95, 0),  // never existed
		}, nil))
		if err != nil {
			t.Fatalf("ProcessUpdate: %v", err)
		}
		bids, _ := b.Depth()
		if bids != 1 {
			t.Errorf("bid levels = %d, want 1", bids)
		}
		if bb, _ := b.BestBid(); bb.Price != 99 {
			t.Errorf("BestBid.Price = %v, want 99", bb.Price)
		}
	})
}

func TestProcessBuffer(t *testing.T) {
	t.Run("skips stale then applies contiguous", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(1000,
			[]domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		buf := []domain.DepthUpdate{
			update(990, 995, []domain.PriceLevel{lvl(50, 1)}, nil),  // stale
			update(996, 1000, []domain.PriceLevel{lvl(51, 1)}, nil), // stale
			update(998, 1002, []domain.PriceLevel{lvl(100, 2)}, nil),
			update(1003, 1005, nil, []domain.PriceLevel{lvl(101, 3)}),
		}
		if err := b.ProcessBuffer(buf); err != nil {
			t.Fatalf("ProcessBuffer: %v", err)
		}
		if got := b.LastUpdateID(); got != 1005 {
			t.Errorf("LastUpdateID = %d, want 1005", got)
		}
		if bb, _ := b.BestBid(); bb.Size != 2 {
			t.Errorf("BestBid.Size = %v, want 2", bb.Size)
		}
		if ba, _ := b.BestAsk(); ba.Size != 3 {
			t.Errorf("BestAsk.Size = %v, want 3", ba.Size)
		}
	})

	t.Run("gap is fatal", func(t *testing.T) {
		b := New(testLogger())
		b.ApplySnapshot(snapshot(1000,
			[]domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

		buf := []domain.DepthUpdate{
			update(1001, 1002, []domain.PriceLevel{lvl(100, 2)}, nil),
			update(1005, 1006, nil, nil),
		}
		err := b.ProcessBuffer(buf)
		if !errors.Is(err, domain.ErrBootstrapGap) {
			t.Fatalf("err = %v, want ErrBootstrapGap", err)
		}
	})
}

// Applying a sequence one update at a time must land on the same book as
// replaying the same sequence as a bootstrap buffer.
func TestIncrementalMatchesReplay(t *testing.T) {
	seq := []domain.DepthUpdate{
		update(11, 12, []domain.PriceLevel{lvl(100.5, 2), lvl(99, 0)}, []domain.PriceLevel{lvl(101, 4)}),
		update(13, 13, []domain.PriceLevel{lvl(100.5, 0)}, nil),
		update(14, 16, []domain.PriceLevel{lvl(100.2, 1)}, []domain.PriceLevel{lvl(101, 0), lvl(102, 7)}),
	}
	snap := snapshot(10,
		[]domain.PriceLevel{lvl(100, 1), lvl(99, 2)},
		[]domain.PriceLevel{lvl(101, 1), lvl(103, 2)},
	)

	live := New(testLogger())
	live.ApplySnapshot(snap)
	for i, u := range seq {
		if err := live.ProcessUpdate(u); err != nil {
			t.Fatalf("ProcessUpdate[%d]: %v", i, err)
		}
	}

	replayed := New(testLogger())
	replayed.ApplySnapshot(snap)
	if err := replayed.ProcessBuffer(seq); err != nil {
		t.Fatalf("ProcessBuffer: %v", err)
	}

	if live.LastUpdateID() != replayed.LastUpdateID() {
		t.Errorf("watermark mismatch: %d vs %d", live.LastUpdateID(), replayed.LastUpdateID())
	}
	lb, la := live.Depth()
	rb, ra := replayed.Depth()
	if lb != rb || la != ra {
		t.Errorf("depth mismatch: (%d,%d) vs (%d,%d)", lb, la, rb, ra)
	}
	lbb, _ := live.BestBid()
	rbb, _ := replayed.BestBid()
	if lbb != rbb {
		t.Errorf("best bid mismatch: %+v vs %+v", lbb, rbb)
	}
	lba, _ := live.BestAsk()
	rba, _ := replayed.BestAsk()
	if lba != rba {
		t.Errorf("best ask mismatch: %+v vs %+v", lba, rba)
	}
}

func TestProcessUpdateIdempotence(t *testing.T) {
	b := New(testLogger())
	b.ApplySnapshot(snapshot(10, []domain.PriceLevel{lvl(100, 1)}, []domain.PriceLevel{lvl(101, 1)}))

	u := update(11, 12, []domain.PriceLevel{lvl(100.5, 2)}, nil)
	if err := b.ProcessUpdate(u); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	bb1, _ := b.BestBid()
	id1 := b.LastUpdateID()

	// Redelivery of the same diff must be a no-op.
	if err := b.ProcessUpdate(u); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	bb2, _ := b.BestBid()
	if bb1 != bb2 || b.LastUpdateID() != id1 {
		t.Errorf("redelivery changed state: %+v/%d vs %+v/%d", bb1, id1, bb2, b.LastUpdateID())
	}
}
