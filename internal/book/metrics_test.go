package book

import (
	"math"
	"testing"

	"github.com/dtrask/stinkbot/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

// bids 100/2, 99/4; asks 101/2, 102/2
func twoLevelBook(t *testing.T) *OrderBook {
	t.Helper()
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1,
		[]domain.PriceLevel{lvl(100, 2), lvl(99, 4)},
		[]domain.PriceLevel{lvl(101, 2), lvl(102, 2)},
	))
	return b
}

func TestImbalanceDepth(t *testing.T) {
	b := twoLevelBook(t)

	// (6-4)/(6+4) = 0.2
	if got, ok := b.ImbalanceDepth(2); !ok || !almostEqual(got, 0.2) {
		t.Errorf("ImbalanceDepth(2) = %v, %v; want 0.2", got, ok)
	}
	// top level only: (2-2)/(2+2) = 0
	if got, ok := b.ImbalanceDepth(1); !ok || got != 0 {
		t.Errorf("ImbalanceDepth(1) = %v, %v; want 0", got, ok)
	}
	if _, ok := b.ImbalanceDepth(3); ok {
		t.Error("ImbalanceDepth(3) should be absent with only 2 levels per side")
	}
	if _, ok := b.ImbalanceDepth(0); ok {
		t.Error("ImbalanceDepth(0) should be absent")
	}
}

func TestWeightedImbalance(t *testing.T) {
	b := twoLevelBook(t)

	// bid: 2/1 + 4/2 = 4; ask: 2/1 + 2/2 = 3; (4-3)/(4+3)
	if got, ok := b.WeightedImbalance(2); !ok || !almostEqual(got, 1.0/7.0) {
		t.Errorf("WeightedImbalance(2) = %v, %v; want %v", got, ok, 1.0/7.0)
	}
}

func TestVWAPImbalance(t *testing.T) {
	b := twoLevelBook(t)

	// bid VWAP: (100*2+99*4)/6 = 598/6; ask VWAP: (101*2+102*2)/4 = 101.5
	vb := 596.0 / 6.0
	va := 101.5
	want := (vb - va) / (vb + va)
	if got, ok := b.VWAPImbalance(2); !ok || !almostEqual(got, want) {
		t.Errorf("VWAPImbalance(2) = %v, %v; want %v", got, ok, want)
	}
}

func TestBookImbalance(t *testing.T) {
	b := twoLevelBook(t)

	// bidDist = 100 - 598/6; askDist = 101.5 - 101
	vb := 596.0 / 6.0
	bidDist := 100 - vb
	askDist := 0.5
	want := (bidDist - askDist) / (bidDist + askDist)
	if got, ok := b.BookImbalance(2); !ok || !almostEqual(got, want) {
		t.Errorf("BookImbalance(2) = %v, %v; want %v", got, ok, want)
	}
}

func TestMidPriceImbalance(t *testing.T) {
	b := twoLevelBook(t)

	vb := 596.0 / 6.0
	va := 101.5
	mid := 100.5
	want := ((mid - vb) - (va - mid)) / (va - vb)
	if got, ok := b.MidPriceImbalance(2); !ok || !almostEqual(got, want) {
		t.Errorf("MidPriceImbalance(2) = %v, %v; want %v", got, ok, want)
	}
}

func TestMidPriceImbalanceDegenerate(t *testing.T) {
	// Both VWAPs equal: one level per side at the same price cannot happen in
	// a crossed-free book, so force it with equal distances instead.
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1,
		[]domain.PriceLevel{lvl(100, 1)},
		[]domain.PriceLevel{lvl(100, 1)},
	))
	if _, ok := b.MidPriceImbalance(1); ok {
		t.Error("MidPriceImbalance should be absent when VWAP spread is zero")
	}
}

func TestDepthMetricsInsufficientDepth(t *testing.T) {
	b := New(testLogger())
	b.ApplySnapshot(snapshot(1,
		[]domain.PriceLevel{lvl(100, 1), lvl(99, 1)},
		[]domain.PriceLevel{lvl(101, 1)},
	))

	// Asks side has 1 level; every depth-2 query must come back absent.
	if _, ok := b.ImbalanceDepth(2); ok {
		t.Error("ImbalanceDepth(2) should be absent")
	}
	if _, ok := b.WeightedImbalance(2); ok {
		t.Error("WeightedImbalance(2) should be absent")
	}
	if _, ok := b.VWAPImbalance(2); ok {
		t.Error("VWAPImbalance(2) should be absent")
	}
	if _, ok := b.BookImbalance(2); ok {
		t.Error("BookImbalance(2) should be absent")
	}
	if _, ok := b.MidPriceImbalance(2); ok {
		t.Error("MidPriceImbalance(2) should be absent")
	}
}
