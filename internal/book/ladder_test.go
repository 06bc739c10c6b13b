package book

import "testing"

func ladderPrices(l *ladder) []float64 {
	out := make([]float64, 0, l.len())
	for _, lvl := range l.levels {
		out = append(out, lvl.Price)
	}
	return out
}

func TestLadderOrdering(t *testing.T) {
	t.Run("bids descend", func(t *testing.T) {
		l := newLadder(true)
		for _, p := range []float64{99, 101, 100, 98, 102} {
			l.upsert(p, 1)
		}
		want := []float64{102, 101, 100, 99, 98}
		got := ladderPrices(&l)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("prices = %v, want %v", got, want)
			}
		}
		if best, ok := l.best(); !ok || best.Price != 102 {
			t.Errorf("best = %+v, %v; want 102", best, ok)
		}
	})

	t.Run("asks ascend", func(t *testing.T) {
		l := newLadder(false)
		for _, p := range []float64{99, 101, 100} {
			l.upsert(p, 1)
		}
		want := []float64{99, 100, 101}
		got := ladderPrices(&l)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("prices = %v, want %v", got, want)
			}
		}
		if best, ok := l.best(); !ok || best.Price != 99 {
			t.Errorf("best = %+v, %v; want 99", best, ok)
		}
	})
}

func TestLadderUpsertAndRemove(t *testing.T) {
	l := newLadder(true)
	l.upsert(100, 1)
	l.upsert(100, 5) // replace in place
	if l.len() != 1 {
		t.Fatalf("len = %d, want 1", l.len())
	}
	if best, _ := l.best(); best.Size != 5 {
		t.Errorf("Size = %v, want 5", best.Size)
	}

	l.remove(100)
	if l.len() != 0 {
		t.Errorf("len = %d, want 0", l.len())
	}
	if _, ok := l.best(); ok {
		t.Error("best on empty ladder should be absent")
	}

	// Removing an absent price is a no-op.
	l.remove(50)
	if l.len() != 0 {
		t.Errorf("len = %d, want 0", l.len())
	}
}

func TestLadderTop(t *testing.T) {
	l := newLadder(true)
	for _, p := range []float64{100, 99, 98} {
		l.upsert(p, 1)
	}
	top := l.top(2)
	if len(top) != 2 || top[0].Price != 100 || top[1].Price != 99 {
		t.Errorf("top(2) = %+v", top)
	}
	if got := l.top(10); len(got) != 3 {
		t.Errorf("top(10) returned %d levels, want 3", len(got))
	}
}
