// Package trades keeps a fixed-capacity rolling window of recent trades and
// derives short-horizon volatility estimates from their period returns.
package trades

import (
	"math"

	"github.com/dtrask/stinkbot/internal/domain"
)

// recentFraction sizes the sub-window used by Volatility: recent activity is
// intentionally weighted more than the full window.
const recentFraction = 0.3

type entry struct {
	trade domain.Trade
	ret   float64
}

// Window is a fixed-capacity ring buffer of (trade, period return) pairs with
// the newest entry at the front. Once full, the oldest entry is evicted
// before each insert; updates are O(1). Like the order book it has a single
// logical owner and is not safe for concurrent use.
type Window struct {
	entries []entry
	head    int
	count   int
}

// NewWindow creates a window holding at most capacity trades.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{entries: make([]entry, capacity)}
}

// Push inserts a trade at the front. Its period return is computed against
// the previous front trade, or 0 when the window was empty.
func (w *Window) Push(t domain.Trade) {
	var ret float64
	if w.count > 0 {
		if prev := w.at(0).trade.Price; prev != 0 {
			ret = (t.Price - prev) / prev
		}
	}
	if w.count > 0 {
		w.head = (w.head - 1 + len(w.entries)) % len(w.entries)
	}
	w.entries[w.head] = entry{trade: t, ret: ret}
	if w.count < len(w.entries) {
		w.count++
	}
}

// at returns the i-th newest entry. The caller must ensure i < count.
func (w *Window) at(i int) entry {
	return w.entries[(w.head+i)%len(w.entries)]
}

// Len returns the number of trades currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the configured window size.
func (w *Window) Cap() int { return len(w.entries) }

// Newest returns the most recent trade.
func (w *Window) Newest() (domain.Trade, bool) {
	if w.count == 0 {
		return domain.Trade{}, false
	}
	return w.at(0).trade, true
}

// Volatility returns the sample standard deviation of period returns over
// the ceil(0.3×capacity) newest entries, bounded by the count present and
// floored at two returns. Empty with fewer than two trades.
func (w *Window) Volatility() (float64, bool) {
	if w.count < 2 {
		return 0, false
	}
	m := int(math.Ceil(recentFraction * float64(len(w.entries))))
	if m < 2 {
		m = 2
	}
	if m > w.count {
		m = w.count
	}

	var sum float64
	for i := 0; i < m; i++ {
		sum += w.at(i).ret
	}
	mean := sum / float64(m)

	var variance float64
	for i := 0; i < m; i++ {
		d := w.at(i).ret - mean
		variance += d * d
	}
	variance /= float64(m - 1)
	return math.Sqrt(variance), true
}

// EWMAVolatility returns an exponentially-weighted volatility estimate:
// var = lambda·var_prev + (1−lambda)·return², seeded by the oldest return
// and folded towards the newest. Empty with fewer than two trades.
func (w *Window) EWMAVolatility(lambda float64) (float64, bool) {
	if w.count < 2 {
		return 0, false
	}
	oldest := w.at(w.count - 1).ret
	variance := oldest * oldest
	for i := w.count - 2; i >= 0; i-- {
		r := w.at(i).ret
		variance = lambda*variance + (1-lambda)*r*r
	}
	return math.Sqrt(variance), true
}

// PriceMovement returns the relative price change between the newest trade
// and the trade n positions back. Empty if fewer than n+1 trades exist.
func (w *Window) PriceMovement(n int) (float64, bool) {
	if n < 1 || w.count <= n {
		return 0, false
	}
	base := w.at(n).trade.Price
	if base == 0 {
		return 0, false
	}
	return (w.at(0).trade.Price - base) / base, true
}
