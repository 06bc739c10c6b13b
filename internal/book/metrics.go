package book

// Depth-windowed metrics over the top n levels per side. Every query returns
// (0, false) when either side holds fewer than n levels or a denominator
// degenerates; "no data yet" is a normal condition, never an error.

// ImbalanceDepth returns (bidVol−askVol)/(bidVol+askVol) summed over the top
// n levels per side.
func (b *OrderBook) ImbalanceDepth(n int) (float64, bool) {
	if !b.depthAvailable(n) {
		return 0, false
	}
	var bidVol, askVol float64
	for _, lvl := range b.bids.top(n) {
		bidVol += lvl.Size
	}
	for _, lvl := range b.asks.top(n) {
		askVol += lvl.Size
	}
	total := bidVol + askVol
	if total == 0 {
		return 0, false
	}
	return (bidVol - askVol) / total, true
}

// WeightedImbalance is ImbalanceDepth with harmonic decay weights 1/(rank+1)
// per level, emphasizing top-of-book volume.
func (b *OrderBook) WeightedImbalance(n int) (float64, bool) {
	if !b.depthAvailable(n) {
		return 0, false
	}
	var bidVol, askVol float64
	for i, lvl := range b.bids.top(n) {
		bidVol += lvl.Size / float64(i+1)
	}
	for i, lvl := range b.asks.top(n) {
		askVol += lvl.Size / float64(i+1)
	}
	total := bidVol + askVol
	if total == 0 {
		return 0, false
	}
	return (bidVol - askVol) / total, true
}

// VWAPImbalance is the top-of-book imbalance formula applied to the
// volume-weighted average prices of the top n levels per side.
func (b *OrderBook) VWAPImbalance(n int) (float64, bool) {
	vb, va, ok := b.vwaps(n)
	if !ok {
		return 0, false
	}
	total := vb + va
	if total == 0 {
		return 0, false
	}
	return (vb - va) / total, true
}

// BookImbalance compares how far each side's effective execution price (the
// top-n VWAP) sits from its own best level. Positive values mean bid-side
// liquidity is concentrated closer to the top than ask-side liquidity.
func (b *OrderBook) BookImbalance(n int) (float64, bool) {
	vb, va, ok := b.vwaps(n)
	if !ok {
		return 0, false
	}
	bestBid, _ := b.bids.best()
	bestAsk, _ := b.asks.best()
	bidDist := bestBid.Price - vb
	askDist := va - bestAsk.Price
	total := bidDist + askDist
	if total == 0 {
		return 0, false
	}
	return (bidDist - askDist) / total, true
}

// MidPriceImbalance nets the distance of each side's top-n VWAP from the mid
// price, normalized by the VWAP spread.
func (b *OrderBook) MidPriceImbalance(n int) (float64, bool) {
	vb, va, ok := b.vwaps(n)
	if !ok {
		return 0, false
	}
	mid, midOK := b.MidPrice()
	if !midOK || va == vb {
		return 0, false
	}
	return ((mid - vb) - (va - mid)) / (va - vb), true
}

// vwaps computes the volume-weighted average price of the top n levels on
// each side.
func (b *OrderBook) vwaps(n int) (bidVWAP, askVWAP float64, ok bool) {
	if !b.depthAvailable(n) {
		return 0, 0, false
	}
	var bidNotional, bidVol, askNotional, askVol float64
	for _, lvl := range b.bids.top(n) {
		bidNotional += lvl.Price * lvl.Size
		bidVol += lvl.Size
	}
	for _, lvl := range b.asks.top(n) {
		askNotional += lvl.Price * lvl.Size
		askVol += lvl.Size
	}
	if bidVol == 0 || askVol == 0 {
		return 0, 0, false
	}
	return bidNotional / bidVol, askNotional / askVol, true
}

func (b *OrderBook) depthAvailable(n int) bool {
	return n > 0 && b.bids.len() >= n && b.asks.len() >= n
}
