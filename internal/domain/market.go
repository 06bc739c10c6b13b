package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook ladder. A size of
// zero on the wire always means "remove this level", never "insert an empty
// level".
type PriceLevel struct {
	Price float64
	Size  float64
}

// DepthSnapshot is a full bids/asks snapshot with its sequence watermark.
type DepthSnapshot struct {
	LastUpdateID uint64
	Bids         []PriceLevel
	Asks         []PriceLevel
}

// DepthUpdate is an incremental diff covering the sequence id range
// [FirstUpdateID, FinalUpdateID].
type DepthUpdate struct {
	EventTime     time.Time
	Symbol        string
	FirstUpdateID uint64
	FinalUpdateID uint64
	Bids          []PriceLevel
	Asks          []PriceLevel
}

// Trade is the unified trade record consumed by the core. Single trades carry
// Count == 1; aggregated trades carry the number of raw trades they cover.
type Trade struct {
	Price        float64
	Quantity     float64
	Time         time.Time
	BuyerIsMaker bool
	Count        int64
}
