// Package maker implements an adaptive stink-bid market making strategy: it
// rests synthetic buy orders below mid price, sized off short-horizon
// volatility and order-book imbalance, and tunes its aggressiveness from
// fill/cancel feedback.
package maker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dtrask/stinkbot/internal/book"
	"github.com/dtrask/stinkbot/internal/domain"
	"github.com/dtrask/stinkbot/internal/trades"
)

const (
	// k-factor adaptation bounds.
	minKFactor = 0.1
	maxKFactor = 3.0

	// volatilityFloor rejects bid placement in a dead market.
	volatilityFloor = 1e-8

	// Accepted discount band for a candidate bid, in percent of mid.
	minDiscountPct = 0.01
	maxDiscountPct = 5.0

	// mildBuyImbalance separates near-balanced books from strong buy pressure.
	mildBuyImbalance = 0.3
)

// Config holds the market maker policy parameters.
type Config struct {
	// BaseK is the starting multiplier of volatility for bid distance.
	BaseK float64
	// OrderSize is the size of each stink bid.
	OrderSize float64
	// MaxActiveOrders caps concurrent resting orders.
	MaxActiveOrders int
	// StrongImbalanceThreshold marks strong sell pressure (e.g. -0.7).
	StrongImbalanceThreshold float64
	// ModerateImbalanceThreshold marks moderate sell pressure (e.g. -0.3).
	ModerateImbalanceThreshold float64
	// VolDampening scales the raw volatility estimate before use.
	VolDampening float64
	// LearningRate is the per-fill/per-cancel k-factor adjustment.
	LearningRate float64
	// MinDistancePct is the minimum fractional distance between a stink bid
	// and the best bid.
	MinDistancePct float64
	// EWMALambda is the decay factor for the exponentially-weighted
	// volatility estimate reported alongside the sample estimate.
	EWMALambda float64
}

// DefaultConfig returns the stock policy parameters.
func DefaultConfig() Config {
	return Config{
		BaseK:                      0.5,
		OrderSize:                  0.01,
		MaxActiveOrders:            3,
		StrongImbalanceThreshold:   -0.7,
		ModerateImbalanceThreshold: -0.3,
		VolDampening:               0.8,
		LearningRate:               0.05,
		MinDistancePct:             0.05,
		EWMALambda:                 0.94,
	}
}

// Journal receives orders as they reach a terminal state. Implementations
// must not block; the maker calls it synchronously from the decision loop.
type Journal func(domain.Order)

// Option configures optional MarketMaker behavior.
type Option func(*MarketMaker)

// WithJournal registers a callback invoked for every filled or cancelled
// order.
func WithJournal(j Journal) Option {
	return func(m *MarketMaker) { m.journal = j }
}

// MarketMaker owns the order book replica, the trade window and the synthetic
// order set. It has a single logical owner: all handlers must be called from
// one decision loop, never concurrently.
type MarketMaker struct {
	cfg    Config
	book   *book.OrderBook
	window *trades.Window
	logger *slog.Logger

	active    []domain.Order
	filled    []domain.Order
	cancelled []domain.Order

	// Adaptive parameters.
	currentK     float64
	fillCount    int
	attemptCount int

	// Latest observed market state.
	lastImbalance  float64
	lastVolatility float64

	journal Journal
}

// New creates a MarketMaker around an order book and trade window.
func New(cfg Config, ob *book.OrderBook, window *trades.Window, logger *slog.Logger, opts ...Option) *MarketMaker {
	m := &MarketMaker{
		cfg:      cfg,
		book:     ob,
		window:   window,
		logger:   logger.With(slog.String("component", "market_maker")),
		currentK: cfg.BaseK,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Book exposes the underlying order book for read-only use by the owner.
func (m *MarketMaker) Book() *book.OrderBook { return m.book }

// Window exposes the underlying trade window for read-only use by the owner.
func (m *MarketMaker) Window() *trades.Window { return m.window }

// Bootstrap runs the initial reconciliation step of the sync protocol: apply
// the snapshot, then strictly replay the diffs buffered while it was being
// fetched. A domain.ErrBootstrapGap means the caller must restart the
// protocol from a fresh snapshot.
func (m *MarketMaker) Bootstrap(snap domain.DepthSnapshot, buffered []domain.DepthUpdate) error {
	m.book.ApplySnapshot(snap)
	if err := m.book.ProcessBuffer(buffered); err != nil {
		return err
	}
	if imb, ok := m.book.Imbalance(); ok {
		m.lastImbalance = imb
	}
	return nil
}

// HandleDepthUpdate applies a live diff to the book and re-evaluates the
// order set. A domain.ErrSequenceGap is returned untouched so the caller can
// resynchronize; the book is unchanged in that case.
func (m *MarketMaker) HandleDepthUpdate(u domain.DepthUpdate) error {
	if err := m.book.ProcessUpdate(u); err != nil {
		return err
	}
	if imb, ok := m.book.Imbalance(); ok {
		m.lastImbalance = imb
	}
	m.manageExistingOrders()
	m.placeStinkBids()
	return nil
}

// HandleTrade records the trade, refreshes the dampened volatility estimate
// and checks resting orders for fills.
func (m *MarketMaker) HandleTrade(t domain.Trade) {
	m.window.Push(t)
	if vol, ok := m.window.Volatility(); ok {
		m.lastVolatility = vol * m.cfg.VolDampening
	}
	m.checkOrderFills(t)
}

// checkOrderFills emulates the execution feedback loop: an aggressive sell
// (buyer is the resting market maker) at or below an active order's price
// fills that order in full. No partial fills or size matching are modeled.
func (m *MarketMaker) checkOrderFills(t domain.Trade) {
	if !t.BuyerIsMaker {
		return
	}

	remaining := m.active[:0]
	for _, o := range m.active {
		if o.Status != domain.OrderStatusPlaced || t.Price > o.Price {
			remaining = append(remaining, o)
			continue
		}

		profitPct := 0.0
		if t.Price != 0 {
			profitPct = (o.ReferenceMid - t.Price) / t.Price * 100
		}
		m.logger.Info("stink bid filled",
			slog.String("order_id", o.ID),
			slog.Float64("trade_price", t.Price),
			slog.Float64("order_price", o.Price),
			slog.Float64("size", o.Size),
			slog.Float64("profit_pct", profitPct),
			slog.Float64("k_factor", o.KFactorUsed),
		)

		now := time.Now().UTC()
		o.Status = domain.OrderStatusFilled
		o.FilledAt = &now
		m.filled = append(m.filled, o)
		m.fillCount++
		m.adjustKFactor(true)
		if m.journal != nil {
			m.journal(o)
		}
	}
	m.active = remaining
}

// manageExistingOrders cancels resting orders the market has moved away from
// (no longer plausible fills) or drifted onto (high fill risk from noise).
func (m *MarketMaker) manageExistingOrders() {
	bestBid, ok := m.book.BestBid()
	if !ok || bestBid.Price == 0 {
		return
	}

	remaining := m.active[:0]
	for _, o := range m.active {
		pctDistance := (bestBid.Price - o.Price) / bestBid.Price
		tooFar := pctDistance > 0.01*o.KFactorUsed*5
		tooClose := pctDistance < m.cfg.MinDistancePct*0.5
		if !tooFar && !tooClose {
			remaining = append(remaining, o)
			continue
		}

		m.logger.Info("cancelling stink bid",
			slog.String("order_id", o.ID),
			slog.Float64("price", o.Price),
			slog.Float64("best_bid", bestBid.Price),
			slog.Float64("distance_pct", pctDistance*100),
			slog.Bool("too_far", tooFar),
		)

		now := time.Now().UTC()
		o.Status = domain.OrderStatusCancelled
		o.CancelledAt = &now
		m.cancelled = append(m.cancelled, o)
		m.adjustKFactor(false)
		if m.journal != nil {
			m.journal(o)
		}
	}
	m.active = remaining
}

// placeStinkBids creates at most one new resting order per book update, when
// market data is complete and the candidate price clears every guard. Guard
// failures are normal operating conditions and are only logged at debug.
func (m *MarketMaker) placeStinkBids() {
	if len(m.active) >= m.cfg.MaxActiveOrders {
		return
	}

	mid, midOK := m.book.MidPrice()
	bestBid, bidOK := m.book.BestBid()
	_, askOK := m.book.BestAsk()
	if !midOK || !bidOK || !askOK {
		m.logger.Debug("missing market data for stink bid")
		return
	}
	volatility := m.lastVolatility
	if volatility < volatilityFloor {
		m.logger.Debug("volatility too low for meaningful stink bids",
			slog.Float64("volatility", volatility))
		return
	}

	// Regime-adjust k from the current imbalance: lean in on sell pressure,
	// back off when buyers dominate.
	var kEff float64
	switch {
	case m.lastImbalance < m.cfg.StrongImbalanceThreshold:
		kEff = m.currentK * 0.5
	case m.lastImbalance < m.cfg.ModerateImbalanceThreshold:
		kEff = m.currentK
	case m.lastImbalance < mildBuyImbalance:
		kEff = m.currentK * 1.5
	default:
		kEff = m.currentK * 2.5
	}

	// Volatility is in return space; scale by mid to get a price distance.
	priceVolatility := volatility * mid
	rawPrice := mid - kEff*priceVolatility

	// Enforce the floor distance below best bid.
	minPriceDistance := bestBid.Price * m.cfg.MinDistancePct
	price := rawPrice
	if bestBid.Price-rawPrice < minPriceDistance {
		price = bestBid.Price - minPriceDistance
	}

	discountPct := (mid - price) / mid * 100
	if discountPct < minDiscountPct || discountPct > maxDiscountPct {
		m.logger.Debug("discount outside reasonable range",
			slog.Float64("discount_pct", discountPct))
		return
	}

	order := domain.Order{
		ID:                   uuid.NewString(),
		Price:                price,
		Size:                 m.cfg.OrderSize,
		Status:               domain.OrderStatusPlaced,
		CreatedAt:            time.Now().UTC(),
		ReferenceMid:         mid,
		ReferenceBestBid:     bestBid.Price,
		KFactorUsed:          kEff,
		ImbalanceAtPlacement: m.lastImbalance,
	}
	m.active = append(m.active, order)
	m.attemptCount++

	m.logger.Info("placing stink bid",
		slog.String("order_id", order.ID),
		slog.Float64("price", price),
		slog.Float64("mid", mid),
		slog.Float64("discount_pct", discountPct),
		slog.Float64("imbalance", m.lastImbalance),
		slog.Float64("k_eff", kEff),
	)
}

// adjustKFactor pushes k towards more aggressive placement after a fill and
// more conservative placement after a cancellation, within fixed bounds.
func (m *MarketMaker) adjustKFactor(successful bool) {
	if successful {
		m.currentK = m.currentK * (1 - m.cfg.LearningRate)
		if m.currentK < minKFactor {
			m.currentK = minKFactor
		}
	} else {
		m.currentK = m.currentK * (1 + m.cfg.LearningRate)
		if m.currentK > maxKFactor {
			m.currentK = maxKFactor
		}
	}
	m.logger.Debug("adjusted k-factor",
		slog.Float64("k", m.currentK),
		slog.Bool("after_fill", successful),
	)
}

// Stats is a point-in-time summary of strategy performance and market state.
// Price fields are zero while the book is not two-sided.
type Stats struct {
	FillCount       int
	AttemptCount    int
	CurrentK        float64
	ActiveOrders    int
	FilledOrders    int
	CancelledOrders int
	LastImbalance   float64
	LastVolatility  float64
	EWMAVolatility  float64
	BestBid         float64
	BestAsk         float64
	MidPrice        float64
}

// Stats returns the current counters. Pure read; no side effects.
func (m *MarketMaker) Stats() Stats {
	s := Stats{
		FillCount:       m.fillCount,
		AttemptCount:    m.attemptCount,
		CurrentK:        m.currentK,
		ActiveOrders:    len(m.active),
		FilledOrders:    len(m.filled),
		CancelledOrders: len(m.cancelled),
		LastImbalance:   m.lastImbalance,
		LastVolatility:  m.lastVolatility,
	}
	if ewma, ok := m.window.EWMAVolatility(m.cfg.EWMALambda); ok {
		s.EWMAVolatility = ewma
	}
	if bb, ok := m.book.BestBid(); ok {
		s.BestBid = bb.Price
	}
	if ba, ok := m.book.BestAsk(); ok {
		s.BestAsk = ba.Price
	}
	if mid, ok := m.book.MidPrice(); ok {
		s.MidPrice = mid
	}
	return s
}

// Statistics formats a multi-line human-readable report for logging.
func (m *MarketMaker) Statistics() string {
	winRate := 0.0
	if m.attemptCount > 0 {
		winRate = float64(m.fillCount) / float64(m.attemptCount) * 100
	}
	return fmt.Sprintf(
		"Stink Bid Statistics:\n"+
			" - Success Rate: %d/%d (%.2f%%)\n"+
			" - Current K-Factor: %.4f\n"+
			" - Active Orders: %d\n"+
			" - Last Imbalance: %.4f\n"+
			" - Last Volatility: %.8f\n"+
			" - Total Filled Orders: %d\n"+
			" - Total Cancelled Orders: %d",
		m.fillCount, m.attemptCount, winRate,
		m.currentK,
		len(m.active),
		m.lastImbalance,
		m.lastVolatility,
		len(m.filled),
		len(m.cancelled),
	)
}

// ActiveOrders returns a copy of the resting order set.
func (m *MarketMaker) ActiveOrders() []domain.Order {
	out := make([]domain.Order, len(m.active))
	copy(out, m.active)
	return out
}

// FilledOrders returns a copy of the terminal filled history.
func (m *MarketMaker) FilledOrders() []domain.Order {
	out := make([]domain.Order, len(m.filled))
	copy(out, m.filled)
	return out
}

// CancelledOrders returns a copy of the terminal cancelled history.
func (m *MarketMaker) CancelledOrders() []domain.Order {
	out := make([]domain.Order, len(m.cancelled))
	copy(out, m.cancelled)
	return out
}

// CurrentK returns the adaptive k-factor.
func (m *MarketMaker) CurrentK() float64 { return m.currentK }
