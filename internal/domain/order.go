package domain

import "time"

// OrderStatus tracks the order lifecycle. Filled and Cancelled are terminal.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status is a terminal lifecycle state.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order is a synthetic resting buy order managed by the market maker. The
// reference fields snapshot the market at placement time; they are required
// for later profit attribution and k-factor adaptation.
type Order struct {
	ID          string
	Price       float64
	Size        float64
	Status      OrderStatus
	CreatedAt   time.Time
	FilledAt    *time.Time
	CancelledAt *time.Time

	ReferenceMid         float64
	ReferenceBestBid     float64
	KFactorUsed          float64
	ImbalanceAtPlacement float64
}
