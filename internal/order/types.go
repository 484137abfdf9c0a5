package order

import (
	"fmt"
	"strings"
	"time"

	"bazara.org/internal/fault"
)

// Status is the closed order lifecycle enum. DELIVERED, REJECTED and
// CANCELLED are terminal.
type Status string

const (
	StatusPendingAdmin Status = "pending_admin"
	StatusPaid         Status = "paid"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusRejected     Status = "rejected"
	StatusCancelled    Status = "cancelled"
)

// ParseStatus validates a status value from storage.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPendingAdmin:
		return StatusPendingAdmin, nil
	case StatusPaid:
		return StatusPaid, nil
	case StatusShipped:
		return StatusShipped, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", fault.ErrValidationFailed, raw)
}

var legalTransitions = map[Status]map[Status]struct{}{
	StatusPendingAdmin: {
		StatusPaid:      {},
		StatusRejected:  {},
		StatusCancelled: {},
	},
	StatusPaid: {
		StatusShipped:   {},
		StatusCancelled: {},
	},
	StatusShipped: {
		StatusDelivered: {},
		StatusCancelled: {},
	},
}

// Terminal reports whether no transition leads out of the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	targets, ok := legalTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Action is a requested state-machine move.
type Action string

const (
	ActionConfirmPayment Action = "confirm_payment"
	ActionReject         Action = "reject"
	ActionShip           Action = "ship"
	ActionDeliver        Action = "deliver"
	ActionCancel         Action = "cancel"
)

// ParseAction validates an action identifier from transport.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.TrimSpace(strings.ToLower(raw))) {
	case ActionConfirmPayment:
		return ActionConfirmPayment, nil
	case ActionReject:
		return ActionReject, nil
	case ActionShip:
		return ActionShip, nil
	case ActionDeliver:
		return ActionDeliver, nil
	case ActionCancel:
		return ActionCancel, nil
	}
	return "", fmt.Errorf("%w: unknown order action %q", fault.ErrValidationFailed, raw)
}

// Payload carries the optional transition inputs.
type Payload struct {
	Reason          string `json:"reason,omitempty"`
	Tracking        string `json:"tracking,omitempty"`
	PaymentProofRef string `json:"payment_proof_ref,omitempty"`
}

// OrderItem references a product in the same store as its order.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Order is owned by exactly one store. Each transition stamps its own
// timestamp field.
type Order struct {
	ID              string      `json:"id"`
	StoreID         string      `json:"store_id"`
	CustomerID      string      `json:"customer_id"`
	Status          Status      `json:"status"`
	TotalAmount     int64       `json:"total_amount"`
	Currency        string      `json:"currency"`
	Items           []OrderItem `json:"items,omitempty"`
	PaymentProofRef string      `json:"payment_proof_ref,omitempty"`
	Tracking        string      `json:"tracking,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
}

// StockDelta is one product-level stock adjustment applied atomically with a
// status change.
type StockDelta struct {
	ProductID string
	Delta     int64
}

// Event is emitted after a committed transition. Delivery is fire-and-forget.
type Event struct {
	StoreID  string    `json:"store_id"`
	OrderID  string    `json:"order_id"`
	ActorID  string    `json:"actor_id"`
	Action   Action    `json:"action"`
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	Reason   string    `json:"reason,omitempty"`
	LowStock []string  `json:"low_stock,omitempty"`
	At       time.Time `json:"at"`
}
