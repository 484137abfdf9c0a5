package order

import (
	"context"
	"time"

	"bazara.org/internal/audit"
)

// Transition is the atomic unit a Store must apply: the conditional status
// update, the stock deltas and the audit record either all commit or none do.
type Transition struct {
	StoreID string
	OrderID string
	From    Status
	To      Status
	Action  Action

	Reason          string
	Tracking        string
	PaymentProofRef string

	StockDeltas []StockDelta
	Audit       *audit.Record
	At          time.Time
}

// Result is the committed outcome of a transition.
type Result struct {
	Order *Order
	// LowStock lists product ids whose stock crossed below the store's
	// alert threshold during this transition.
	LowStock []string
}

// Store persists orders. Apply must use a conditional update ("set status=To
// where status=From"); losing that race yields fault.ErrConcurrentModification
// and no partial writes.
type Store interface {
	Create(ctx context.Context, o *Order) error
	// FindInStore scopes by store id: a cross-tenant order id resolves to
	// fault.ErrNotFound.
	FindInStore(ctx context.Context, storeID, orderID string) (*Order, error)
	// Find is unscoped and reserved for the service, which converts any
	// access denial on the owning store into fault.ErrNotFound.
	Find(ctx context.Context, orderID string) (*Order, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]*Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error)
	AttachPaymentProof(ctx context.Context, storeID, orderID, ref string) (*Order, error)
	Apply(ctx context.Context, t Transition) (Result, error)
}
