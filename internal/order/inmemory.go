package order

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bazara.org/internal/audit"
	"bazara.org/internal/fault"
)

// InMemory is a mutex-guarded Store for tests and local development. It
// honors the same conditional-update contract as the SQL store.
type InMemory struct {
	mu         sync.Mutex
	orders     map[string]*Order
	stock      map[string]int64
	thresholds map[string]int64
	auditLog   []audit.Record

	// appendAudit lets tests simulate a failing audit sink; a failure must
	// abort the whole transition.
	appendAudit func(rec *audit.Record) error
}

// NewInMemory returns an empty in-memory order store.
func NewInMemory() *InMemory {
	m := &InMemory{
		orders:     make(map[string]*Order),
		stock:      make(map[string]int64),
		thresholds: make(map[string]int64),
	}
	m.appendAudit = func(rec *audit.Record) error {
		m.auditLog = append(m.auditLog, *rec)
		return nil
	}
	return m
}

// WithAuditSink replaces the audit append hook.
func (m *InMemory) WithAuditSink(fn func(rec *audit.Record) error) *InMemory {
	if fn != nil {
		m.appendAudit = fn
	}
	return m
}

// SetStock seeds product stock.
func (m *InMemory) SetStock(productID string, qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = qty
}

// Stock reads the current stock of a product.
func (m *InMemory) Stock(productID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

// SetLowStockThreshold configures the alert threshold of a store.
func (m *InMemory) SetLowStockThreshold(storeID string, threshold int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[storeID] = threshold
}

// AuditLog returns a copy of the appended records, oldest first.
func (m *InMemory) AuditLog() []audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Record, len(m.auditLog))
	copy(out, m.auditLog)
	return out
}

func (m *InMemory) Create(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", fault.ErrConflict, o.ID)
	}
	clone := *o
	m.orders[o.ID] = &clone
	return nil
}

func (m *InMemory) FindInStore(ctx context.Context, storeID, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.StoreID != storeID {
		return nil, fault.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *InMemory) Find(ctx context.Context, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fault.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *InMemory) ListByStore(ctx context.Context, storeID string, limit int) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.orders {
		if o.StoreID == storeID {
			clone := *o
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return clip(out, limit), nil
}

func (m *InMemory) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			clone := *o
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return clip(out, limit), nil
}

func (m *InMemory) AttachPaymentProof(ctx context.Context, storeID, orderID, ref string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.StoreID != storeID {
		return nil, fault.ErrNotFound
	}
	o.PaymentProofRef = ref
	clone := *o
	return &clone, nil
}

// Apply mirrors the SQL store's transaction: the status flip is conditional
// on the expected From status, and the stock deltas plus the audit record
// commit together or not at all.
func (m *InMemory) Apply(ctx context.Context, t Transition) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[t.OrderID]
	if !ok || o.StoreID != t.StoreID {
		return Result{}, fault.ErrNotFound
	}
	if o.Status != t.From {
		return Result{}, fault.ErrConcurrentModification
	}

	// Stage the whole mutation, commit only if every step succeeds.
	staged := *o
	staged.Status = t.To
	staged.UpdatedAt = t.At
	ts := t.At
	switch t.To {
	case StatusPaid:
		staged.PaidAt = &ts
		if t.PaymentProofRef != "" {
			staged.PaymentProofRef = t.PaymentProofRef
		}
	case StatusShipped:
		staged.ShippedAt = &ts
		if t.Tracking != "" {
			staged.Tracking = t.Tracking
		}
	case StatusDelivered:
		staged.DeliveredAt = &ts
	case StatusRejected:
		staged.RejectedAt = &ts
		staged.RejectionReason = t.Reason
	case StatusCancelled:
		staged.CancelledAt = &ts
		staged.CancelReason = t.Reason
	}

	stagedStock := make(map[string]int64, len(t.StockDeltas))
	for _, d := range t.StockDeltas {
		next := m.stock[d.ProductID] + d.Delta
		if next < 0 {
			return Result{}, fmt.Errorf("%w: insufficient stock for product %s", fault.ErrConflict, d.ProductID)
		}
		stagedStock[d.ProductID] = next
	}

	if t.Audit != nil {
		if err := m.appendAudit(t.Audit); err != nil {
			return Result{}, fmt.Errorf("audit append failed: %w", err)
		}
	}

	threshold := m.thresholds[t.StoreID]
	var low []string
	for _, d := range t.StockDeltas {
		before := m.stock[d.ProductID]
		after := stagedStock[d.ProductID]
		if d.Delta < 0 && before > threshold && after <= threshold {
			low = append(low, d.ProductID)
		}
		m.stock[d.ProductID] = after
	}
	sort.Strings(low)
	m.orders[t.OrderID] = &staged

	clone := staged
	return Result{Order: &clone, LowStock: low}, nil
}

func sortNewestFirst(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func clip(orders []*Order, limit int) []*Order {
	if limit > 0 && len(orders) > limit {
		return orders[:limit]
	}
	return orders
}
