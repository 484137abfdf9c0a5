package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/ids"
	"bazara.org/internal/obs"
	"bazara.org/internal/shop"
)

// Events receives committed transition events. Implementations must not
// block; delivery is fire-and-forget from the core's perspective.
type Events interface {
	OrderTransitioned(ctx context.Context, e Event)
}

// EventSinks fans one event out to several sinks.
type EventSinks []Events

func (s EventSinks) OrderTransitioned(ctx context.Context, e Event) {
	for _, sink := range s {
		sink.OrderTransitioned(ctx, e)
	}
}

// Service drives orders through their lifecycle. It consumes the tenant
// context, the permission engine and tenant-scoped storage; all shared state
// lives in the database.
type Service struct {
	engine   *access.Engine
	orders   Store
	products shop.Products
	events   Events
	now      func() time.Time
}

// NewService wires the state machine.
func NewService(engine *access.Engine, orders Store, products shop.Products, events Events) (*Service, error) {
	if engine == nil || orders == nil || products == nil {
		return nil, errors.New("order: engine, order store and product store are required")
	}
	if events == nil {
		events = EventSinks(nil)
	}
	return &Service{engine: engine, orders: orders, products: products, events: events, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Create places a new order in PENDING_ADMIN. Every item must reference a
// product of the same store; prices are captured at placement time.
func (s *Service) Create(ctx context.Context, tc auth.TenantContext, storeID string, items []OrderItem) (*Order, error) {
	if d, err := s.engine.Authorize(ctx, tc, access.PermOrderCreate, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		return nil, d.Err()
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", fault.ErrValidationFailed)
	}

	o := &Order{
		ID:         ids.New(),
		StoreID:    storeID,
		CustomerID: tc.ActorID,
		Status:     StatusPendingAdmin,
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", fault.ErrValidationFailed)
		}
		p, err := s.products.FindInStore(ctx, storeID, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, fmt.Errorf("%w: product %s is not available", fault.ErrValidationFailed, p.ID)
		}
		o.Currency = p.Currency
		o.Items = append(o.Items, OrderItem{
			ID:        ids.New(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
		o.TotalAmount += p.Price * item.Quantity
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get loads one order through tenant scoping: ids belonging to another store
// resolve to fault.ErrNotFound, never to a permission error.
func (s *Service) Get(ctx context.Context, tc auth.TenantContext, orderID string) (*Order, error) {
	return s.loadScoped(ctx, tc, orderID)
}

// ListByStore returns a store's orders, newest first.
func (s *Service) ListByStore(ctx context.Context, tc auth.TenantContext, storeID string, limit int) ([]*Order, error) {
	if d, err := s.engine.Authorize(ctx, tc, access.PermOrderView, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		if d.Reason == access.ReasonNoStoreAccess {
			return nil, fault.ErrNotFound
		}
		return nil, d.Err()
	}
	return s.orders.ListByStore(ctx, storeID, limit)
}

// ListOwn returns the calling customer's orders across all stores.
func (s *Service) ListOwn(ctx context.Context, tc auth.TenantContext, limit int) ([]*Order, error) {
	if !tc.Valid() {
		return nil, fault.ErrUnauthenticated
	}
	return s.orders.ListByCustomer(ctx, tc.ActorID, limit)
}

// AttachPaymentProof stores the proof reference on a pending order. Only the
// reference is kept; file bytes live in external storage.
func (s *Service) AttachPaymentProof(ctx context.Context, tc auth.TenantContext, orderID, ref string) (*Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: payment proof reference is required", fault.ErrValidationFailed)
	}
	o, err := s.loadScoped(ctx, tc, orderID)
	if err != nil {
		return nil, err
	}
	if tc.Role == auth.RoleCustomer && o.CustomerID != tc.ActorID {
		return nil, fault.ErrNotFound
	}
	if o.Status != StatusPendingAdmin {
		return nil, fmt.Errorf("%w: proof can only be attached while pending", fault.ErrIllegalTransition)
	}
	return s.orders.AttachPaymentProof(ctx, o.StoreID, orderID, ref)
}

// Transition applies one state-machine action. The status change, its stock
// side effect and the audit record commit atomically; the event emission
// happens only after commit.
func (s *Service) Transition(ctx context.Context, tc auth.TenantContext, orderID string, action Action, payload Payload) (*Order, error) {
	o, err := s.transition(ctx, tc, orderID, action, payload)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, fault.ErrIllegalTransition) {
			outcome = "illegal"
		}
	}
	obs.CountOrderTransition(string(action), outcome)
	return o, err
}

func (s *Service) transition(ctx context.Context, tc auth.TenantContext, orderID string, action Action, payload Payload) (*Order, error) {
	o, err := s.loadScoped(ctx, tc, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAction(ctx, tc, o, action); err != nil {
		return nil, err
	}

	switch action {
	case ActionConfirmPayment:
		return s.confirmPayment(ctx, tc, o, payload)
	case ActionReject:
		return s.reject(ctx, tc, o, payload)
	case ActionShip:
		return s.move(ctx, tc, o, StatusShipped, action, payload)
	case ActionDeliver:
		return s.move(ctx, tc, o, StatusDelivered, action, payload)
	case ActionCancel:
		return s.cancel(ctx, tc, o, payload)
	default:
		return nil, fmt.Errorf("%w: unknown order action %q", fault.ErrValidationFailed, action)
	}
}

// confirmPayment moves PENDING_ADMIN → PAID and decrements stock. It is
// idempotent: a second call on an already-PAID order returns the current
// order unchanged, because double submission from a UI is expected and must
// not double-fire side effects.
func (s *Service) confirmPayment(ctx context.Context, tc auth.TenantContext, o *Order, payload Payload) (*Order, error) {
	if o.Status == StatusPaid {
		return o, nil
	}
	if !CanTransition(o.Status, StatusPaid) {
		return nil, s.illegal(o, StatusPaid)
	}

	deltas := make([]StockDelta, 0, len(o.Items))
	for _, item := range o.Items {
		deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: -item.Quantity})
	}
	rec := s.auditRecord(tc, o, StatusPaid, ActionConfirmPayment, "")
	if o.PaymentProofRef == "" && payload.PaymentProofRef == "" {
		// Confirming without proof is allowed but leaves a visible mark.
		rec.Metadata = map[string]string{"payment_proof": "missing"}
	}
	res, err := s.orders.Apply(ctx, Transition{
		StoreID:         o.StoreID,
		OrderID:         o.ID,
		From:            o.Status,
		To:              StatusPaid,
		Action:          ActionConfirmPayment,
		PaymentProofRef: payload.PaymentProofRef,
		StockDeltas:     deltas,
		Audit:           rec,
		At:              s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, fault.ErrConcurrentModification) {
			// The race loser re-reads: if the winner already confirmed, this
			// call still succeeds idempotently. No second write happens.
			current, readErr := s.orders.FindInStore(ctx, o.StoreID, o.ID)
			if readErr == nil && current.Status == StatusPaid {
				return current, nil
			}
		}
		return nil, err
	}
	s.emit(ctx, tc, o, res, ActionConfirmPayment, StatusPaid, "")
	return res.Order, nil
}

func (s *Service) reject(ctx context.Context, tc auth.TenantContext, o *Order, payload Payload) (*Order, error) {
	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", fault.ErrValidationFailed)
	}
	if !CanTransition(o.Status, StatusRejected) {
		return nil, s.illegal(o, StatusRejected)
	}
	res, err := s.orders.Apply(ctx, Transition{
		StoreID: o.StoreID,
		OrderID: o.ID,
		From:    o.Status,
		To:      StatusRejected,
		Action:  ActionReject,
		Reason:  reason,
		Audit:   s.auditRecord(tc, o, StatusRejected, ActionReject, reason),
		At:      s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, tc, o, res, ActionReject, StatusRejected, reason)
	return res.Order, nil
}

func (s *Service) move(ctx context.Context, tc auth.TenantContext, o *Order, to Status, action Action, payload Payload) (*Order, error) {
	if !CanTransition(o.Status, to) {
		return nil, s.illegal(o, to)
	}
	res, err := s.orders.Apply(ctx, Transition{
		StoreID:  o.StoreID,
		OrderID:  o.ID,
		From:     o.Status,
		To:       to,
		Action:   action,
		Tracking: strings.TrimSpace(payload.Tracking),
		Audit:    s.auditRecord(tc, o, to, action, ""),
		At:       s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, tc, o, res, action, to, "")
	return res.Order, nil
}

// cancel is legal from any non-terminal state. Cancelling a PAID (or later)
// order reverses the stock decrement that payment confirmation applied, in
// the same atomic unit as the status change.
func (s *Service) cancel(ctx context.Context, tc auth.TenantContext, o *Order, payload Payload) (*Order, error) {
	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation requires a reason", fault.ErrValidationFailed)
	}
	if o.Status.Terminal() || !CanTransition(o.Status, StatusCancelled) {
		return nil, s.illegal(o, StatusCancelled)
	}

	var deltas []StockDelta
	if o.Status != StatusPendingAdmin {
		// Payment confirmation already decremented stock; compensate.
		for _, item := range o.Items {
			deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: item.Quantity})
		}
	}
	res, err := s.orders.Apply(ctx, Transition{
		StoreID:     o.StoreID,
		OrderID:     o.ID,
		From:        o.Status,
		To:          StatusCancelled,
		Action:      ActionCancel,
		Reason:      reason,
		StockDeltas: deltas,
		Audit:       s.auditRecord(tc, o, StatusCancelled, ActionCancel, reason),
		At:          s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, tc, o, res, ActionCancel, StatusCancelled, reason)
	return res.Order, nil
}

func (s *Service) authorizeAction(ctx context.Context, tc auth.TenantContext, o *Order, action Action) error {
	perm := access.PermOrderUpdate
	if action == ActionCancel && tc.Role == auth.RoleCustomer {
		if o.CustomerID != tc.ActorID {
			return fault.ErrNotFound
		}
		// The self-service grant covers unconfirmed orders only; once the
		// store took payment, cancellation is a staff decision.
		if o.Status != StatusPendingAdmin {
			return fmt.Errorf("%w: only pending orders can be cancelled by the customer", fault.ErrPermissionNotGranted)
		}
		perm = access.PermOrderCancelOwn
	}
	d, err := s.engine.Authorize(ctx, tc, perm, o.StoreID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return d.Err()
	}
	return nil
}

// loadScoped resolves the order through tenant scoping. Store-scoped
// contexts hit a store-filtered query; unscoped contexts (cross-store OWNER,
// customers) load by id and any access denial collapses into NotFound so the
// existence of other tenants' orders never leaks.
func (s *Service) loadScoped(ctx context.Context, tc auth.TenantContext, orderID string) (*Order, error) {
	if !tc.Valid() {
		return nil, fault.ErrUnauthenticated
	}
	if tc.StoreID != "" {
		return s.orders.FindInStore(ctx, tc.StoreID, orderID)
	}
	o, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tc.Role == auth.RoleCustomer {
		if o.CustomerID != tc.ActorID {
			return nil, fault.ErrNotFound
		}
		return o, nil
	}
	perm := access.PermOrderView
	d, err := s.engine.Authorize(ctx, tc, perm, o.StoreID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, fault.ErrNotFound
	}
	return o, nil
}

func (s *Service) illegal(o *Order, to Status) error {
	return fmt.Errorf("%w: %s -> %s", fault.ErrIllegalTransition, o.Status, to)
}

func (s *Service) auditRecord(tc auth.TenantContext, o *Order, to Status, action Action, reason string) *audit.Record {
	return &audit.Record{
		ID:           ids.New(),
		OccurredAt:   s.now().UTC(),
		ActorID:      tc.ActorID,
		StoreID:      o.StoreID,
		Action:       string(action),
		ResourceType: "order",
		ResourceID:   o.ID,
		FromState:    string(o.Status),
		ToState:      string(to),
		Reason:       reason,
	}
}

func (s *Service) emit(ctx context.Context, tc auth.TenantContext, o *Order, res Result, action Action, to Status, reason string) {
	s.events.OrderTransitioned(ctx, Event{
		StoreID:  o.StoreID,
		OrderID:  o.ID,
		ActorID:  tc.ActorID,
		Action:   action,
		From:     o.Status,
		To:       to,
		Reason:   reason,
		LowStock: res.LowStock,
		At:       s.now().UTC(),
	})
}
