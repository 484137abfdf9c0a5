package shop

import "context"

// StoreUpdate carries optional store field changes.
type StoreUpdate struct {
	Name              *string
	Status            *StoreStatus
	Currency          *string
	LowStockThreshold *int64
}

// ProductUpdate carries optional product field changes. Stock is adjusted
// only inside order transitions, never through this path.
type ProductUpdate struct {
	Name    *string
	Price   *int64
	Active  *bool
	Restock *int64 // absolute stock level set by staff
}

// Stores manages tenant records.
type Stores interface {
	Create(ctx context.Context, s *Store) error
	Find(ctx context.Context, id string) (*Store, error)
	ListOwned(ctx context.Context, ownerID string) ([]*Store, error)
	Update(ctx context.Context, id string, upd StoreUpdate) (*Store, error)
	// Delete cascades to products, orders and assignments: a store and
	// everything inside it is one unit of deletion.
	Delete(ctx context.Context, id string) error
}

// Products manages catalog items, always scoped by store id so a cross-tenant
// product id resolves to not-found.
type Products interface {
	Create(ctx context.Context, p *Product) error
	FindInStore(ctx context.Context, storeID, id string) (*Product, error)
	ListByStore(ctx context.Context, storeID string) ([]*Product, error)
	Update(ctx context.Context, storeID, id string, upd ProductUpdate) (*Product, error)
	Delete(ctx context.Context, storeID, id string) error
}

// Assignments manages staff membership rows.
type Assignments interface {
	Create(ctx context.Context, a *StoreAssignment) error
	Find(ctx context.Context, storeID, actorID string) (*StoreAssignment, error)
	ListByStore(ctx context.Context, storeID string) ([]*StoreAssignment, error)
	Accept(ctx context.Context, storeID, actorID string) error
	Revoke(ctx context.Context, storeID, actorID, revokedBy string) error
	SetCustomRole(ctx context.Context, storeID, actorID, customRoleID string) error
}
