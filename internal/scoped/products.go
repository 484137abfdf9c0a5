package scoped

import (
	"context"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/shop"
)

// productBackend adapts the product store contract to the collection shape.
type productBackend struct {
	products shop.Products
}

func (b productBackend) FindMany(ctx context.Context, storeID string, opts ListOptions) ([]*shop.Product, error) {
	list, err := b.products.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(list) > opts.Limit {
		list = list[:opts.Limit]
	}
	return list, nil
}

func (b productBackend) FindUnique(ctx context.Context, storeID, id string) (*shop.Product, error) {
	return b.products.FindInStore(ctx, storeID, id)
}

func (b productBackend) Create(ctx context.Context, p *shop.Product) error {
	return b.products.Create(ctx, p)
}

func (b productBackend) Update(ctx context.Context, storeID, id string, upd shop.ProductUpdate) (*shop.Product, error) {
	return b.products.Update(ctx, storeID, id, upd)
}

func (b productBackend) Delete(ctx context.Context, storeID, id string) error {
	return b.products.Delete(ctx, storeID, id)
}

// NewProductCollection builds the tenant-scoped product repository.
func NewProductCollection(engine *access.Engine, products shop.Products, auditLog audit.Store) (*Collection[*shop.Product, shop.ProductUpdate], error) {
	return NewCollection(
		"product",
		Permissions{
			List:   access.PermProductView,
			Read:   access.PermProductView,
			Create: access.PermProductCreate,
			Update: access.PermProductUpdate,
			Delete: access.PermProductDelete,
		},
		engine,
		productBackend{products: products},
		auditLog,
		func(p *shop.Product) string { return p.ID },
		func(p *shop.Product) string { return p.StoreID },
	)
}
