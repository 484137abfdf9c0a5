package scoped

import (
	"context"
	"errors"
	"testing"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/shop"
)

type engineStoreStub struct {
	owners      map[string]string
	assignments map[string]*shop.StoreAssignment // key: storeID+"/"+actorID
}

func (s *engineStoreStub) StoreOwner(_ context.Context, storeID string) (string, error) {
	owner, ok := s.owners[storeID]
	if !ok {
		return "", fault.ErrNotFound
	}
	return owner, nil
}

func (s *engineStoreStub) StoreStatus(_ context.Context, storeID string) (shop.StoreStatus, error) {
	if _, ok := s.owners[storeID]; !ok {
		return "", fault.ErrNotFound
	}
	return shop.StoreActive, nil
}

func (s *engineStoreStub) Assignment(_ context.Context, storeID, actorID string) (*shop.StoreAssignment, error) {
	a, ok := s.assignments[storeID+"/"+actorID]
	if !ok {
		return nil, fault.ErrNotFound
	}
	return a, nil
}

func (s *engineStoreStub) CustomRole(context.Context, string, string) (*access.CustomRole, error) {
	return nil, fault.ErrNotFound
}

type productsStub struct {
	products map[string]*shop.Product
}

func (s *productsStub) Create(_ context.Context, p *shop.Product) error {
	s.products[p.ID] = p
	return nil
}

func (s *productsStub) FindInStore(_ context.Context, storeID, id string) (*shop.Product, error) {
	p, ok := s.products[id]
	if !ok || p.StoreID != storeID {
		return nil, fault.ErrNotFound
	}
	return p, nil
}

func (s *productsStub) ListByStore(_ context.Context, storeID string) ([]*shop.Product, error) {
	var out []*shop.Product
	for _, p := range s.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *productsStub) Update(_ context.Context, storeID, id string, upd shop.ProductUpdate) (*shop.Product, error) {
	p, ok := s.products[id]
	if !ok || p.StoreID != storeID {
		return nil, fault.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	return p, nil
}

func (s *productsStub) Delete(_ context.Context, storeID, id string) error {
	p, ok := s.products[id]
	if !ok || p.StoreID != storeID {
		return fault.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func newFixture(t *testing.T) (*Collection[*shop.Product, shop.ProductUpdate], *productsStub, *audit.InMemory) {
	t.Helper()
	engine, err := access.NewEngine(access.DefaultPolicy(), &engineStoreStub{
		owners: map[string]string{"store-1": "owner-1", "store-2": "owner-2"},
		assignments: map[string]*shop.StoreAssignment{
			"store-1/vendor-1": {StoreID: "store-1", ActorID: "vendor-1", Role: auth.RoleVendor, Status: shop.AssignmentActive},
		},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	products := &productsStub{products: map[string]*shop.Product{
		"prod-1": {ID: "prod-1", StoreID: "store-1", Name: "Kettle", Price: 9900, Currency: "KZT", Active: true},
		"prod-2": {ID: "prod-2", StoreID: "store-2", Name: "Lamp", Price: 4500, Currency: "KZT", Active: true},
	}}
	auditLog := audit.NewInMemory()
	coll, err := NewProductCollection(engine, products, auditLog)
	if err != nil {
		t.Fatalf("NewProductCollection: %v", err)
	}
	return coll, products, auditLog
}

func ctxFor(tc auth.TenantContext) context.Context {
	return auth.ContextWithTenant(context.Background(), tc)
}

func TestFindUniqueCrossTenantIsNotFound(t *testing.T) {
	coll, _, _ := newFixture(t)
	ctx := ctxFor(auth.TenantContext{ActorID: "owner-1", Role: auth.RoleOwner, StoreID: "store-1"})

	// prod-2 exists but belongs to store-2; the error must be identical to a
	// missing id.
	if _, err := coll.FindUnique(ctx, Where{ID: "prod-2"}); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("cross-tenant id: %v, want ErrNotFound", err)
	}
	if _, err := coll.FindUnique(ctx, Where{ID: "ghost"}); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("missing id: %v, want ErrNotFound", err)
	}
	if _, err := coll.FindUnique(ctx, Where{StoreID: "store-2", ID: "prod-2"}); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("foreign store address: %v, want ErrNotFound", err)
	}
}

func TestForeignStoreReadsAsNotFoundNotPermission(t *testing.T) {
	coll, _, _ := newFixture(t)
	// owner-1 has no relationship to store-2; existence must not leak.
	ctx := ctxFor(auth.TenantContext{ActorID: "owner-1", Role: auth.RoleOwner})

	if _, err := coll.FindMany(ctx, Where{StoreID: "store-2"}, ListOptions{}); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("foreign store list: %v, want ErrNotFound", err)
	}
}

func TestMutationsAudited(t *testing.T) {
	coll, _, auditLog := newFixture(t)
	ctx := ctxFor(auth.TenantContext{ActorID: "owner-1", Role: auth.RoleOwner, StoreID: "store-1"})

	created, err := coll.Create(ctx, &shop.Product{ID: "prod-3", StoreID: "store-1", Name: "Mug", Price: 1200, Currency: "KZT", Active: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	name := "Big Mug"
	if _, err := coll.Update(ctx, Where{ID: created.ID}, shop.ProductUpdate{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := coll.Delete(ctx, Where{ID: created.ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	recs := auditLog.All()
	if len(recs) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(recs))
	}
	wantActions := []string{"product.create", "product.update", "product.delete"}
	for i, rec := range recs {
		if rec.Action != wantActions[i] {
			t.Errorf("audit[%d].Action = %s, want %s", i, rec.Action, wantActions[i])
		}
		if rec.ResourceID != "prod-3" || rec.StoreID != "store-1" || rec.ActorID != "owner-1" {
			t.Errorf("audit[%d] incomplete: %+v", i, rec)
		}
	}
}

func TestVendorDeniedDeleteInOwnStore(t *testing.T) {
	coll, products, _ := newFixture(t)
	ctx := ctxFor(auth.TenantContext{ActorID: "vendor-1", Role: auth.RoleVendor, StoreID: "store-1"})

	// Vendor belongs to store-1, so the denial names the permission rather
	// than hiding the resource.
	if err := coll.Delete(ctx, Where{ID: "prod-1"}); !errors.Is(err, fault.ErrPermissionNotGranted) {
		t.Fatalf("vendor delete: %v, want ErrPermissionNotGranted", err)
	}
	if _, ok := products.products["prod-1"]; !ok {
		t.Fatal("product deleted despite denial")
	}

	name := "Renamed"
	if _, err := coll.Update(ctx, Where{ID: "prod-1"}, shop.ProductUpdate{Name: &name}); err != nil {
		t.Fatalf("vendor update should pass: %v", err)
	}
}

func TestMissingTenantContextFailsClosed(t *testing.T) {
	coll, _, _ := newFixture(t)
	if _, err := coll.FindUnique(context.Background(), Where{StoreID: "store-1", ID: "prod-1"}); !errors.Is(err, fault.ErrUnauthenticated) {
		t.Fatalf("no tenant context: %v, want ErrUnauthenticated", err)
	}
}

func TestSessionPinnedToStoreCannotAddressAnother(t *testing.T) {
	coll, _, _ := newFixture(t)
	ctx := ctxFor(auth.TenantContext{ActorID: "owner-1", Role: auth.RoleOwner, StoreID: "store-1"})

	if _, err := coll.FindMany(ctx, Where{StoreID: "store-2"}, ListOptions{}); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("pinned session foreign store: %v, want ErrNotFound", err)
	}
}
