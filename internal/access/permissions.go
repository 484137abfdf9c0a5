package access

import (
	"fmt"
	"sort"

	"bazara.org/internal/fault"
)

// Permission is an opaque capability identifier. The set is closed: an
// unrecognized key fails ParsePermission at validation time instead of
// becoming a silent always-deny at runtime.
type Permission string

const (
	PermStoreView      Permission = "store.view"
	PermStoreUpdate    Permission = "store.update"
	PermStoreDelete    Permission = "store.delete"
	PermProductCreate  Permission = "product.create"
	PermProductView    Permission = "product.view"
	PermProductUpdate  Permission = "product.update"
	PermProductDelete  Permission = "product.delete"
	PermOrderCreate    Permission = "order.create"
	PermOrderView      Permission = "order.view"
	PermOrderUpdate    Permission = "order.update"
	PermOrderViewOwn   Permission = "order.view.own"
	PermOrderCancelOwn Permission = "order.cancel.own"
	PermUserCreate     Permission = "user.create"
	PermUserView       Permission = "user.view"
	PermUserUpdate     Permission = "user.update"
	PermUserDelete     Permission = "user.delete"
	PermAuditView      Permission = "audit.view"
	PermAnalyticsView  Permission = "analytics.view"
)

// Category groups permissions for UI presentation only. It carries no
// authorization semantics.
type Category string

const (
	CategoryStore    Category = "store"
	CategoryCatalog  Category = "catalog"
	CategoryOrders   Category = "orders"
	CategoryStaff    Category = "staff"
	CategoryInsights Category = "insights"
)

var registry = map[Permission]Category{
	PermStoreView:      CategoryStore,
	PermStoreUpdate:    CategoryStore,
	PermStoreDelete:    CategoryStore,
	PermProductCreate:  CategoryCatalog,
	PermProductView:    CategoryCatalog,
	PermProductUpdate:  CategoryCatalog,
	PermProductDelete:  CategoryCatalog,
	PermOrderCreate:    CategoryOrders,
	PermOrderView:      CategoryOrders,
	PermOrderUpdate:    CategoryOrders,
	PermOrderViewOwn:   CategoryOrders,
	PermOrderCancelOwn: CategoryOrders,
	PermUserCreate:     CategoryStaff,
	PermUserView:       CategoryStaff,
	PermUserUpdate:     CategoryStaff,
	PermUserDelete:     CategoryStaff,
	PermAuditView:      CategoryInsights,
	PermAnalyticsView:  CategoryInsights,
}

// ParsePermission validates a permission key against the registry.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if _, ok := registry[p]; !ok {
		return "", fmt.Errorf("%w: unknown permission %q", fault.ErrValidationFailed, raw)
	}
	return p, nil
}

// CategoryOf returns the UI category for a registered permission.
func CategoryOf(p Permission) (Category, bool) {
	c, ok := registry[p]
	return c, ok
}

// All returns every registered permission in stable order.
func All() []Permission {
	out := make([]Permission, 0, len(registry))
	for p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
