package access

import (
	"fmt"

	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
)

// PolicyTable maps fixed roles to their static permission sets. It is built
// once, injected into the engine and never mutated, so tests can substitute
// alternate tables.
type PolicyTable struct {
	grants map[auth.Role]map[Permission]struct{}
}

// NewPolicyTable validates every key against the registry and freezes the
// table.
func NewPolicyTable(spec map[auth.Role][]Permission) (PolicyTable, error) {
	grants := make(map[auth.Role]map[Permission]struct{}, len(spec))
	for role, perms := range spec {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if _, ok := registry[p]; !ok {
				return PolicyTable{}, fmt.Errorf("%w: policy grants unknown permission %q to %s", fault.ErrValidationFailed, p, role)
			}
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return PolicyTable{grants: grants}, nil
}

// Allows reports whether the fixed role statically holds the permission.
func (t PolicyTable) Allows(role auth.Role, p Permission) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

// Grants returns a copy of the role's static permission set.
func (t PolicyTable) Grants(role auth.Role) []Permission {
	set := t.grants[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// DefaultPolicy is the production table. ADMIN runs the store day to day,
// VENDOR manages catalog and sees orders, CUSTOMER holds only the read/self
// whitelist.
func DefaultPolicy() PolicyTable {
	table, err := NewPolicyTable(map[auth.Role][]Permission{
		auth.RoleAdmin: {
			PermStoreView, PermStoreUpdate,
			PermProductCreate, PermProductView, PermProductUpdate, PermProductDelete,
			PermOrderView, PermOrderUpdate,
			PermUserCreate, PermUserView, PermUserUpdate, PermUserDelete,
			PermAnalyticsView,
		},
		auth.RoleVendor: {
			PermStoreView,
			PermProductCreate, PermProductView, PermProductUpdate,
			PermOrderView,
		},
		auth.RoleCustomer: {
			PermProductView, PermOrderCreate, PermOrderViewOwn, PermOrderCancelOwn,
		},
	})
	if err != nil {
		// Only reachable if a constant above leaves the registry.
		panic(err)
	}
	return table
}
