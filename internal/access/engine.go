package access

import (
	"context"
	"errors"

	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/obs"
	"bazara.org/internal/shop"
)

// DenyReason explains a denied decision.
type DenyReason string

const (
	ReasonNone                 DenyReason = ""
	ReasonNoStoreAccess        DenyReason = "no_store_access"
	ReasonPermissionNotGranted DenyReason = "permission_not_granted"
)

// Decision is the engine's answer to one authorization question.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Err maps a denied decision onto the shared taxonomy; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNoStoreAccess:
		return fault.ErrNoStoreAccess
	default:
		return fault.ErrPermissionNotGranted
	}
}

var (
	allowed = Decision{Allowed: true}

	deniedNoAccess   = Decision{Reason: ReasonNoStoreAccess}
	deniedNotGranted = Decision{Reason: ReasonPermissionNotGranted}
)

// EngineStore is the storage surface the engine needs. Lookups never cache
// across calls: role deactivation committed a moment ago must be visible to
// the very next Authorize.
type EngineStore interface {
	StoreOwner(ctx context.Context, storeID string) (string, error)
	StoreStatus(ctx context.Context, storeID string) (shop.StoreStatus, error)
	Assignment(ctx context.Context, storeID, actorID string) (*shop.StoreAssignment, error)
	CustomRole(ctx context.Context, storeID, roleID string) (*CustomRole, error)
}

// Engine evaluates role and permission checks against one immutable policy
// table. It holds no mutable state; all shared state is the database.
type Engine struct {
	policy PolicyTable
	store  EngineStore
}

// NewEngine constructs the engine with an injected policy table.
func NewEngine(policy PolicyTable, store EngineStore) (*Engine, error) {
	if store == nil {
		return nil, errors.New("access: engine store is required")
	}
	return &Engine{policy: policy, store: store}, nil
}

// Authorize decides whether the tenant context may exercise the permission
// against the given store. The error return carries storage failures only;
// denial is expressed through the Decision.
func (e *Engine) Authorize(ctx context.Context, tc auth.TenantContext, perm Permission, storeID string) (Decision, error) {
	d, err := e.authorize(ctx, tc, perm, storeID)
	if err != nil {
		return d, err
	}
	outcome := "denied"
	if d.Allowed {
		outcome = "allowed"
	}
	obs.CountAuthzDecision(string(perm), outcome)
	return d, nil
}

func (e *Engine) authorize(ctx context.Context, tc auth.TenantContext, perm Permission, storeID string) (Decision, error) {
	if !tc.Valid() || storeID == "" {
		return deniedNoAccess, nil
	}
	if _, ok := registry[perm]; !ok {
		return deniedNotGranted, nil
	}

	// OWNER is the root of trust for every store it owns.
	if tc.Role == auth.RoleOwner {
		owner, err := e.store.StoreOwner(ctx, storeID)
		if err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return deniedNoAccess, nil
			}
			return Decision{}, err
		}
		if owner == tc.ActorID {
			return allowed, nil
		}
		return deniedNoAccess, nil
	}

	// A suspended store goes dark for everyone but its owner.
	status, err := e.store.StoreStatus(ctx, storeID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return deniedNoAccess, nil
		}
		return Decision{}, err
	}
	if status == shop.StoreSuspended {
		return deniedNoAccess, nil
	}

	// CUSTOMER holds only the fixed read/self whitelist, regardless of store.
	if tc.Role == auth.RoleCustomer {
		if e.policy.Allows(auth.RoleCustomer, perm) {
			return allowed, nil
		}
		return deniedNotGranted, nil
	}

	assignment, err := e.store.Assignment(ctx, storeID, tc.ActorID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return deniedNoAccess, nil
		}
		return Decision{}, err
	}
	if !assignment.ActiveNow() {
		return deniedNoAccess, nil
	}

	// An explicit custom role replaces the static table for this assignment:
	// the store narrows what its staff can do by assigning one.
	if assignment.CustomRoleID != "" {
		role, err := e.store.CustomRole(ctx, storeID, assignment.CustomRoleID)
		if err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return deniedNotGranted, nil
			}
			return Decision{}, err
		}
		if role.Active && role.Holds(perm) {
			return allowed, nil
		}
		return deniedNotGranted, nil
	}

	if e.policy.Allows(assignment.Role, perm) {
		return allowed, nil
	}
	return deniedNotGranted, nil
}

// EffectivePermissions resolves the full permission set the context holds in
// a store. Used to enforce the subset invariant on custom role creation.
func (e *Engine) EffectivePermissions(ctx context.Context, tc auth.TenantContext, storeID string) (map[Permission]struct{}, error) {
	set := make(map[Permission]struct{})
	if !tc.Valid() || storeID == "" {
		return set, nil
	}

	if tc.Role == auth.RoleOwner {
		owner, err := e.store.StoreOwner(ctx, storeID)
		if err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return set, nil
			}
			return nil, err
		}
		if owner == tc.ActorID {
			for _, p := range All() {
				set[p] = struct{}{}
			}
		}
		return set, nil
	}
	status, err := e.store.StoreStatus(ctx, storeID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return set, nil
		}
		return nil, err
	}
	if status == shop.StoreSuspended {
		return set, nil
	}

	if tc.Role == auth.RoleCustomer {
		for _, p := range e.policy.Grants(auth.RoleCustomer) {
			set[p] = struct{}{}
		}
		return set, nil
	}

	assignment, err := e.store.Assignment(ctx, storeID, tc.ActorID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return set, nil
		}
		return nil, err
	}
	if !assignment.ActiveNow() {
		return set, nil
	}
	if assignment.CustomRoleID != "" {
		role, err := e.store.CustomRole(ctx, storeID, assignment.CustomRoleID)
		if err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return set, nil
			}
			return nil, err
		}
		if role.Active {
			for _, p := range role.Permissions {
				set[p] = struct{}{}
			}
		}
		return set, nil
	}
	for _, p := range e.policy.Grants(assignment.Role) {
		set[p] = struct{}{}
	}
	return set, nil
}
