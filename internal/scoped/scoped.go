// Package scoped wraps entity storage in the tenant-access contract: every
// read and write resolves the owning store, passes the permission engine and,
// on mutation, lands in the audit log. Handlers never touch raw backends.
package scoped

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazara.org/internal/access"
	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/ids"
)

// Where narrows a collection call to one store and optionally one entity.
type Where struct {
	StoreID string
	ID      string
}

// ListOptions bounds FindMany results.
type ListOptions struct {
	Limit int
}

// Permissions maps collection operations onto engine permissions.
type Permissions struct {
	List   access.Permission
	Read   access.Permission
	Create access.Permission
	Update access.Permission
	Delete access.Permission
}

// Backend is the raw storage surface behind one collection. It performs no
// authorization; the collection has already decided by the time it is called.
type Backend[T any, U any] interface {
	FindMany(ctx context.Context, storeID string, opts ListOptions) ([]T, error)
	FindUnique(ctx context.Context, storeID, id string) (T, error)
	Create(ctx context.Context, entity T) error
	Update(ctx context.Context, storeID, id string, upd U) (T, error)
	Delete(ctx context.Context, storeID, id string) error
}

// Collection is a tenant-scoped repository over one entity type. The tenant
// context travels in ctx; a missing context fails closed.
type Collection[T any, U any] struct {
	resource string
	perms    Permissions
	engine   *access.Engine
	backend  Backend[T, U]
	auditLog audit.Store
	key      func(T) string
	tenant   func(T) string
	now      func() time.Time
}

// NewCollection wires a collection. key and tenant extract the entity id and
// its owning store id from an entity value.
func NewCollection[T any, U any](
	resource string,
	perms Permissions,
	engine *access.Engine,
	backend Backend[T, U],
	auditLog audit.Store,
	key func(T) string,
	tenant func(T) string,
) (*Collection[T, U], error) {
	if resource == "" || engine == nil || backend == nil || auditLog == nil || key == nil || tenant == nil {
		return nil, errors.New("scoped: resource, engine, backend, audit store and extractors are required")
	}
	return &Collection[T, U]{
		resource: resource,
		perms:    perms,
		engine:   engine,
		backend:  backend,
		auditLog: auditLog,
		key:      key,
		tenant:   tenant,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (c *Collection[T, U]) WithClock(fn func() time.Time) *Collection[T, U] {
	if fn != nil {
		c.now = fn
	}
	return c
}

// FindMany lists entities of one store.
func (c *Collection[T, U]) FindMany(ctx context.Context, where Where, opts ListOptions) ([]T, error) {
	tc, storeID, err := c.resolve(ctx, where)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, tc, c.perms.List, storeID); err != nil {
		return nil, err
	}
	return c.backend.FindMany(ctx, storeID, opts)
}

// FindUnique loads one entity. An id belonging to another store resolves to
// fault.ErrNotFound, indistinguishable from a missing row.
func (c *Collection[T, U]) FindUnique(ctx context.Context, where Where) (T, error) {
	var zero T
	tc, storeID, err := c.resolve(ctx, where)
	if err != nil {
		return zero, err
	}
	if where.ID == "" {
		return zero, fmt.Errorf("%w: entity id is required", fault.ErrValidationFailed)
	}
	if err := c.authorize(ctx, tc, c.perms.Read, storeID); err != nil {
		return zero, err
	}
	return c.backend.FindUnique(ctx, storeID, where.ID)
}

// Create inserts an entity into the store it declares as its tenant.
func (c *Collection[T, U]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	tc, ok := auth.TenantFromContext(ctx)
	if !ok {
		return zero, fault.ErrUnauthenticated
	}
	storeID := c.tenant(entity)
	if storeID == "" {
		return zero, fmt.Errorf("%w: store id is required", fault.ErrValidationFailed)
	}
	if tc.StoreID != "" && tc.StoreID != storeID {
		return zero, fault.ErrNotFound
	}
	if err := c.authorize(ctx, tc, c.perms.Create, storeID); err != nil {
		return zero, err
	}
	if err := c.backend.Create(ctx, entity); err != nil {
		return zero, err
	}
	if err := c.append(ctx, tc, storeID, "create", c.key(entity)); err != nil {
		return zero, err
	}
	return entity, nil
}

// Update applies a partial change to one entity.
func (c *Collection[T, U]) Update(ctx context.Context, where Where, upd U) (T, error) {
	var zero T
	tc, storeID, err := c.resolve(ctx, where)
	if err != nil {
		return zero, err
	}
	if where.ID == "" {
		return zero, fmt.Errorf("%w: entity id is required", fault.ErrValidationFailed)
	}
	if err := c.authorize(ctx, tc, c.perms.Update, storeID); err != nil {
		return zero, err
	}
	entity, err := c.backend.Update(ctx, storeID, where.ID, upd)
	if err != nil {
		return zero, err
	}
	if err := c.append(ctx, tc, storeID, "update", where.ID); err != nil {
		return zero, err
	}
	return entity, nil
}

// Delete removes one entity.
func (c *Collection[T, U]) Delete(ctx context.Context, where Where) error {
	tc, storeID, err := c.resolve(ctx, where)
	if err != nil {
		return err
	}
	if where.ID == "" {
		return fmt.Errorf("%w: entity id is required", fault.ErrValidationFailed)
	}
	if err := c.authorize(ctx, tc, c.perms.Delete, storeID); err != nil {
		return err
	}
	if err := c.backend.Delete(ctx, storeID, where.ID); err != nil {
		return err
	}
	return c.append(ctx, tc, storeID, "delete", where.ID)
}

// resolve picks the effective store id. A session pinned to one store may not
// address another; the mismatch reads as NotFound so foreign store ids do not
// leak existence.
func (c *Collection[T, U]) resolve(ctx context.Context, where Where) (auth.TenantContext, string, error) {
	tc, ok := auth.TenantFromContext(ctx)
	if !ok {
		return auth.TenantContext{}, "", fault.ErrUnauthenticated
	}
	storeID := where.StoreID
	if tc.StoreID != "" {
		if storeID == "" {
			storeID = tc.StoreID
		} else if storeID != tc.StoreID {
			return auth.TenantContext{}, "", fault.ErrNotFound
		}
	}
	if storeID == "" {
		return auth.TenantContext{}, "", fmt.Errorf("%w: store id is required", fault.ErrValidationFailed)
	}
	return tc, storeID, nil
}

func (c *Collection[T, U]) authorize(ctx context.Context, tc auth.TenantContext, perm access.Permission, storeID string) error {
	d, err := c.engine.Authorize(ctx, tc, perm, storeID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		// No access to the store at all reads as NotFound: the caller must
		// not learn whether the store, or anything in it, exists.
		if d.Reason == access.ReasonNoStoreAccess {
			return fault.ErrNotFound
		}
		return d.Err()
	}
	return nil
}

func (c *Collection[T, U]) append(ctx context.Context, tc auth.TenantContext, storeID, verb, resourceID string) error {
	return c.auditLog.Append(ctx, &audit.Record{
		ID:           ids.New(),
		OccurredAt:   c.now().UTC(),
		ActorID:      tc.ActorID,
		StoreID:      storeID,
		Action:       c.resource + "." + verb,
		ResourceType: c.resource,
		ResourceID:   resourceID,
	})
}
