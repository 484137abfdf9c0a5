package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bazara.org/internal/audit"
	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/ids"
)

// RoleService manages custom roles. Role management is itself
// permission-gated: every operation goes through Authorize first, and a role
// can never carry a permission its creator does not effectively hold.
type RoleService struct {
	engine *Engine
	roles  RoleStore
	audit  audit.Store
	now    func() time.Time
}

// NewRoleService wires the engine, role storage and the audit log.
func NewRoleService(engine *Engine, roles RoleStore, auditStore audit.Store) (*RoleService, error) {
	if engine == nil || roles == nil || auditStore == nil {
		return nil, errors.New("access: engine, role store and audit store are required")
	}
	return &RoleService{engine: engine, roles: roles, audit: auditStore, now: time.Now}, nil
}

// Create mints a new custom role. The permission set must be a non-empty
// subset of the creator's own effective set at this moment.
func (s *RoleService) Create(ctx context.Context, tc auth.TenantContext, storeID, name, color string, perms []Permission) (*CustomRole, error) {
	if d, err := s.engine.Authorize(ctx, tc, PermUserCreate, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		return nil, d.Err()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", fault.ErrValidationFailed)
	}
	perms = dedupePermissions(perms)
	if err := s.validateSubset(ctx, tc, storeID, perms); err != nil {
		return nil, err
	}

	role := &CustomRole{
		ID:          ids.New(),
		StoreID:     storeID,
		Name:        name,
		Color:       strings.TrimSpace(color),
		Permissions: perms,
		Active:      true,
		CreatedBy:   tc.ActorID,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, tc, storeID, "role.create", role.ID, ""); err != nil {
		return nil, err
	}
	return role, nil
}

// Update changes a custom role. Cosmetic changes (name, color) skip the
// subset check; a new permission set is revalidated against the updater.
func (s *RoleService) Update(ctx context.Context, tc auth.TenantContext, storeID, roleID string, upd CustomRoleUpdate) (*CustomRole, error) {
	if d, err := s.engine.Authorize(ctx, tc, PermUserUpdate, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		return nil, d.Err()
	}
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: role name is required", fault.ErrValidationFailed)
		}
		upd.Name = &trimmed
	}
	if upd.Permissions != nil {
		upd.Permissions = dedupePermissions(upd.Permissions)
		if err := s.validateSubset(ctx, tc, storeID, upd.Permissions); err != nil {
			return nil, err
		}
	}
	role, err := s.roles.Update(ctx, storeID, roleID, upd)
	if err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, tc, storeID, "role.update", roleID, ""); err != nil {
		return nil, err
	}
	return role, nil
}

// Deactivate turns a role off. The store layer guarantees the flag is
// effective before its transaction commits, so holders lose the grants on the
// very next Authorize call.
func (s *RoleService) Deactivate(ctx context.Context, tc auth.TenantContext, storeID, roleID, reason string) error {
	if d, err := s.engine.Authorize(ctx, tc, PermUserUpdate, storeID); err != nil {
		return err
	} else if !d.Allowed {
		return d.Err()
	}
	if err := s.roles.SetActive(ctx, storeID, roleID, false); err != nil {
		return err
	}
	return s.appendAudit(ctx, tc, storeID, "role.deactivate", roleID, reason)
}

// Delete removes a role permanently. A role that still has holders cannot be
// hard-deleted; the store returns fault.ErrConflict and the caller should
// deactivate instead.
func (s *RoleService) Delete(ctx context.Context, tc auth.TenantContext, storeID, roleID string) error {
	if d, err := s.engine.Authorize(ctx, tc, PermUserDelete, storeID); err != nil {
		return err
	} else if !d.Allowed {
		return d.Err()
	}
	if err := s.roles.Delete(ctx, storeID, roleID); err != nil {
		return err
	}
	return s.appendAudit(ctx, tc, storeID, "role.delete", roleID, "")
}

// Get loads one role for display.
func (s *RoleService) Get(ctx context.Context, tc auth.TenantContext, storeID, roleID string) (*CustomRole, error) {
	if d, err := s.engine.Authorize(ctx, tc, PermUserView, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		return nil, d.Err()
	}
	return s.roles.Find(ctx, storeID, roleID)
}

// List returns the store's roles.
func (s *RoleService) List(ctx context.Context, tc auth.TenantContext, storeID string) ([]*CustomRole, error) {
	if d, err := s.engine.Authorize(ctx, tc, PermUserView, storeID); err != nil {
		return nil, err
	} else if !d.Allowed {
		return nil, d.Err()
	}
	return s.roles.ListByStore(ctx, storeID)
}

func (s *RoleService) validateSubset(ctx context.Context, tc auth.TenantContext, storeID string, perms []Permission) error {
	if len(perms) == 0 {
		return fmt.Errorf("%w: a role needs at least one permission", fault.ErrValidationFailed)
	}
	effective, err := s.engine.EffectivePermissions(ctx, tc, storeID)
	if err != nil {
		return err
	}
	for _, p := range perms {
		if _, ok := registry[p]; !ok {
			return fmt.Errorf("%w: unknown permission %q", fault.ErrValidationFailed, p)
		}
		if _, ok := effective[p]; !ok {
			return fmt.Errorf("%w: cannot grant %q beyond your own permissions", fault.ErrPermissionNotGranted, p)
		}
	}
	return nil
}

func (s *RoleService) appendAudit(ctx context.Context, tc auth.TenantContext, storeID, action, roleID, reason string) error {
	return s.audit.Append(ctx, &audit.Record{
		ID:           ids.New(),
		OccurredAt:   s.now().UTC(),
		ActorID:      tc.ActorID,
		StoreID:      storeID,
		Action:       action,
		ResourceType: "custom_role",
		ResourceID:   roleID,
		Reason:       reason,
	})
}

func dedupePermissions(perms []Permission) []Permission {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
