package access

import (
	"context"
	"time"
)

// CustomRole is a store-defined, named subset of permissions assignable in
// place of a fixed role. By construction it can only narrow what its holder
// could do, never widen it.
type CustomRole struct {
	ID          string       `json:"id"`
	StoreID     string       `json:"store_id"`
	Name        string       `json:"name"`
	Color       string       `json:"color,omitempty"`
	Permissions []Permission `json:"permissions"`
	Active      bool         `json:"active"`
	CreatedBy   string       `json:"created_by"`
	UsersCount  int          `json:"users_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Holds reports whether the role grants the permission.
func (r *CustomRole) Holds(p Permission) bool {
	if r == nil {
		return false
	}
	for _, have := range r.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// CustomRoleUpdate carries optional role changes. Cosmetic fields (name,
// color) are exempt from permission-subset revalidation.
type CustomRoleUpdate struct {
	Name        *string
	Color       *string
	Permissions []Permission
}

// RoleStore persists custom roles. SetActive must make deactivation effective
// within the transaction that flips the flag: the very next Authorize call
// after commit sees it.
type RoleStore interface {
	Create(ctx context.Context, role *CustomRole) error
	Find(ctx context.Context, storeID, roleID string) (*CustomRole, error)
	ListByStore(ctx context.Context, storeID string) ([]*CustomRole, error)
	Update(ctx context.Context, storeID, roleID string, upd CustomRoleUpdate) (*CustomRole, error)
	SetActive(ctx context.Context, storeID, roleID string, active bool) error
	// Delete fails with fault.ErrConflict when the role still has holders.
	Delete(ctx context.Context, storeID, roleID string) error
}
