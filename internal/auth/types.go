package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bazara.org/internal/fault"
)

// Role is the fixed global role of an actor. OWNER is scoped to the stores it
// owns, ADMIN and VENDOR are scoped through store assignments, CUSTOMER is
// unscoped but read-limited.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// ParseRole validates a role identifier coming from storage or token claims.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleVendor:
		return RoleVendor, nil
	case RoleCustomer:
		return RoleCustomer, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", fault.ErrValidationFailed, raw)
}

// Actor is an authenticated identity.
type Actor struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActorStore loads actors during session resolution.
type ActorStore interface {
	Find(ctx context.Context, id string) (*Actor, error)
	FindByEmail(ctx context.Context, email string) (*Actor, error)
}
