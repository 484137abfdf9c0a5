package shop

import (
	"fmt"
	"strings"
	"time"

	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
)

// StoreStatus is the lifecycle state of a tenant.
type StoreStatus string

const (
	StoreActive    StoreStatus = "active"
	StoreInactive  StoreStatus = "inactive"
	StoreSuspended StoreStatus = "suspended"
)

// ParseStoreStatus validates a status value coming from storage or input.
func ParseStoreStatus(raw string) (StoreStatus, error) {
	switch StoreStatus(strings.TrimSpace(strings.ToLower(raw))) {
	case StoreActive:
		return StoreActive, nil
	case StoreInactive:
		return StoreInactive, nil
	case StoreSuspended:
		return StoreSuspended, nil
	}
	return "", fmt.Errorf("%w: unknown store status %q", fault.ErrValidationFailed, raw)
}

// Store is a tenant boundary. Every product, order and assignment belongs to
// exactly one store; deleting a store deletes everything inside it.
type Store struct {
	ID                string      `json:"id"`
	OwnerID           string      `json:"owner_id"`
	Name              string      `json:"name"`
	Status            StoreStatus `json:"status"`
	Currency          string      `json:"currency"`
	LowStockThreshold int64       `json:"low_stock_threshold"`
	BotToken          string      `json:"-"` // per-store Telegram bot identity
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Product is a store-owned catalog item. Price is in minor units; no floats.
type Product struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	Stock     int64     `json:"stock"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignmentStatus tracks the staff-membership lifecycle: created pending on
// invite, active on acceptance, revoked on removal. Revoked rows are kept for
// audit history, never hard-deleted.
type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "pending"
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRevoked AssignmentStatus = "revoked"
)

// StoreAssignment links an actor to a store with a fixed role and optionally
// a store-defined custom role that narrows it.
type StoreAssignment struct {
	ID           string           `json:"id"`
	StoreID      string           `json:"store_id"`
	ActorID      string           `json:"actor_id"`
	Role         auth.Role        `json:"role"` // admin or vendor
	CustomRoleID string           `json:"custom_role_id,omitempty"`
	AssignedBy   string           `json:"assigned_by"`
	Status       AssignmentStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ActiveNow reports whether the assignment currently grants store access.
func (a *StoreAssignment) ActiveNow() bool {
	return a != nil && a.Status == AssignmentActive
}
