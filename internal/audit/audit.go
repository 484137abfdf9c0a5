// Package audit records privileged state changes. The persisted log is
// append-only; order transitions treat a failed append as fatal, because an
// unaudited privileged change is itself a security incident.
package audit

import (
	"context"
	"time"
)

// Record is one immutable audit entry keyed by (resource type, resource id,
// timestamp).
type Record struct {
	ID           string            `json:"id"`
	OccurredAt   time.Time         `json:"occurred_at"`
	ActorID      string            `json:"actor_id"`
	StoreID      string            `json:"store_id,omitempty"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	FromState    string            `json:"from_state,omitempty"`
	ToState      string            `json:"to_state,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store appends and reads immutable entries.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	List(ctx context.Context, resourceType, resourceID string, limit int) ([]Record, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]Record, error)
}
