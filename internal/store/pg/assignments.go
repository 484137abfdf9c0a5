package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/shop"
)

// Assignments narrows *Store to the staff-membership contract. Revoked rows
// stay in place for audit history.
type Assignments struct{ s *Store }

func (s *Store) Assignments() *Assignments { return &Assignments{s: s} }

const assignmentColumns = `id, store_id, actor_id, role, coalesce(custom_role_id,''), assigned_by, status, created_at, updated_at`

func (a *Assignments) Create(ctx context.Context, sa *shop.StoreAssignment) error {
	_, err := a.s.db.ExecContext(ctx, `
		insert into store_assignments(id, store_id, actor_id, role, custom_role_id, assigned_by, status, created_at, updated_at)
		values ($1, $2, $3, $4, nullif($5,''), $6, $7, now(), now())
	`, sa.ID, sa.StoreID, sa.ActorID, string(sa.Role), sa.CustomRoleID, sa.AssignedBy, string(sa.Status))
	return mapError(err)
}

func (a *Assignments) Find(ctx context.Context, storeID, actorID string) (*shop.StoreAssignment, error) {
	return scanAssignmentRow(a.s.db.QueryRowContext(ctx, `
		select `+assignmentColumns+` from store_assignments where store_id=$1 and actor_id=$2
	`, storeID, actorID))
}

func (a *Assignments) ListByStore(ctx context.Context, storeID string) ([]*shop.StoreAssignment, error) {
	rows, err := a.s.db.QueryContext(ctx, `
		select `+assignmentColumns+` from store_assignments where store_id=$1 order by created_at
	`, storeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*shop.StoreAssignment
	for rows.Next() {
		sa, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// Accept moves a pending invitation to active. Already-active or revoked rows
// do not match and surface as NotFound.
func (a *Assignments) Accept(ctx context.Context, storeID, actorID string) error {
	res, err := a.s.db.ExecContext(ctx, `
		update store_assignments set status='active', updated_at=now()
		where store_id=$1 and actor_id=$2 and status='pending'
	`, storeID, actorID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func (a *Assignments) Revoke(ctx context.Context, storeID, actorID, revokedBy string) error {
	res, err := a.s.db.ExecContext(ctx, `
		update store_assignments set status='revoked', updated_at=now()
		where store_id=$1 and actor_id=$2 and status <> 'revoked'
	`, storeID, actorID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

// SetCustomRole attaches a custom role to the assignment, or clears it when
// the id is empty. The role must exist in the same store and be active; a
// dangling id would silently lock the staff member out of everything.
func (a *Assignments) SetCustomRole(ctx context.Context, storeID, actorID, customRoleID string) error {
	if customRoleID != "" {
		var active bool
		err := a.s.db.QueryRowContext(ctx, `
			select active from custom_roles where id=$1 and store_id=$2
		`, customRoleID, storeID).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: custom role does not exist in this store", fault.ErrValidationFailed)
		}
		if err != nil {
			return mapError(err)
		}
		if !active {
			return fmt.Errorf("%w: custom role is deactivated", fault.ErrValidationFailed)
		}
	}
	res, err := a.s.db.ExecContext(ctx, `
		update store_assignments set custom_role_id=nullif($3,''), updated_at=now()
		where store_id=$1 and actor_id=$2
	`, storeID, actorID, customRoleID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

// Assignment serves the permission engine; identical scoping to Find.
func (s *Store) Assignment(ctx context.Context, storeID, actorID string) (*shop.StoreAssignment, error) {
	return s.Assignments().Find(ctx, storeID, actorID)
}

func scanAssignmentRow(row rowScanner) (*shop.StoreAssignment, error) {
	var sa shop.StoreAssignment
	var role, status string
	err := row.Scan(&sa.ID, &sa.StoreID, &sa.ActorID, &role, &sa.CustomRoleID, &sa.AssignedBy, &status, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	parsedRole, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	sa.Role = parsedRole
	sa.Status = shop.AssignmentStatus(status)
	return &sa, nil
}
