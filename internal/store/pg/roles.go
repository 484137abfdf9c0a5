package pg

import (
	"context"
	"strings"

	"bazara.org/internal/access"
	"bazara.org/internal/fault"
)

// Roles narrows *Store to the custom-role contract. Permission sets are kept
// as text arrays rendered through a comma join; the closed registry keeps the
// values free of commas.
type Roles struct{ s *Store }

func (s *Store) Roles() *Roles { return &Roles{s: s} }

const roleColumns = `
	r.id, r.store_id, r.name, coalesce(r.color,''), r.permissions, r.active, r.created_by,
	(select count(*) from store_assignments a where a.custom_role_id = r.id and a.status = 'active'),
	r.created_at, r.updated_at`

func (r *Roles) Create(ctx context.Context, role *access.CustomRole) error {
	_, err := r.s.db.ExecContext(ctx, `
		insert into custom_roles(id, store_id, name, color, permissions, active, created_by, created_at, updated_at)
		values ($1, $2, $3, nullif($4,''), $5, $6, $7, now(), now())
	`, role.ID, role.StoreID, role.Name, role.Color, joinPermissions(role.Permissions), role.Active, role.CreatedBy)
	return mapError(err)
}

func (r *Roles) Find(ctx context.Context, storeID, roleID string) (*access.CustomRole, error) {
	return scanRoleRow(r.s.db.QueryRowContext(ctx, `
		select `+roleColumns+` from custom_roles r where r.store_id=$1 and r.id=$2
	`, storeID, roleID))
}

func (r *Roles) ListByStore(ctx context.Context, storeID string) ([]*access.CustomRole, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+roleColumns+` from custom_roles r where r.store_id=$1 order by r.created_at
	`, storeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*access.CustomRole
	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *Roles) Update(ctx context.Context, storeID, roleID string, upd access.CustomRoleUpdate) (*access.CustomRole, error) {
	sets := []string{"updated_at=now()"}
	args := []any{storeID, roleID}
	next := 3
	add := func(col string, v any) {
		sets = append(sets, col+"=$"+itoa(next))
		args = append(args, v)
		next++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Color != nil {
		add("color", nullIfEmpty(*upd.Color))
	}
	if upd.Permissions != nil {
		add("permissions", joinPermissions(upd.Permissions))
	}

	query := `
		update custom_roles r set ` + strings.Join(sets, ", ") + `
		where r.store_id=$1 and r.id=$2
		returning ` + roleColumns
	return scanRoleRow(r.s.db.QueryRowContext(ctx, query, args...))
}

// SetActive flips the flag in its own transaction so the change is visible to
// the next Authorize the moment this returns.
func (r *Roles) SetActive(ctx context.Context, storeID, roleID string, active bool) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update custom_roles set active=$3, updated_at=now() where store_id=$1 and id=$2
	`, storeID, roleID, active)
	if err != nil {
		return mapError(err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete refuses while active assignments still reference the role.
func (r *Roles) Delete(ctx context.Context, storeID, roleID string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var holders int
	if err := tx.QueryRowContext(ctx, `
		select count(*) from store_assignments where custom_role_id=$1 and status='active'
	`, roleID).Scan(&holders); err != nil {
		return mapError(err)
	}
	if holders > 0 {
		return fault.ErrConflict
	}
	res, err := tx.ExecContext(ctx, `delete from custom_roles where store_id=$1 and id=$2`, storeID, roleID)
	if err != nil {
		return mapError(err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// CustomRole serves the permission engine; identical scoping to Find.
func (s *Store) CustomRole(ctx context.Context, storeID, roleID string) (*access.CustomRole, error) {
	return s.Roles().Find(ctx, storeID, roleID)
}

func scanRoleRow(row rowScanner) (*access.CustomRole, error) {
	var role access.CustomRole
	var perms string
	err := row.Scan(&role.ID, &role.StoreID, &role.Name, &role.Color, &perms, &role.Active, &role.CreatedBy, &role.UsersCount, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	role.Permissions, err = splitPermissions(perms)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func joinPermissions(perms []access.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitPermissions(raw string) ([]access.Permission, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]access.Permission, 0, len(parts))
	for _, part := range parts {
		p, err := access.ParsePermission(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
