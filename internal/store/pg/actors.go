package pg

import (
	"context"
	"strings"

	"bazara.org/internal/auth"
)

func (s *Store) CreateActor(ctx context.Context, a *auth.Actor) error {
	_, err := s.db.ExecContext(ctx, `
		insert into actors(id, email, role, password_hash, active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, now(), now())
	`, a.ID, strings.ToLower(strings.TrimSpace(a.Email)), string(a.Role), a.PasswordHash, a.Active)
	return mapError(err)
}

func (s *Store) Find(ctx context.Context, id string) (*auth.Actor, error) {
	return s.scanActor(ctx, `
		select id, email, role, password_hash, active, created_at, updated_at
		from actors where id=$1
	`, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Actor, error) {
	return s.scanActor(ctx, `
		select id, email, role, password_hash, active, created_at, updated_at
		from actors where email=$1
	`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) SetActorActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		update actors set active=$2, updated_at=now() where id=$1
	`, id, active)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func (s *Store) scanActor(ctx context.Context, query string, args ...any) (*auth.Actor, error) {
	var a auth.Actor
	var role string
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.Email, &role, &a.PasswordHash, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = parsed
	return &a, nil
}
