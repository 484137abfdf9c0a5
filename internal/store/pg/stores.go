package pg

import (
	"context"
	"strings"

	"bazara.org/internal/shop"
)

// Stores narrows *Store to the tenant contract.
type Stores struct{ s *Store }

func (s *Store) Stores() *Stores { return &Stores{s: s} }

func (st *Stores) Create(ctx context.Context, sh *shop.Store) error {
	_, err := st.s.db.ExecContext(ctx, `
		insert into stores(id, owner_id, name, status, currency, low_stock_threshold, bot_token, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, nullif($7,''), now(), now())
	`, sh.ID, sh.OwnerID, sh.Name, string(sh.Status), sh.Currency, sh.LowStockThreshold, sh.BotToken)
	return mapError(err)
}

func (st *Stores) Find(ctx context.Context, id string) (*shop.Store, error) {
	return st.scan(ctx, `
		select id, owner_id, name, status, currency, low_stock_threshold, coalesce(bot_token,''), created_at, updated_at
		from stores where id=$1
	`, id)
}

func (st *Stores) ListOwned(ctx context.Context, ownerID string) ([]*shop.Store, error) {
	rows, err := st.s.db.QueryContext(ctx, `
		select id, owner_id, name, status, currency, low_stock_threshold, coalesce(bot_token,''), created_at, updated_at
		from stores where owner_id=$1 order by created_at
	`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*shop.Store
	for rows.Next() {
		sh, err := scanStoreRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (st *Stores) Update(ctx context.Context, id string, upd shop.StoreUpdate) (*shop.Store, error) {
	sets := []string{"updated_at=now()"}
	args := []any{id}
	next := 2
	add := func(col string, v any) {
		sets = append(sets, col+"=$"+itoa(next))
		args = append(args, v)
		next++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.Currency != nil {
		add("currency", *upd.Currency)
	}
	if upd.LowStockThreshold != nil {
		add("low_stock_threshold", *upd.LowStockThreshold)
	}

	query := `
		update stores set ` + strings.Join(sets, ", ") + `
		where id=$1
		returning id, owner_id, name, status, currency, low_stock_threshold, coalesce(bot_token,''), created_at, updated_at
	`
	return st.scan(ctx, query, args...)
}

// Delete removes the store; products, orders, assignments and roles go with
// it through on-delete cascades in the schema.
func (st *Stores) Delete(ctx context.Context, id string) error {
	res, err := st.s.db.ExecContext(ctx, `delete from stores where id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

// StoreOwner serves the permission engine's root-of-trust lookup.
func (s *Store) StoreOwner(ctx context.Context, storeID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `select owner_id from stores where id=$1`, storeID).Scan(&owner)
	if err != nil {
		return "", mapError(err)
	}
	return owner, nil
}

// StoreStatus serves the permission engine's suspension check.
func (s *Store) StoreStatus(ctx context.Context, storeID string) (shop.StoreStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `select status from stores where id=$1`, storeID).Scan(&status)
	if err != nil {
		return "", mapError(err)
	}
	return shop.ParseStoreStatus(status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoreRow(row rowScanner) (*shop.Store, error) {
	var sh shop.Store
	var status string
	err := row.Scan(&sh.ID, &sh.OwnerID, &sh.Name, &status, &sh.Currency, &sh.LowStockThreshold, &sh.BotToken, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	parsed, err := shop.ParseStoreStatus(status)
	if err != nil {
		return nil, err
	}
	sh.Status = parsed
	return &sh, nil
}

func (st *Stores) scan(ctx context.Context, query string, args ...any) (*shop.Store, error) {
	return scanStoreRow(st.s.db.QueryRowContext(ctx, query, args...))
}
