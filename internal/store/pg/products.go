package pg

import (
	"context"
	"strings"

	"bazara.org/internal/shop"
)

// Products narrows *Store to the catalog contract. Every query carries the
// store id so cross-tenant product ids read as missing rows.
type Products struct{ s *Store }

func (s *Store) Products() *Products { return &Products{s: s} }

const productColumns = `id, store_id, name, price, currency, stock, active, created_at, updated_at`

func (p *Products) Create(ctx context.Context, pr *shop.Product) error {
	_, err := p.s.db.ExecContext(ctx, `
		insert into products(id, store_id, name, price, currency, stock, active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, pr.ID, pr.StoreID, pr.Name, pr.Price, pr.Currency, pr.Stock, pr.Active)
	return mapError(err)
}

func (p *Products) FindInStore(ctx context.Context, storeID, id string) (*shop.Product, error) {
	return scanProductRow(p.s.db.QueryRowContext(ctx, `
		select `+productColumns+` from products where store_id=$1 and id=$2
	`, storeID, id))
}

func (p *Products) ListByStore(ctx context.Context, storeID string) ([]*shop.Product, error) {
	rows, err := p.s.db.QueryContext(ctx, `
		select `+productColumns+` from products where store_id=$1 order by created_at
	`, storeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*shop.Product
	for rows.Next() {
		pr, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Products) Update(ctx context.Context, storeID, id string, upd shop.ProductUpdate) (*shop.Product, error) {
	sets := []string{"updated_at=now()"}
	args := []any{storeID, id}
	next := 3
	add := func(col string, v any) {
		sets = append(sets, col+"=$"+itoa(next))
		args = append(args, v)
		next++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if upd.Restock != nil {
		add("stock", *upd.Restock)
	}

	query := `
		update products set ` + strings.Join(sets, ", ") + `
		where store_id=$1 and id=$2
		returning ` + productColumns
	return scanProductRow(p.s.db.QueryRowContext(ctx, query, args...))
}

func (p *Products) Delete(ctx context.Context, storeID, id string) error {
	res, err := p.s.db.ExecContext(ctx, `delete from products where store_id=$1 and id=$2`, storeID, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func scanProductRow(row rowScanner) (*shop.Product, error) {
	var pr shop.Product
	err := row.Scan(&pr.ID, &pr.StoreID, &pr.Name, &pr.Price, &pr.Currency, &pr.Stock, &pr.Active, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &pr, nil
}
