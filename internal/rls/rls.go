// Package rls manages the row-level-security backstop. The application layer
// is the first authorization gate; these policies make the database itself
// refuse cross-tenant rows if a query ever slips through without scoping.
package rls

import (
	"context"
	"database/sql"
	"fmt"
)

// Policy binds one table to its tenant predicate.
type Policy struct {
	Table string
	Using string
}

// storeScoped matches the transaction's pinned store, with a bypass for the
// store's owner so cross-store OWNER sessions (empty app.store_id) still see
// their own rows.
const storeScoped = `store_id = current_setting('app.store_id', true)` +
	` or exists (select 1 from stores s where s.id = store_id` +
	` and s.owner_id = current_setting('app.actor_id', true))`

// Policies lists every tenant-owned table. The actors table is deliberately
// absent: accounts are global, membership is what scopes them. Order items
// carry no store column of their own and inherit tenancy from their order.
var Policies = []Policy{
	{Table: "products", Using: storeScoped},
	{Table: "orders", Using: storeScoped},
	{Table: "order_items", Using: `exists (select 1 from orders o where o.id = order_items.order_id` +
		` and (o.store_id = current_setting('app.store_id', true)` +
		` or exists (select 1 from stores s where s.id = o.store_id` +
		` and s.owner_id = current_setting('app.actor_id', true))))`},
	{Table: "store_assignments", Using: storeScoped},
	{Table: "custom_roles", Using: storeScoped},
	{Table: "audit_log", Using: storeScoped},
}

// Execer is the subset of sql.DB / sql.Tx the package needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply installs (or reinstalls) the isolation policy on every tenant table.
// Idempotent; safe to run on every startup after migrations.
func Apply(ctx context.Context, db Execer) error {
	for _, p := range Policies {
		stmts := []string{
			fmt.Sprintf(`alter table %s enable row level security`, p.Table),
			fmt.Sprintf(`alter table %s force row level security`, p.Table),
			fmt.Sprintf(`drop policy if exists tenant_isolation on %s`, p.Table),
			fmt.Sprintf(`create policy tenant_isolation on %s using (%s)`, p.Table, p.Using),
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("rls policy on %s: %w", p.Table, err)
			}
		}
	}
	return nil
}

// AssertTenant pins the current transaction to one store and actor. The GUCs
// are transaction-local (set_config with is_local=true), so nothing leaks
// into pooled connections after commit or rollback.
func AssertTenant(ctx context.Context, tx Execer, storeID, actorID string) error {
	if _, err := tx.ExecContext(ctx, `select set_config('app.store_id', $1, true)`, storeID); err != nil {
		return fmt.Errorf("set tenant store: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `select set_config('app.actor_id', $1, true)`, actorID); err != nil {
		return fmt.Errorf("set tenant actor: %w", err)
	}
	return nil
}
