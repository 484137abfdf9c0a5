package pg

import (
	"context"
	"database/sql"
	"fmt"

	"bazara.org/internal/fault"
	"bazara.org/internal/order"
	"bazara.org/internal/rls"
)

// Orders narrows *Store to the order lifecycle contract.
type Orders struct{ s *Store }

func (s *Store) Orders() *Orders { return &Orders{s: s} }

const orderColumns = `
	id, store_id, customer_id, status, total_amount, currency,
	coalesce(payment_proof_ref,''), coalesce(tracking,''),
	coalesce(rejection_reason,''), coalesce(cancel_reason,''),
	created_at, updated_at, paid_at, shipped_at, delivered_at, rejected_at, cancelled_at`

func (o *Orders) Create(ctx context.Context, ord *order.Order) error {
	tx, err := o.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into orders(id, store_id, customer_id, status, total_amount, currency, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, now(), now())
	`, ord.ID, ord.StoreID, ord.CustomerID, string(ord.Status), ord.TotalAmount, ord.Currency); err != nil {
		return mapError(err)
	}
	for _, item := range ord.Items {
		if _, err := tx.ExecContext(ctx, `
			insert into order_items(id, order_id, product_id, quantity, unit_price)
			values ($1, $2, $3, $4, $5)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return mapError(err)
		}
	}
	return tx.Commit()
}

func (o *Orders) FindInStore(ctx context.Context, storeID, orderID string) (*order.Order, error) {
	ord, err := scanOrderRow(o.s.db.QueryRowContext(ctx, `
		select `+orderColumns+` from orders where store_id=$1 and id=$2
	`, storeID, orderID))
	if err != nil {
		return nil, err
	}
	if err := o.loadItems(ctx, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

func (o *Orders) Find(ctx context.Context, orderID string) (*order.Order, error) {
	ord, err := scanOrderRow(o.s.db.QueryRowContext(ctx, `
		select `+orderColumns+` from orders where id=$1
	`, orderID))
	if err != nil {
		return nil, err
	}
	if err := o.loadItems(ctx, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

func (o *Orders) ListByStore(ctx context.Context, storeID string, limit int) ([]*order.Order, error) {
	return o.list(ctx, `
		select `+orderColumns+` from orders where store_id=$1 order by created_at desc limit $2
	`, storeID, clampLimit(limit))
}

func (o *Orders) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*order.Order, error) {
	return o.list(ctx, `
		select `+orderColumns+` from orders where customer_id=$1 order by created_at desc limit $2
	`, customerID, clampLimit(limit))
}

func (o *Orders) AttachPaymentProof(ctx context.Context, storeID, orderID, ref string) (*order.Order, error) {
	res, err := o.s.db.ExecContext(ctx, `
		update orders set payment_proof_ref=$3, updated_at=now()
		where store_id=$1 and id=$2 and status='pending_admin'
	`, storeID, orderID, ref)
	if err != nil {
		return nil, mapError(err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return o.FindInStore(ctx, storeID, orderID)
}

// Apply commits one transition atomically: a conditional status update, the
// stock deltas and the audit record in a single serializable transaction,
// pinned to the tenant for the row-security policies. Losing the status race
// yields fault.ErrConcurrentModification with nothing written.
func (o *Orders) Apply(ctx context.Context, t order.Transition) (order.Result, error) {
	tx, err := o.s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return order.Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	actorID := ""
	if t.Audit != nil {
		actorID = t.Audit.ActorID
	}
	if err := rls.AssertTenant(ctx, tx, t.StoreID, actorID); err != nil {
		return order.Result{}, err
	}

	res, err := tx.ExecContext(ctx, `
		update orders set
			status=$4,
			updated_at=$5,
			payment_proof_ref = coalesce(nullif($6,''), payment_proof_ref),
			tracking          = coalesce(nullif($7,''), tracking),
			rejection_reason  = case when $4 = 'rejected'  then $8 else rejection_reason end,
			cancel_reason     = case when $4 = 'cancelled' then $8 else cancel_reason end,
			paid_at      = case when $4 = 'paid'      then $5 else paid_at end,
			shipped_at   = case when $4 = 'shipped'   then $5 else shipped_at end,
			delivered_at = case when $4 = 'delivered' then $5 else delivered_at end,
			rejected_at  = case when $4 = 'rejected'  then $5 else rejected_at end,
			cancelled_at = case when $4 = 'cancelled' then $5 else cancelled_at end
		where store_id=$1 and id=$2 and status=$3
	`, t.StoreID, t.OrderID, string(t.From), string(t.To), t.At,
		t.PaymentProofRef, t.Tracking, t.Reason)
	if err != nil {
		return order.Result{}, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return order.Result{}, err
	}
	if n == 0 {
		// Either the order is gone or somebody got there first.
		var current string
		err := tx.QueryRowContext(ctx, `
			select status from orders where store_id=$1 and id=$2
		`, t.StoreID, t.OrderID).Scan(&current)
		if err != nil {
			return order.Result{}, mapError(err)
		}
		return order.Result{}, fault.ErrConcurrentModification
	}

	low, err := applyStockDeltas(ctx, tx, t.StoreID, t.StockDeltas)
	if err != nil {
		return order.Result{}, err
	}

	if t.Audit != nil {
		if err := appendAudit(ctx, tx, t.Audit); err != nil {
			return order.Result{}, fmt.Errorf("audit append: %w", err)
		}
	}

	ord, err := scanOrderRow(tx.QueryRowContext(ctx, `
		select `+orderColumns+` from orders where store_id=$1 and id=$2
	`, t.StoreID, t.OrderID))
	if err != nil {
		return order.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return order.Result{}, err
	}
	return order.Result{Order: ord, LowStock: low}, nil
}

// applyStockDeltas adjusts product stock, refusing to go negative, and
// reports products whose stock crossed below the store threshold.
func applyStockDeltas(ctx context.Context, tx *sql.Tx, storeID string, deltas []order.StockDelta) ([]string, error) {
	if len(deltas) == 0 {
		return nil, nil
	}
	var threshold int64
	if err := tx.QueryRowContext(ctx, `
		select low_stock_threshold from stores where id=$1
	`, storeID).Scan(&threshold); err != nil {
		return nil, mapError(err)
	}

	var low []string
	for _, d := range deltas {
		var after int64
		err := tx.QueryRowContext(ctx, `
			update products set stock = stock + $3, updated_at = now()
			where store_id=$1 and id=$2 and stock + $3 >= 0
			returning stock
		`, storeID, d.ProductID, d.Delta).Scan(&after)
		if err != nil {
			if mapped := mapError(err); mapped == fault.ErrNotFound {
				return nil, fmt.Errorf("%w: insufficient stock for product %s", fault.ErrConflict, d.ProductID)
			}
			return nil, mapError(err)
		}
		before := after - d.Delta
		if d.Delta < 0 && before > threshold && after <= threshold {
			low = append(low, d.ProductID)
		}
	}
	return low, nil
}

func (o *Orders) list(ctx context.Context, query string, args ...any) ([]*order.Order, error) {
	rows, err := o.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		ord, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ord := range out {
		if err := o.loadItems(ctx, ord); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *Orders) loadItems(ctx context.Context, ord *order.Order) error {
	rows, err := o.s.db.QueryContext(ctx, `
		select id, order_id, product_id, quantity, unit_price
		from order_items where order_id=$1 order by id
	`, ord.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var item order.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return mapError(err)
		}
		ord.Items = append(ord.Items, item)
	}
	return rows.Err()
}

func scanOrderRow(row rowScanner) (*order.Order, error) {
	var ord order.Order
	var status string
	var paid, shipped, delivered, rejected, cancelled sql.NullTime
	err := row.Scan(&ord.ID, &ord.StoreID, &ord.CustomerID, &status, &ord.TotalAmount, &ord.Currency,
		&ord.PaymentProofRef, &ord.Tracking, &ord.RejectionReason, &ord.CancelReason,
		&ord.CreatedAt, &ord.UpdatedAt, &paid, &shipped, &delivered, &rejected, &cancelled)
	if err != nil {
		return nil, mapError(err)
	}
	parsed, err := order.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	ord.Status = parsed
	ord.PaidAt = timePtr(paid)
	ord.ShippedAt = timePtr(shipped)
	ord.DeliveredAt = timePtr(delivered)
	ord.RejectedAt = timePtr(rejected)
	ord.CancelledAt = timePtr(cancelled)
	return &ord, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
