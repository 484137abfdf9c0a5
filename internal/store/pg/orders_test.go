package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bazara.org/internal/audit"
	"bazara.org/internal/fault"
	"bazara.org/internal/order"
)

func orderRow(status string, at time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "store_id", "customer_id", "status", "total_amount", "currency",
		"payment_proof_ref", "tracking", "rejection_reason", "cancel_reason",
		"created_at", "updated_at", "paid_at", "shipped_at", "delivered_at", "rejected_at", "cancelled_at",
	}).AddRow("ord-1", "store-1", "cust-1", status, 5000, "KZT",
		"", "", "", "", at, at, at, nil, nil, nil, nil)
}

func TestApplyCommitsStatusStockAndAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").WithArgs("store-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select set_config").WithArgs("actor-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update orders set").
		WithArgs("store-1", "ord-1", "pending_admin", "paid", at, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select low_stock_threshold from stores").
		WithArgs("store-1").
		WillReturnRows(sqlmock.NewRows([]string{"low_stock_threshold"}).AddRow(5))
	mock.ExpectQuery("update products set stock").
		WithArgs("store-1", "prod-1", int64(-2)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(4))
	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "actor-1", "store-1", "confirm_payment",
			"order", "ord-1", "pending_admin", "paid", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("select(.|\n)*from orders where store_id").
		WithArgs("store-1", "ord-1").
		WillReturnRows(orderRow("paid", at))
	mock.ExpectCommit()

	res, err := New(db).Orders().Apply(context.Background(), order.Transition{
		StoreID:     "store-1",
		OrderID:     "ord-1",
		From:        order.StatusPendingAdmin,
		To:          order.StatusPaid,
		Action:      order.ActionConfirmPayment,
		StockDeltas: []order.StockDelta{{ProductID: "prod-1", Delta: -2}},
		Audit: &audit.Record{
			ID: "aud-1", OccurredAt: at, ActorID: "actor-1", StoreID: "store-1",
			Action: "confirm_payment", ResourceType: "order", ResourceID: "ord-1",
			FromState: "pending_admin", ToState: "paid",
		},
		At: at,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Order.Status != order.StatusPaid {
		t.Fatalf("status = %s, want paid", res.Order.Status)
	}
	// Stock went 6 -> 4 across threshold 5.
	if len(res.LowStock) != 1 || res.LowStock[0] != "prod-1" {
		t.Fatalf("low stock = %v, want [prod-1]", res.LowStock)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyRaceLossIsConcurrentModification(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").WithArgs("store-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select set_config").WithArgs("").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update orders set").
		WithArgs("store-1", "ord-1", "pending_admin", "paid", at, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from orders").
		WithArgs("store-1", "ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paid"))
	mock.ExpectRollback()

	_, err = New(db).Orders().Apply(context.Background(), order.Transition{
		StoreID: "store-1",
		OrderID: "ord-1",
		From:    order.StatusPendingAdmin,
		To:      order.StatusPaid,
		Action:  order.ActionConfirmPayment,
		At:      at,
	})
	if !errors.Is(err, fault.ErrConcurrentModification) {
		t.Fatalf("race loss: %v, want ErrConcurrentModification", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyMissingOrderIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").WithArgs("store-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select set_config").WithArgs("").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update orders set").
		WithArgs("store-1", "ghost", "pending_admin", "paid", at, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from orders").
		WithArgs("store-1", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err = New(db).Orders().Apply(context.Background(), order.Transition{
		StoreID: "store-1",
		OrderID: "ghost",
		From:    order.StatusPendingAdmin,
		To:      order.StatusPaid,
		Action:  order.ActionConfirmPayment,
		At:      at,
	})
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("missing order: %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyAuditFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").WithArgs("store-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select set_config").WithArgs("actor-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("update orders set").
		WithArgs("store-1", "ord-1", "pending_admin", "paid", at, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = New(db).Orders().Apply(context.Background(), order.Transition{
		StoreID: "store-1",
		OrderID: "ord-1",
		From:    order.StatusPendingAdmin,
		To:      order.StatusPaid,
		Action:  order.ActionConfirmPayment,
		Audit: &audit.Record{
			ID: "aud-1", OccurredAt: at, ActorID: "actor-1", StoreID: "store-1",
			Action: "confirm_payment", ResourceType: "order", ResourceID: "ord-1",
		},
		At: at,
	})
	if err == nil {
		t.Fatal("expected failure when audit insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindInStoreScopesByStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	orders := New(db).Orders()

	mock.ExpectQuery("select(.|\n)*from orders where store_id").
		WithArgs("store-1", "ord-1").
		WillReturnRows(orderRow("paid", time.Now()))
	mock.ExpectQuery("select id, order_id, product_id").
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "unit_price"}).
			AddRow("item-1", "ord-1", "prod-1", 2, 2500))

	ord, err := orders.FindInStore(context.Background(), "store-1", "ord-1")
	if err != nil {
		t.Fatalf("FindInStore: %v", err)
	}
	if len(ord.Items) != 1 || ord.Items[0].ProductID != "prod-1" {
		t.Fatalf("items not loaded: %+v", ord.Items)
	}

	// Same id addressed through another store filters to an empty result.
	mock.ExpectQuery("select(.|\n)*from orders where store_id").
		WithArgs("store-2", "ord-1").
		WillReturnError(sql.ErrNoRows)

	if _, err := orders.FindInStore(context.Background(), "store-2", "ord-1"); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("cross-store id: %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
