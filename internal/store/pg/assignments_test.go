package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"bazara.org/internal/fault"
)

func TestSetCustomRoleValidatesRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// Unknown or foreign-store id: no update happens.
	mock.ExpectQuery("select active from custom_roles").
		WithArgs("cr-ghost", "store-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}))

	err = New(db).Assignments().SetCustomRole(context.Background(), "store-1", "actor-1", "cr-ghost")
	if !errors.Is(err, fault.ErrValidationFailed) {
		t.Fatalf("unknown role: %v, want ErrValidationFailed", err)
	}

	// Deactivated role: also rejected before the update.
	mock.ExpectQuery("select active from custom_roles").
		WithArgs("cr-off", "store-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(false))

	err = New(db).Assignments().SetCustomRole(context.Background(), "store-1", "actor-1", "cr-off")
	if !errors.Is(err, fault.ErrValidationFailed) {
		t.Fatalf("inactive role: %v, want ErrValidationFailed", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetCustomRoleAttachesAndClears(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select active from custom_roles").
		WithArgs("cr-1", "store-1").
		WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(true))
	mock.ExpectExec("update store_assignments set custom_role_id").
		WithArgs("store-1", "actor-1", "cr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(db).Assignments().SetCustomRole(context.Background(), "store-1", "actor-1", "cr-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Clearing skips the role lookup entirely.
	mock.ExpectExec("update store_assignments set custom_role_id").
		WithArgs("store-1", "actor-1", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(db).Assignments().SetCustomRole(context.Background(), "store-1", "actor-1", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
