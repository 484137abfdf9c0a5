package rls

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestApplyInstallsPolicyPerTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	for _, p := range Policies {
		mock.ExpectExec("alter table " + p.Table + " enable row level security").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("alter table " + p.Table + " force row level security").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("drop policy if exists tenant_isolation on " + p.Table).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("create policy tenant_isolation on " + p.Table).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Apply(context.Background(), db); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssertTenantSetsTransactionLocalGUCs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").WithArgs("store-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select set_config").WithArgs("actor-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := AssertTenant(context.Background(), tx, "store-1", "actor-1"); err != nil {
		t.Fatalf("AssertTenant: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
