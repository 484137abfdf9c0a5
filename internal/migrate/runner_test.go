package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	script := `
create table a (id text primary key);
insert into a values ('x;y');
create function deny() returns trigger as $$
begin
	raise exception 'immutable; no updates';
end;
$$ language plpgsql;
`
	stmts := splitStatements(script)
	if len(stmts) != 3 {
		t.Fatalf("statements = %d, want 3: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[1], "'x;y'") {
		t.Fatalf("quoted semicolon split: %q", stmts[1])
	}
	if !strings.Contains(stmts[2], "language plpgsql") {
		t.Fatalf("function body split apart: %q", stmts[2])
	}
}

// The audit log must never carry foreign keys: a cascade from stores would
// hit its own append-only trigger and abort the parent delete.
func TestAuditLogSchemaIsSelfContained(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "sql", "0003_audit_log.up.sql"))
	if err != nil {
		t.Fatalf("read audit migration: %v", err)
	}
	script := strings.ToLower(string(raw))
	if strings.Contains(script, "references") {
		t.Fatal("audit_log references live rows; history must outlive what it describes")
	}
	if !strings.Contains(script, "before update or delete") {
		t.Fatal("append-only trigger missing from audit schema")
	}
}
