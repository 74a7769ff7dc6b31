package catalog

import (
	"strings"
	"testing"
)

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(ConnectionConfig{Host: "db", User: "app", Password: "p@ss", Database: "tests"})
	if dsn != "postgres://app:p%40ss@db:5432/tests?sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	if got := postgresDSN(ConnectionConfig{DSN: "postgres://x"}); got != "postgres://x" {
		t.Fatalf("expected explicit dsn to win, got %s", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(ConnectionConfig{Host: "db", User: "app", Password: "secret", Database: "tests", SSLMode: "disable"})
	if !strings.HasPrefix(dsn, "app:secret@tcp(db:3306)/tests?") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	for _, want := range []string{"clientFoundRows=true", "parseTime=true", "tls=false"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %s in dsn %s", want, dsn)
		}
	}
}

func TestMSSQLDSN(t *testing.T) {
	dsn := mssqlDSN(ConnectionConfig{Host: "db", User: "sa", Password: "pw", Database: "tests", SSLMode: "disable"})
	if !strings.HasPrefix(dsn, "sqlserver://sa:pw@db:1433?") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	if !strings.Contains(dsn, "database=tests") || !strings.Contains(dsn, "encrypt=disable") {
		t.Fatalf("unexpected query: %s", dsn)
	}
}

func TestMSSQLPlaceholder(t *testing.T) {
	if got := mssqlPlaceholder(4); got != "@p4" {
		t.Fatalf("unexpected placeholder: %s", got)
	}
}
