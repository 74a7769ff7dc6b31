package main

import (
	"path/filepath"
	"testing"
)

func TestMigrationDir(t *testing.T) {
	cases := map[string]string{
		"postgres":   "postgres",
		"postgresql": "postgres",
		"MySQL":      "mysql",
		"mssql":      "sqlserver",
		"sqlserver":  "sqlserver",
	}
	for driver, want := range cases {
		got, err := migrationDir("migrations", driver)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", driver, err)
		}
		if got != filepath.Join("migrations", want) {
			t.Fatalf("%s: expected %s, got %s", driver, want, got)
		}
	}
	if _, err := migrationDir("migrations", "memory"); err == nil {
		t.Fatalf("expected error for memory driver")
	}
}

func TestMigrationFilesExist(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlserver"} {
		dir, err := migrationDir(filepath.Join("..", "..", "migrations"), driver)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
		if err != nil {
			t.Fatalf("glob: %v", err)
		}
		if len(files) == 0 {
			t.Fatalf("no migrations in %s", dir)
		}
	}
}
