// file: factory.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func NewCatalog(ctx context.Context, cfg ConnectionConfig) (Catalog, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, errors.New("catalog driver is required")
	}
	switch strings.ToLower(cfg.Type) {
	case "postgres", "postgresql":
		return newPostgresCatalog(ctx, cfg)
	case "mysql":
		return newMySQLCatalog(cfg)
	case "mssql", "sqlserver":
		return newMSSQLCatalog(cfg)
	case "memory":
		return NewMemoryCatalog(), nil
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Type)
	}
}

func openDatabase(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

type baseSQLCatalog struct {
	cfg ConnectionConfig
	db  *sql.DB
}

func (b *baseSQLCatalog) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *baseSQLCatalog) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %s: %v", ErrUnavailable, b.cfg.Type, err)
	}
	return nil
}

func (b *baseSQLCatalog) ExecScript(ctx context.Context, script string) error {
	if _, err := b.db.ExecContext(ctx, script); err != nil {
		return storeError("exec script", err)
	}
	return nil
}

// withTx runs fn in a transaction that is rolled back on every error path.
func (b *baseSQLCatalog) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func queryTestCases(rows *sql.Rows) ([]TestCase, error) {
	defer rows.Close()
	results := []TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
