// file: sql_catalog.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqlDialect holds what differs between the database/sql backends.
type sqlDialect struct {
	name        string
	quote       func(string) string
	placeholder func(i int) string
	paginate    func(q listQuery, next int) (string, []any)
	upsert      func(ctx context.Context, q sqlQuerier, tc TestCase) (int64, error)
	classify    func(op string, err error) error
	// clearDependents nulls dependency_id of referencing rows before a delete when
	// the schema cannot express ON DELETE SET NULL.
	clearDependents bool
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLCatalog struct {
	baseSQLCatalog
	dialect sqlDialect
}

func (c *SQLCatalog) Upsert(ctx context.Context, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(0, tc)
	if err != nil {
		return TestCase{}, err
	}
	var stored TestCase
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.rejectSelfDependency(ctx, tx, tc); err != nil {
			return err
		}
		id, err := c.dialect.upsert(ctx, tx, tc)
		if err != nil {
			return err
		}
		stored, err = c.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return TestCase{}, c.dialect.classify("upsert test case", err)
	}
	return stored, nil
}

func (c *SQLCatalog) UpsertMany(ctx context.Context, tcs []TestCase) ([]TestCase, error) {
	prepared := make([]TestCase, len(tcs))
	for i, tc := range tcs {
		p, err := prepareTestCase(0, tc)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}
	results := make([]TestCase, 0, len(prepared))
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		for _, tc := range prepared {
			if err := c.rejectSelfDependency(ctx, tx, tc); err != nil {
				return err
			}
			id, err := c.dialect.upsert(ctx, tx, tc)
			if err != nil {
				return err
			}
			stored, err := c.get(ctx, tx, id)
			if err != nil {
				return err
			}
			results = append(results, stored)
		}
		return nil
	})
	if err != nil {
		return nil, c.dialect.classify("upsert test cases", err)
	}
	return results, nil
}

// rejectSelfDependency fails when the upsert would land on the row its dependency
// points at.
func (c *SQLCatalog) rejectSelfDependency(ctx context.Context, q sqlQuerier, tc TestCase) error {
	if tc.DependencyID == nil {
		return nil
	}
	p := c.dialect.placeholder
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM api_tests WHERE url=`+p(1)+` AND request_method=`+p(2), tc.URL, tc.Method).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return selfDependency(id, tc)
}

func (c *SQLCatalog) Update(ctx context.Context, id int64, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(id, tc)
	if err != nil {
		return TestCase{}, err
	}
	p := c.dialect.placeholder
	query := fmt.Sprintf(`UPDATE api_tests SET url=%s, request_method=%s, payload=%s, expected_response_code=%s, expected_response_json=%s, dependency_id=%s WHERE id=%s`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7))
	var stored TestCase
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			tc.URL, tc.Method, nullableJSON(tc.Payload), tc.ExpectedStatusCode, nullableJSON(tc.ExpectedResponse), nullableInt64(tc.DependencyID), id,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		stored, err = c.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return TestCase{}, c.dialect.classify("update test case", err)
	}
	return stored, nil
}

func (c *SQLCatalog) Delete(ctx context.Context, id int64) error {
	p := c.dialect.placeholder
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if c.dialect.clearDependents {
			if _, err := tx.ExecContext(ctx, `UPDATE api_tests SET dependency_id=NULL WHERE dependency_id=`+p(1), id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM api_tests WHERE id=`+p(1), id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return c.dialect.classify("delete test case", err)
	}
	return nil
}

func (c *SQLCatalog) Get(ctx context.Context, id int64) (TestCase, error) {
	tc, err := c.get(ctx, c.db, id)
	if err != nil {
		return TestCase{}, c.dialect.classify("get test case", err)
	}
	return tc, nil
}

func (c *SQLCatalog) get(ctx context.Context, q sqlQuerier, id int64) (TestCase, error) {
	row := q.QueryRowContext(ctx, `SELECT `+columnList+` FROM api_tests WHERE id=`+c.dialect.placeholder(1), id)
	tc, err := scanTestCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TestCase{}, ErrNotFound
	}
	return tc, err
}

func (c *SQLCatalog) GetMany(ctx context.Context, ids []int64) ([]TestCase, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []TestCase{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM api_tests WHERE id IN (%s)`, columnList, placeholders(len(ids), c.dialect.placeholder))
	rows, err := c.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, c.dialect.classify("get test cases", err)
	}
	found, err := queryTestCases(rows)
	if err != nil {
		return nil, c.dialect.classify("scan test cases", err)
	}
	return orderByRequest(ids, found)
}

func (c *SQLCatalog) List(ctx context.Context, opts ListOptions) (Page, error) {
	q, err := normalizeListOptions(opts)
	if err != nil {
		return Page{}, err
	}
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_tests`).Scan(&total); err != nil {
		return Page{}, c.dialect.classify("count test cases", err)
	}
	pagination, args := c.dialect.paginate(q, 1)
	query := fmt.Sprintf(`SELECT %s FROM api_tests ORDER BY %s %s`, columnList, orderClause(q, c.dialect.quote), pagination)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, c.dialect.classify("list test cases", err)
	}
	items, err := queryTestCases(rows)
	if err != nil {
		return Page{}, c.dialect.classify("scan test cases", err)
	}
	return Page{Items: items, Total: total, Page: q.page, PageSize: q.pageSize}, nil
}
