// file: postgres_catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresUpsert = `
	INSERT INTO api_tests (url, request_method, payload, expected_response_code, expected_response_json, dependency_id)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (url, request_method)
	DO UPDATE SET payload = EXCLUDED.payload,
	              expected_response_code = EXCLUDED.expected_response_code,
	              expected_response_json = EXCLUDED.expected_response_json,
	              dependency_id = EXCLUDED.dependency_id
	RETURNING ` + columnList

type PostgresCatalog struct {
	cfg  ConnectionConfig
	pool *pgxpool.Pool
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func newPostgresCatalog(ctx context.Context, cfg ConnectionConfig) (*PostgresCatalog, error) {
	dsn := postgresDSN(cfg)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &PostgresCatalog{cfg: cfg, pool: pool}, nil
}

func postgresDSN(cfg ConnectionConfig) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

func (c *PostgresCatalog) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *PostgresCatalog) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping postgres: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *PostgresCatalog) ExecScript(ctx context.Context, script string) error {
	if _, err := c.pool.Exec(ctx, script); err != nil {
		return postgresError("exec script", err)
	}
	return nil
}

func (c *PostgresCatalog) Upsert(ctx context.Context, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(0, tc)
	if err != nil {
		return TestCase{}, err
	}
	stored, err := upsertPostgres(ctx, c.pool, tc)
	if err != nil {
		return TestCase{}, postgresError("upsert test case", err)
	}
	return stored, nil
}

func (c *PostgresCatalog) UpsertMany(ctx context.Context, tcs []TestCase) ([]TestCase, error) {
	prepared := make([]TestCase, len(tcs))
	for i, tc := range tcs {
		p, err := prepareTestCase(0, tc)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}
	results := make([]TestCase, 0, len(prepared))
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		for _, tc := range prepared {
			stored, err := upsertPostgres(ctx, tx, tc)
			if err != nil {
				return err
			}
			results = append(results, stored)
		}
		return nil
	})
	if err != nil {
		return nil, postgresError("upsert test cases", err)
	}
	return results, nil
}

func upsertPostgres(ctx context.Context, q pgQuerier, tc TestCase) (TestCase, error) {
	row := q.QueryRow(ctx, postgresUpsert,
		tc.URL, tc.Method, nullableJSON(tc.Payload), tc.ExpectedStatusCode, nullableJSON(tc.ExpectedResponse), nullableInt64(tc.DependencyID),
	)
	return scanTestCase(row)
}

func (c *PostgresCatalog) Update(ctx context.Context, id int64, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(id, tc)
	if err != nil {
		return TestCase{}, err
	}
	row := c.pool.QueryRow(ctx, `
		UPDATE api_tests
		SET url=$1, request_method=$2, payload=$3, expected_response_code=$4, expected_response_json=$5, dependency_id=$6
		WHERE id=$7
		RETURNING `+columnList,
		tc.URL, tc.Method, nullableJSON(tc.Payload), tc.ExpectedStatusCode, nullableJSON(tc.ExpectedResponse), nullableInt64(tc.DependencyID), id,
	)
	stored, err := scanTestCase(row)
	if err != nil {
		return TestCase{}, postgresError("update test case", err)
	}
	return stored, nil
}

func (c *PostgresCatalog) Delete(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM api_tests WHERE id=$1`, id)
	if err != nil {
		return postgresError("delete test case", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) Get(ctx context.Context, id int64) (TestCase, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+columnList+` FROM api_tests WHERE id=$1`, id)
	tc, err := scanTestCase(row)
	if err != nil {
		return TestCase{}, postgresError("get test case", err)
	}
	return tc, nil
}

func (c *PostgresCatalog) GetMany(ctx context.Context, ids []int64) ([]TestCase, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []TestCase{}, nil
	}
	rows, err := c.pool.Query(ctx, `SELECT `+columnList+` FROM api_tests WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, postgresError("get test cases", err)
	}
	defer rows.Close()
	found := []TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, postgresError("scan test case", err)
		}
		found = append(found, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresError("iterate test cases", err)
	}
	return orderByRequest(ids, found)
}

func (c *PostgresCatalog) List(ctx context.Context, opts ListOptions) (Page, error) {
	q, err := normalizeListOptions(opts)
	if err != nil {
		return Page{}, err
	}
	var total int64
	if err := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_tests`).Scan(&total); err != nil {
		return Page{}, postgresError("count test cases", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM api_tests ORDER BY %s LIMIT $1 OFFSET $2`, columnList, orderClause(q, quotePostgres))
	rows, err := c.pool.Query(ctx, query, q.pageSize, q.offset)
	if err != nil {
		return Page{}, postgresError("list test cases", err)
	}
	defer rows.Close()
	items := []TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return Page{}, postgresError("scan test case", err)
		}
		items = append(items, tc)
	}
	if err := rows.Err(); err != nil {
		return Page{}, postgresError("iterate test cases", err)
	}
	return Page{Items: items, Total: total, Page: q.page, PageSize: q.pageSize}, nil
}

func quotePostgres(s string) string {
	return "\"" + s + "\""
}

func postgresError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidDependency)
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
	}
	return storeError(op, err)
}
