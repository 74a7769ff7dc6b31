// file: mssql_catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
)

const mssqlUpsert = `
	MERGE api_tests WITH (HOLDLOCK) AS target
	USING (SELECT @p1 AS url, @p2 AS request_method) AS source
	ON target.url = source.url AND target.request_method = source.request_method
	WHEN MATCHED THEN
		UPDATE SET payload = @p3, expected_response_code = @p4, expected_response_json = @p5, dependency_id = @p6
	WHEN NOT MATCHED THEN
		INSERT (url, request_method, payload, expected_response_code, expected_response_json, dependency_id)
		VALUES (@p1, @p2, @p3, @p4, @p5, @p6)
	OUTPUT inserted.id;`

func newMSSQLCatalog(cfg ConnectionConfig) (*SQLCatalog, error) {
	db, err := openDatabase("sqlserver", mssqlDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open mssql connection: %w", err)
	}
	return &SQLCatalog{
		baseSQLCatalog: baseSQLCatalog{cfg: cfg, db: db},
		dialect: sqlDialect{
			name:        "sqlserver",
			quote:       func(s string) string { return "[" + s + "]" },
			placeholder: mssqlPlaceholder,
			paginate: func(q listQuery, next int) (string, []any) {
				return fmt.Sprintf("OFFSET %s ROWS FETCH NEXT %s ROWS ONLY", mssqlPlaceholder(next), mssqlPlaceholder(next+1)), []any{q.offset, q.pageSize}
			},
			upsert:          upsertMSSQL,
			classify:        mssqlError,
			clearDependents: true,
		},
	}, nil
}

func mssqlPlaceholder(i int) string {
	return "@p" + strconv.Itoa(i)
}

func mssqlDSN(cfg ConnectionConfig) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	encrypt := "true"
	if strings.ToLower(strings.TrimSpace(cfg.SSLMode)) == "disable" {
		encrypt = "disable"
	}
	query := url.Values{}
	query.Set("database", cfg.Database)
	query.Set("encrypt", encrypt)
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func upsertMSSQL(ctx context.Context, q sqlQuerier, tc TestCase) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, mssqlUpsert,
		tc.URL, tc.Method, nullableJSON(tc.Payload), tc.ExpectedStatusCode, nullableJSON(tc.ExpectedResponse), nullableInt64(tc.DependencyID),
	).Scan(&id)
	return id, err
}

func mssqlError(op string, err error) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 547:
			return fmt.Errorf("%s: %w", op, ErrInvalidDependency)
		case 2601, 2627:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
	}
	return storeError(op, err)
}
