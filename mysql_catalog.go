// file: mysql_catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const mysqlUpsert = `
	INSERT INTO api_tests (url, request_method, payload, expected_response_code, expected_response_json, dependency_id)
	VALUES (?,?,?,?,?,?)
	ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id),
	                        payload = VALUES(payload),
	                        expected_response_code = VALUES(expected_response_code),
	                        expected_response_json = VALUES(expected_response_json),
	                        dependency_id = VALUES(dependency_id)`

func newMySQLCatalog(cfg ConnectionConfig) (*SQLCatalog, error) {
	db, err := openDatabase("mysql", mysqlDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	return &SQLCatalog{
		baseSQLCatalog: baseSQLCatalog{cfg: cfg, db: db},
		dialect: sqlDialect{
			name:        "mysql",
			quote:       func(s string) string { return "`" + s + "`" },
			placeholder: func(int) string { return "?" },
			paginate: func(q listQuery, _ int) (string, []any) {
				return "LIMIT ? OFFSET ?", []any{q.pageSize, q.offset}
			},
			upsert:   upsertMySQL,
			classify: mysqlError,
		},
	}, nil
}

func mysqlDSN(cfg ConnectionConfig) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	// RowsAffected must count matched rows so an update with unchanged values is
	// not mistaken for a missing id.
	mc.ClientFoundRows = true
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if sslMode == "disable" {
		mc.TLSConfig = "false"
	} else if sslMode != "" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

func upsertMySQL(ctx context.Context, q sqlQuerier, tc TestCase) (int64, error) {
	res, err := q.ExecContext(ctx, mysqlUpsert,
		tc.URL, tc.Method, nullableJSON(tc.Payload), tc.ExpectedStatusCode, nullableJSON(tc.ExpectedResponse), nullableInt64(tc.DependencyID),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func mysqlError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1451, 1452:
			return fmt.Errorf("%s: %w", op, ErrInvalidDependency)
		case 1062:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
	}
	return storeError(op, err)
}
