// file: catalog.go
package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Catalog interface {
	Ping(ctx context.Context) error

	Upsert(ctx context.Context, tc TestCase) (TestCase, error)

	UpsertMany(ctx context.Context, tcs []TestCase) ([]TestCase, error)

	Update(ctx context.Context, id int64, tc TestCase) (TestCase, error)

	Delete(ctx context.Context, id int64) error

	Get(ctx context.Context, id int64) (TestCase, error)

	GetMany(ctx context.Context, ids []int64) ([]TestCase, error)

	List(ctx context.Context, opts ListOptions) (Page, error)

	ExecScript(ctx context.Context, script string) error

	Close() error
}

type ConnectionConfig struct {
	Type     string // postgres | mysql | sqlserver | memory
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ListOptions struct {
	Page     int
	PageSize int
	SortKey  string
	Order    string
}

var (
	ErrNotFound          = errors.New("test case not found")
	ErrConflict          = errors.New("test case already exists for url and method")
	ErrInvalidDependency = errors.New("dependency does not reference an existing test case")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnavailable       = errors.New("test catalog unavailable")
)

const columnList = "id, url, request_method, payload, expected_response_code, expected_response_json, dependency_id"

// sortColumns maps accepted sort keys onto fixed column names. Caller text never
// reaches a query.
var sortColumns = map[string]string{
	"id":                     "id",
	"url":                    "url",
	"method":                 "request_method",
	"request_method":         "request_method",
	"expected_response_code": "expected_response_code",
	"status":                 "expected_response_code",
	"dependency_id":          "dependency_id",
}

var methodPattern = regexp.MustCompile(`^[A-Z]+$`)

type listQuery struct {
	column   string
	desc     bool
	page     int
	pageSize int
	offset   int
}

func normalizeListOptions(opts ListOptions) (listQuery, error) {
	q := listQuery{column: "id", page: opts.Page, pageSize: opts.PageSize}
	if q.page <= 0 {
		q.page = 1
	}
	if q.pageSize <= 0 {
		q.pageSize = defaultPageSize
	}
	if q.pageSize > maxPageSize {
		q.pageSize = maxPageSize
	}
	if key := strings.ToLower(strings.TrimSpace(opts.SortKey)); key != "" {
		column, ok := sortColumns[key]
		if !ok {
			return listQuery{}, fmt.Errorf("unsupported sort key %q: %w", opts.SortKey, ErrInvalidInput)
		}
		q.column = column
	}
	switch strings.ToLower(strings.TrimSpace(opts.Order)) {
	case "", "asc":
	case "desc":
		q.desc = true
	default:
		return listQuery{}, fmt.Errorf("unsupported sort order %q: %w", opts.Order, ErrInvalidInput)
	}
	if q.page-1 > math.MaxInt32/q.pageSize {
		return listQuery{}, fmt.Errorf("page %d is out of range: %w", opts.Page, ErrInvalidInput)
	}
	q.offset = (q.page - 1) * q.pageSize
	return q, nil
}

func orderClause(q listQuery, quote func(string) string) string {
	dir := "ASC"
	if q.desc {
		dir = "DESC"
	}
	clause := quote(q.column) + " " + dir
	if q.column != "id" {
		clause += ", " + quote("id") + " ASC"
	}
	return clause
}

func validateTestCase(id int64, tc TestCase) error {
	if tc.URL == "" {
		return fmt.Errorf("url is required: %w", ErrInvalidInput)
	}
	parsed, err := url.Parse(tc.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) url: %w", tc.URL, ErrInvalidInput)
	}
	if !methodPattern.MatchString(tc.Method) {
		return fmt.Errorf("request method %q is invalid: %w", tc.Method, ErrInvalidInput)
	}
	if tc.ExpectedStatusCode < 100 || tc.ExpectedStatusCode > 599 {
		return fmt.Errorf("expected response code %d is invalid: %w", tc.ExpectedStatusCode, ErrInvalidInput)
	}
	if tc.Payload != nil && !json.Valid(tc.Payload) {
		return fmt.Errorf("payload is not valid json: %w", ErrInvalidInput)
	}
	if tc.ExpectedResponse != nil && !json.Valid(tc.ExpectedResponse) {
		return fmt.Errorf("expected response is not valid json: %w", ErrInvalidInput)
	}
	return selfDependency(id, tc)
}

func prepareTestCase(id int64, tc TestCase) (TestCase, error) {
	tc = tc.Normalized()
	if err := validateTestCase(id, tc); err != nil {
		return TestCase{}, err
	}
	return tc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTestCase(row scanner) (TestCase, error) {
	var tc TestCase
	var payload, expected []byte
	var dependency sql.NullInt64
	if err := row.Scan(&tc.ID, &tc.URL, &tc.Method, &payload, &tc.ExpectedStatusCode, &expected, &dependency); err != nil {
		return TestCase{}, err
	}
	tc.Payload = normalizeJSON(payload)
	tc.ExpectedResponse = normalizeJSON(expected)
	if dependency.Valid {
		dep := dependency.Int64
		tc.DependencyID = &dep
	}
	return tc, nil
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

// storeError keeps domain sentinels intact and tags connection failures as
// ErrUnavailable with the underlying reason.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrConflict, ErrInvalidDependency, ErrInvalidInput, ErrUnavailable} {
		if errors.Is(err, known) {
			return err
		}
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// selfDependency rejects tc when it would depend on the record stored under id.
func selfDependency(id int64, tc TestCase) error {
	if tc.DependencyID != nil && id != 0 && *tc.DependencyID == id {
		return fmt.Errorf("test case %d cannot depend on itself: %w", id, ErrInvalidDependency)
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// orderByRequest returns found in the order of ids and ErrNotFound naming every
// id that had no record.
func orderByRequest(ids []int64, found []TestCase) ([]TestCase, error) {
	byID := make(map[int64]TestCase, len(found))
	for _, tc := range found {
		byID[tc.ID] = tc
	}
	results := make([]TestCase, 0, len(ids))
	missing := []string{}
	for _, id := range ids {
		tc, ok := byID[id]
		if !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}
		results = append(results, tc)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ids %s: %w", strings.Join(missing, ", "), ErrNotFound)
	}
	return results, nil
}

func placeholders(n int, mark func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = mark(i + 1)
	}
	return strings.Join(parts, ", ")
}
