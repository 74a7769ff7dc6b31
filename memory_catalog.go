// file: memory_catalog.go
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryCatalog keeps test cases in process. It enforces the same natural key and
// dependency rules as the SQL backends and is used for local runs and tests.
type MemoryCatalog struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]TestCase
	byKey  map[string]int64
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{byID: map[int64]TestCase{}, byKey: map[string]int64{}}
}

func naturalKey(tc TestCase) string {
	return tc.Method + " " + tc.URL
}

func (m *MemoryCatalog) Ping(ctx context.Context) error { return nil }

func (m *MemoryCatalog) ExecScript(ctx context.Context, script string) error { return nil }

func (m *MemoryCatalog) Close() error { return nil }

func (m *MemoryCatalog) Upsert(ctx context.Context, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(0, tc)
	if err != nil {
		return TestCase{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(tc)
}

func (m *MemoryCatalog) UpsertMany(ctx context.Context, tcs []TestCase) ([]TestCase, error) {
	prepared := make([]TestCase, len(tcs))
	for i, tc := range tcs {
		p, err := prepareTestCase(0, tc)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshotByID := make(map[int64]TestCase, len(m.byID))
	for k, v := range m.byID {
		snapshotByID[k] = v
	}
	snapshotByKey := make(map[string]int64, len(m.byKey))
	for k, v := range m.byKey {
		snapshotByKey[k] = v
	}
	snapshotNext := m.nextID
	results := make([]TestCase, 0, len(prepared))
	for _, tc := range prepared {
		stored, err := m.upsertLocked(tc)
		if err != nil {
			m.byID, m.byKey, m.nextID = snapshotByID, snapshotByKey, snapshotNext
			return nil, err
		}
		results = append(results, stored)
	}
	return results, nil
}

func (m *MemoryCatalog) upsertLocked(tc TestCase) (TestCase, error) {
	id, exists := m.byKey[naturalKey(tc)]
	if !exists {
		id = m.nextID + 1
	}
	if err := m.checkDependencyLocked(id, tc.DependencyID); err != nil {
		return TestCase{}, err
	}
	if !exists {
		m.nextID = id
		m.byKey[naturalKey(tc)] = id
	}
	tc.ID = id
	m.byID[id] = tc
	return tc, nil
}

func (m *MemoryCatalog) checkDependencyLocked(id int64, dep *int64) error {
	if dep == nil {
		return nil
	}
	if *dep == id {
		return ErrInvalidDependency
	}
	if _, ok := m.byID[*dep]; !ok {
		return ErrInvalidDependency
	}
	return nil
}

func (m *MemoryCatalog) Update(ctx context.Context, id int64, tc TestCase) (TestCase, error) {
	tc, err := prepareTestCase(id, tc)
	if err != nil {
		return TestCase{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[id]
	if !ok {
		return TestCase{}, ErrNotFound
	}
	if other, taken := m.byKey[naturalKey(tc)]; taken && other != id {
		return TestCase{}, ErrConflict
	}
	if err := m.checkDependencyLocked(id, tc.DependencyID); err != nil {
		return TestCase{}, err
	}
	delete(m.byKey, naturalKey(current))
	tc.ID = id
	m.byKey[naturalKey(tc)] = id
	m.byID[id] = tc
	return tc, nil
}

func (m *MemoryCatalog) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byKey, naturalKey(current))
	for otherID, other := range m.byID {
		if other.DependencyID != nil && *other.DependencyID == id {
			other.DependencyID = nil
			m.byID[otherID] = other
		}
	}
	return nil
}

func (m *MemoryCatalog) Get(ctx context.Context, id int64) (TestCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc, ok := m.byID[id]
	if !ok {
		return TestCase{}, ErrNotFound
	}
	return tc, nil
}

func (m *MemoryCatalog) GetMany(ctx context.Context, ids []int64) ([]TestCase, error) {
	ids = dedupeIDs(ids)
	m.mu.Lock()
	found := make([]TestCase, 0, len(ids))
	for _, id := range ids {
		if tc, ok := m.byID[id]; ok {
			found = append(found, tc)
		}
	}
	m.mu.Unlock()
	return orderByRequest(ids, found)
}

func (m *MemoryCatalog) List(ctx context.Context, opts ListOptions) (Page, error) {
	q, err := normalizeListOptions(opts)
	if err != nil {
		return Page{}, err
	}
	m.mu.Lock()
	all := make([]TestCase, 0, len(m.byID))
	for _, tc := range m.byID {
		all = append(all, tc)
	}
	m.mu.Unlock()
	sort.SliceStable(all, func(i, j int) bool {
		c := compareColumn(q.column, all[i], all[j])
		if c == 0 {
			return all[i].ID < all[j].ID
		}
		if q.desc {
			return c > 0
		}
		return c < 0
	})
	total := int64(len(all))
	start := q.offset
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + q.pageSize
	if end > len(all) {
		end = len(all)
	}
	return Page{Items: all[start:end], Total: total, Page: q.page, PageSize: q.pageSize}, nil
}

// compareColumn sorts a missing dependency before any id.
func compareColumn(column string, a, b TestCase) int {
	switch column {
	case "url":
		return strings.Compare(a.URL, b.URL)
	case "request_method":
		return strings.Compare(a.Method, b.Method)
	case "expected_response_code":
		return compareInt64(int64(a.ExpectedStatusCode), int64(b.ExpectedStatusCode))
	case "dependency_id":
		switch {
		case a.DependencyID == nil && b.DependencyID == nil:
			return 0
		case a.DependencyID == nil:
			return -1
		case b.DependencyID == nil:
			return 1
		}
		return compareInt64(*a.DependencyID, *b.DependencyID)
	default:
		return compareInt64(a.ID, b.ID)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
