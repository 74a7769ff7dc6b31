package results

import (
	"context"
	"errors"
	"strconv"
	"sync"

	catalog "apitest-backend"
)

var ErrNoResult = errors.New("no result recorded for test")

const keyPrefix = "test_result:"

// Sink stores the latest execution result of each test.
type Sink interface {
	Save(ctx context.Context, result catalog.ExecutionResult) error
	Load(ctx context.Context, testID int64) (catalog.ExecutionResult, error)
}

// Key is the storage key of a test's latest result.
func Key(testID int64) string {
	return keyPrefix + strconv.FormatInt(testID, 10)
}

type MemorySink struct {
	mu      sync.RWMutex
	results map[int64]catalog.ExecutionResult
}

func NewMemorySink() *MemorySink {
	return &MemorySink{results: map[int64]catalog.ExecutionResult{}}
}

func (m *MemorySink) Save(ctx context.Context, result catalog.ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.TestID] = result
	return nil
}

func (m *MemorySink) Load(ctx context.Context, testID int64) (catalog.ExecutionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[testID]
	if !ok {
		return catalog.ExecutionResult{}, ErrNoResult
	}
	return result, nil
}
