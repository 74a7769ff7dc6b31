// file: models.go
package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type TestCase struct {
	ID                 int64           `json:"id"`
	URL                string          `json:"url"`
	Method             string          `json:"request_method"`
	Payload            json.RawMessage `json:"payload"`
	ExpectedStatusCode int             `json:"expected_response_code"`
	ExpectedResponse   json.RawMessage `json:"expected_response_json"`
	DependencyID       *int64          `json:"dependency_id"`
}

// Normalized upper-cases the method and folds JSON null into an absent value so
// every backend stores the same shape.
func (t TestCase) Normalized() TestCase {
	t.URL = strings.TrimSpace(t.URL)
	t.Method = strings.ToUpper(strings.TrimSpace(t.Method))
	t.Payload = normalizeJSON(t.Payload)
	t.ExpectedResponse = normalizeJSON(t.ExpectedResponse)
	return t
}

type Verdict string

const (
	VerdictPassed Verdict = "passed"
	VerdictFailed Verdict = "failed"
	VerdictError  Verdict = "error"
)

type ExecutionResult struct {
	TestID           int64           `json:"test_id"`
	RunID            string          `json:"run_id"`
	ActualStatusCode int             `json:"actual_status_code"`
	ActualResponse   json.RawMessage `json:"actual_response"`
	Verdict          Verdict         `json:"verdict"`
	Error            string          `json:"error,omitempty"`
	Diff             string          `json:"diff,omitempty"`
	DurationMS       int64           `json:"duration_ms"`
	ExecutedAt       time.Time       `json:"executed_at"`
}

type Page struct {
	Items    []TestCase `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

func normalizeJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

// nullableJSON turns an absent document into a SQL NULL argument.
func nullableJSON(raw json.RawMessage) any {
	raw = normalizeJSON(raw)
	if raw == nil {
		return nil
	}
	return string(raw)
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
