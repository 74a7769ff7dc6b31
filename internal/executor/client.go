package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	catalog "apitest-backend"
)

const maxBodyBytes = 10 << 20

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Response struct {
	StatusCode int
	// Body is the decoded JSON body, or nil when the body is empty or not JSON.
	Body json.RawMessage
	Raw  []byte
}

type Client struct {
	HTTP    Doer
	Timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{}, Timeout: timeout}
}

// Send issues the request a test case describes. Each call is bounded by the
// client timeout on top of ctx.
func (c *Client) Send(ctx context.Context, tc catalog.TestCase) (Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var body io.Reader
	if tc.Payload != nil {
		body = bytes.NewReader(tc.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, tc.Method, tc.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tc.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: decodeBody(raw), Raw: raw}, nil
}

func decodeBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.RawMessage(trimmed)
}
