package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/results"
)

func seed(t *testing.T, store *catalog.MemoryCatalog, tc catalog.TestCase) catalog.TestCase {
	t.Helper()
	stored, err := store.Upsert(context.Background(), tc)
	require.NoError(t, err)
	return stored
}

func newTestExecutor(store catalog.Catalog, sink results.Sink, events EventPublisher) *Executor {
	return New(store, NewClient(2*time.Second), sink, events, nil)
}

func TestRunPassAndFailOnExample(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/ok", httphelpers.HandlerWithResponse(200, http.Header{"Content-Type": {"application/json"}}, []byte(`{"status": "ok"}`)))
	mux.Handle("/fail", httphelpers.HandlerWithResponse(200, http.Header{"Content-Type": {"application/json"}}, []byte(`{"status": "fail"}`)))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := catalog.NewMemoryCatalog()
	expected := json.RawMessage(`{"status": "ok"}`)
	pass := seed(t, store, catalog.TestCase{URL: srv.URL + "/ok", Method: "GET", ExpectedStatusCode: 200, ExpectedResponse: expected})
	fail := seed(t, store, catalog.TestCase{URL: srv.URL + "/fail", Method: "GET", ExpectedStatusCode: 200, ExpectedResponse: expected})

	sink := results.NewMemorySink()
	events := &bus.Recorder{}
	outcomes, err := newTestExecutor(store, sink, events).Run(context.Background(), []int64{fail.ID, pass.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, pass.ID, outcomes[0].Test.ID)
	assert.Equal(t, catalog.VerdictPassed, outcomes[0].Result.Verdict)
	assert.Empty(t, outcomes[0].Result.Diff)
	assert.Equal(t, catalog.VerdictFailed, outcomes[1].Result.Verdict)
	assert.Contains(t, outcomes[1].Result.Diff, "fail")
	assert.Equal(t, outcomes[0].Result.RunID, outcomes[1].Result.RunID)

	saved, err := sink.Load(context.Background(), fail.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.VerdictFailed, saved.Verdict)
	assert.JSONEq(t, `{"status":"fail"}`, string(saved.ActualResponse))

	assert.Equal(t, []string{bus.SubjectTestRunCompleted}, events.Subjects())
	var summary Summary
	require.NoError(t, json.Unmarshal(events.Events()[0].Data, &summary))
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Cancelled)
}

func TestRunStatusMismatchFails(t *testing.T) {
	srv := httptest.NewServer(httphelpers.HandlerWithStatus(500))
	defer srv.Close()
	store := catalog.NewMemoryCatalog()
	tc := seed(t, store, catalog.TestCase{URL: srv.URL, Method: "GET", ExpectedStatusCode: 200})

	outcomes, err := newTestExecutor(store, nil, nil).Run(context.Background(), []int64{tc.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, catalog.VerdictFailed, outcomes[0].Result.Verdict)
	assert.Equal(t, 500, outcomes[0].Result.ActualStatusCode)
	assert.Contains(t, outcomes[0].Result.Diff, "expected 200, got 500")
}

func TestRunFollowsDependencyChain(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(204))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	store := catalog.NewMemoryCatalog()
	c := seed(t, store, catalog.TestCase{URL: srv.URL + "/c", Method: "DELETE", ExpectedStatusCode: 204})
	a := seed(t, store, catalog.TestCase{URL: srv.URL + "/a", Method: "POST", Payload: json.RawMessage(`{"name":"x"}`), ExpectedStatusCode: 204})
	b := seed(t, store, catalog.TestCase{URL: srv.URL + "/b", Method: "PUT", ExpectedStatusCode: 204, DependencyID: &a.ID})
	c.DependencyID = &b.ID
	_, err := store.Update(context.Background(), c.ID, c)
	require.NoError(t, err)

	outcomes, err := newTestExecutor(store, nil, nil).Run(context.Background(), []int64{c.ID, b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	paths := []string{}
	for range outcomes {
		info := <-requests
		paths = append(paths, info.Request.URL.Path)
	}
	assert.Equal(t, []string{"/a", "/b", "/c"}, paths)
	for _, o := range outcomes {
		assert.Equal(t, catalog.VerdictPassed, o.Result.Verdict, "test %d", o.Test.ID)
	}
}

func TestRunSendsPayloadAsJSON(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
	srv := httptest.NewServer(handler)
	defer srv.Close()
	store := catalog.NewMemoryCatalog()
	tc := seed(t, store, catalog.TestCase{URL: srv.URL + "/items", Method: "POST", Payload: json.RawMessage(`{"name":"widget","qty":3}`), ExpectedStatusCode: 201})

	_, err := newTestExecutor(store, nil, nil).Run(context.Background(), []int64{tc.ID})
	require.NoError(t, err)
	info := <-requests
	assert.Equal(t, "POST", info.Request.Method)
	assert.Equal(t, "application/json", info.Request.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"widget","qty":3}`, string(info.Body))
}

func TestRunTransportErrorDoesNotAbortBatch(t *testing.T) {
	srv := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	defer srv.Close()
	dead := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	deadURL := dead.URL
	dead.Close()

	store := catalog.NewMemoryCatalog()
	broken := seed(t, store, catalog.TestCase{URL: deadURL + "/gone", Method: "GET", ExpectedStatusCode: 200})
	healthy := seed(t, store, catalog.TestCase{URL: srv.URL + "/up", Method: "GET", ExpectedStatusCode: 200})

	sink := results.NewMemorySink()
	outcomes, err := newTestExecutor(store, sink, nil).Run(context.Background(), []int64{broken.ID, healthy.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, catalog.VerdictError, outcomes[0].Result.Verdict)
	assert.NotEmpty(t, outcomes[0].Result.Error)
	assert.Equal(t, catalog.VerdictPassed, outcomes[1].Result.Verdict)

	saved, err := sink.Load(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.VerdictError, saved.Verdict)
}

func TestRunMalformedBodyIsNull(t *testing.T) {
	srv := httptest.NewServer(httphelpers.HandlerWithResponse(200, nil, []byte("<html>oops</html>")))
	defer srv.Close()
	store := catalog.NewMemoryCatalog()
	noExpectation := seed(t, store, catalog.TestCase{URL: srv.URL + "/a", Method: "GET", ExpectedStatusCode: 200})
	withExpectation := seed(t, store, catalog.TestCase{URL: srv.URL + "/b", Method: "GET", ExpectedStatusCode: 200, ExpectedResponse: json.RawMessage(`{"a":1}`)})

	outcomes, err := newTestExecutor(store, nil, nil).Run(context.Background(), []int64{noExpectation.ID, withExpectation.ID})
	require.NoError(t, err)
	assert.Nil(t, outcomes[0].Result.ActualResponse)
	assert.Equal(t, catalog.VerdictPassed, outcomes[0].Result.Verdict)
	assert.Equal(t, catalog.VerdictFailed, outcomes[1].Result.Verdict)
}

func TestRunPerCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	store := catalog.NewMemoryCatalog()
	tc := seed(t, store, catalog.TestCase{URL: srv.URL, Method: "GET", ExpectedStatusCode: 200})
	exec := New(store, NewClient(50*time.Millisecond), nil, nil, nil)

	outcomes, err := exec.Run(context.Background(), []int64{tc.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, catalog.VerdictError, outcomes[0].Result.Verdict)
	assert.Contains(t, outcomes[0].Result.Error, "deadline exceeded")
}

type cancellingSender struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSender) Send(ctx context.Context, tc catalog.TestCase) (Response, error) {
	s.calls++
	s.cancel()
	return Response{StatusCode: tc.ExpectedStatusCode}, nil
}

func TestRunStopsOnCancellation(t *testing.T) {
	store := catalog.NewMemoryCatalog()
	a := seed(t, store, catalog.TestCase{URL: "http://h/a", Method: "GET", ExpectedStatusCode: 200})
	b := seed(t, store, catalog.TestCase{URL: "http://h/b", Method: "GET", ExpectedStatusCode: 200})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &cancellingSender{cancel: cancel}
	events := &bus.Recorder{}
	outcomes, err := New(store, sender, nil, events, nil).Run(ctx, []int64{a.ID, b.ID})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 1)
	assert.Equal(t, a.ID, outcomes[0].Test.ID)
	assert.Equal(t, 1, sender.calls)
	var summary Summary
	require.NoError(t, json.Unmarshal(events.Events()[0].Data, &summary))
	assert.True(t, summary.Cancelled)
}

func TestRunRejectsBadBatches(t *testing.T) {
	store := catalog.NewMemoryCatalog()
	exec := newTestExecutor(store, nil, nil)

	_, err := exec.Run(context.Background(), nil)
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)

	_, err = exec.Run(context.Background(), []int64{404})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

type staticSource []catalog.TestCase

func (s staticSource) GetMany(ctx context.Context, ids []int64) ([]catalog.TestCase, error) {
	return s, nil
}

func TestRunRejectsCycle(t *testing.T) {
	src := staticSource{{ID: 1, DependencyID: dep(2)}, {ID: 2, DependencyID: dep(1)}}
	sender := &cancellingSender{cancel: func() {}}
	_, err := New(src, sender, nil, nil, nil).Run(context.Background(), []int64{1, 2})
	assert.True(t, errors.Is(err, ErrDependencyCycle))
	assert.Zero(t, sender.calls)
}

func TestCompareBodies(t *testing.T) {
	ok, diff := compareBodies(json.RawMessage(`{"a":[1,2],"b":null}`), json.RawMessage(`{"b":null,"a":[1,2]}`))
	assert.True(t, ok)
	assert.Empty(t, diff)

	ok, diff = compareBodies(json.RawMessage(`{"a":1}`), nil)
	assert.False(t, ok)
	assert.NotEmpty(t, diff)

	ok, _ = compareBodies(nil, nil)
	assert.True(t, ok)
}

func TestCompareBodiesNumbers(t *testing.T) {
	ok, diff := compareBodies(json.RawMessage(`{"id":9007199254740993}`), json.RawMessage(`{"id":9007199254740992}`))
	assert.False(t, ok)
	assert.Contains(t, diff, "9007199254740993")

	ok, _ = compareBodies(json.RawMessage(`{"id":9007199254740993}`), json.RawMessage(`{"id":9007199254740993}`))
	assert.True(t, ok)

	ok, diff = compareBodies(json.RawMessage(`{"n":1,"f":[2.50]}`), json.RawMessage(`{"n":1.0,"f":[2.5e0]}`))
	assert.True(t, ok, diff)

	ok, _ = compareBodies(json.RawMessage(`{"a":1}`), json.RawMessage(`{"a":1} {"b":2}`))
	assert.False(t, ok)
}
