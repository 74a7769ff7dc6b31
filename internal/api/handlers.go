package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/contract"
	"apitest-backend/internal/executor"
	"apitest-backend/internal/results"
)

type Runner interface {
	Run(ctx context.Context, ids []int64) ([]executor.Outcome, error)
}

type Importer interface {
	Import(ctx context.Context, data []byte, opts contract.ImportOptions) (contract.ImportResult, error)
}

type EventPublisher interface {
	Publish(subject string, payload any) error
}

type Handler struct {
	Catalog  catalog.Catalog
	Runner   Runner
	Importer Importer
	Results  results.Sink
	Bus      EventPublisher
	Logger   *slog.Logger
	Timeout  time.Duration
	// Strict is the default for contract validation when the request does not say.
	Strict bool
}

type testCaseRequest struct {
	URL                string          `json:"url"`
	Method             string          `json:"request_method"`
	Payload            json.RawMessage `json:"payload"`
	ExpectedStatusCode int             `json:"expected_response_code"`
	ExpectedResponse   json.RawMessage `json:"expected_response_json"`
	DependencyID       *int64          `json:"dependency_id"`
}

func (req testCaseRequest) testCase() catalog.TestCase {
	return catalog.TestCase{
		URL:                req.URL,
		Method:             req.Method,
		Payload:            req.Payload,
		ExpectedStatusCode: req.ExpectedStatusCode,
		ExpectedResponse:   req.ExpectedResponse,
		DependencyID:       req.DependencyID,
	}
}

type testCaseEvent struct {
	TestID int64  `json:"test_id"`
	URL    string `json:"url,omitempty"`
	Method string `json:"request_method,omitempty"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Route("/tests", func(r chi.Router) {
		r.Post("/", h.handleTestUpsert)
		r.Get("/", h.handleTestList)
		r.Post("/run", h.handleRun)
		r.Get("/{id}", h.handleTestGet)
		r.Put("/{id}", h.handleTestUpdate)
		r.Delete("/{id}", h.handleTestDelete)
	})
	r.Get("/results/{id}", h.handleResultGet)
	r.Post("/contracts/import", h.handleContractImport)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

func (h *Handler) publish(subject string, payload any) {
	if h.Bus == nil {
		return
	}
	if err := h.Bus.Publish(subject, payload); err != nil {
		h.logger().Error("failed to publish event", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.Timeout)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	if err := h.Catalog.Ping(ctx); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleTestUpsert(w http.ResponseWriter, r *http.Request) {
	var req testCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	stored, err := h.Catalog.Upsert(ctx, req.testCase())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.publish(bus.SubjectTestCaseUpserted, testCaseEvent{TestID: stored.ID, URL: stored.URL, Method: stored.Method})
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleTestList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := catalog.ListOptions{SortKey: query.Get("sort"), Order: query.Get("order")}
	var err error
	if opts.Page, err = queryInt(query.Get("page")); err != nil {
		writeBadRequest(w, err)
		return
	}
	if opts.PageSize, err = queryInt(query.Get("page_size")); err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	page, err := h.Catalog.List(ctx, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleTestGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	tc, err := h.Catalog.Get(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (h *Handler) handleTestUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req testCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	stored, err := h.Catalog.Update(ctx, id, req.testCase())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.publish(bus.SubjectTestCaseUpserted, testCaseEvent{TestID: stored.ID, URL: stored.URL, Method: stored.Method})
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleTestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	if err := h.Catalog.Delete(ctx, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.publish(bus.SubjectTestCaseDeleted, testCaseEvent{TestID: id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Ok: false, Code: "invalid_input", Message: "invalid test id " + strconv.Quote(raw)})
		return 0, false
	}
	return id, true
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
