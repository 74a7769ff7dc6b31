package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	catalog "apitest-backend"
	"apitest-backend/internal/executor"
	"apitest-backend/internal/results"
)

type runRequest struct {
	IDs []int64 `json:"ids"`
}

// RunItem is a test case annotated with the outcome of its latest run.
type RunItem struct {
	catalog.TestCase
	Result catalog.ExecutionResult `json:"result"`
	State  catalog.Verdict         `json:"state"`
}

type runResponse struct {
	RunID   string           `json:"run_id"`
	Items   []RunItem        `json:"items"`
	Summary executor.Summary `json:"summary"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(req.IDs) == 0 {
		writeBadRequest(w, fmt.Errorf("ids must not be empty"))
		return
	}
	outcomes, err := h.Runner.Run(r.Context(), req.IDs)
	if err != nil && len(outcomes) == 0 && !isContextError(err) {
		h.writeError(w, err)
		return
	}
	items := make([]RunItem, 0, len(outcomes))
	runID := ""
	for _, o := range outcomes {
		runID = o.Result.RunID
		items = append(items, RunItem{TestCase: o.Test, Result: o.Result, State: o.Result.Verdict})
	}
	summary := executor.Summarize(runID, outcomes, 0)
	summary.Cancelled = err != nil
	for _, item := range items {
		summary.DurationMS += item.Result.DurationMS
	}
	writeJSON(w, http.StatusOK, runResponse{RunID: runID, Items: items, Summary: summary})
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (h *Handler) handleResultGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	result, err := h.Results.Load(ctx, id)
	if errors.Is(err, results.ErrNoResult) {
		writeJSON(w, http.StatusNotFound, errorResponse{Ok: false, Code: "not_found", Message: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
