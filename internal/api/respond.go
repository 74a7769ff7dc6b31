package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	catalog "apitest-backend"
	"apitest-backend/internal/contract"
	"apitest-backend/internal/executor"
)

type errorResponse struct {
	Ok      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("invalid json payload")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Ok: false, Code: "invalid_input", Message: err.Error()})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput), errors.Is(err, contract.ErrInvalidContract):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_input", Message: err.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, catalog.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "conflict", Message: err.Error()})
	case errors.Is(err, executor.ErrDependencyCycle):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "dependency_cycle", Message: err.Error()})
	case errors.Is(err, catalog.ErrInvalidDependency):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "invalid_dependency", Message: err.Error()})
	case errors.Is(err, catalog.ErrUnavailable), isContextError(err):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: err.Error()})
	default:
		h.logger().Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal error"})
	}
}
