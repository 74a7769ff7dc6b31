package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"apitest-backend/internal/contract"
)

const maxContractBytes = 5 << 20

func (h *Handler) handleContractImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := contract.ImportOptions{BaseURL: query.Get("base_url"), Strict: h.Strict}
	if raw := query.Get("strict"); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("strict must be a boolean"))
			return
		}
		opts.Strict = strict
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContractBytes))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("read contract: %v", err))
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	result, err := h.Importer.Import(ctx, data, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
