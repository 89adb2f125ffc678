// Package httphandler serves the read-only run-history API.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// maxListLimit bounds how many runs one listing may return.
const maxListLimit = 500

// Handler is the HTTP driving adapter over the run ledger.
type Handler struct {
	runs   driven.RunStore
	logger *slog.Logger
}

// NewHandler creates a Handler backed by runs.
func NewHandler(runs driven.RunStore, logger *slog.Logger) *Handler {
	return &Handler{runs: runs, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListRuns returns recorded runs newest first. Optional query parameters:
// policy (close-issues, close-prs, lock-issues) and limit (1..500).
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := driven.RunFilter{Limit: 50}

	if v := r.URL.Query().Get("policy"); v != "" {
		kind := model.PolicyKind(v)
		switch kind {
		case model.PolicyCloseIssues, model.PolicyClosePRs, model.PolicyLockIssues:
			filter.Policy = kind
		default:
			writeError(w, http.StatusBadRequest, "unknown policy")
			return
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for i := range runs {
		resp = append(resp, toRunResponse(&runs[i], false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single run with its acted items and comments.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, driven.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run, true))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
