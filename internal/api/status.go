package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleStatusOverview implements §6.4: GET /api/status.
func (h *handlers) handleStatusOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.deps.StatusView.Overview(r.Context(), h.deps.Clock.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleStatusProject implements §6.4: GET /api/status/{project_id}.
func (h *handlers) handleStatusProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	summary, err := h.deps.StatusView.Project(r.Context(), projectID, h.deps.Clock.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleStatusLogs implements the supplemented
// GET /api/status/{project_id}/checks/{name}/logs endpoint.
func (h *handlers) handleStatusLogs(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	name := chi.URLParam(r, "name")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	logs, err := h.deps.StatusView.Logs(r.Context(), projectID, name, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
