package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchdog-hq/sentinel/internal/auth"
)

type maintenanceRequest struct {
	Duration *int64 `json:"duration,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

type maintenanceResponse struct {
	Success          bool   `json:"success"`
	ProjectID        string `json:"project_id"`
	MaintenanceUntil int64  `json:"maintenance_until"`
}

// handleMaintenance implements §6.3: POST /api/maintenance/{project_id}.
// The caller authenticates as the project the same way pulse/config do.
func (h *handlers) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	if _, err := h.deps.Authenticator.Resolve(r.Context(), projectID, auth.TokenFromRequest(r)); err != nil {
		writeDomainError(w, err)
		return
	}

	var body maintenanceRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	until, err := h.deps.Registry.SetMaintenance(r.Context(), projectID, body.Duration, body.Enabled)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, maintenanceResponse{Success: true, ProjectID: projectID, MaintenanceUntil: until})
}
