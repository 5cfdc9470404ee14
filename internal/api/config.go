package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/registry"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

type checkSpecRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type"`
	Interval    int64  `json:"interval,omitempty"`
	Grace       int64  `json:"grace,omitempty"`
	Threshold   int64  `json:"threshold,omitempty"`
	Cooldown    int64  `json:"cooldown,omitempty"`
}

type registerRequest struct {
	ProjectID   string             `json:"project_id"`
	DisplayName string             `json:"display_name,omitempty"`
	Checks      []checkSpecRequest `json:"checks"`
}

type registerResponse struct {
	Success          bool   `json:"success"`
	ProjectID        string `json:"project_id"`
	ChecksRegistered int    `json:"checks_registered"`
}

// handleRegister implements §6.2: PUT /api/config.
func (h *handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDomainError(w, err)
		return
	}

	specs := make([]registry.CheckSpec, 0, len(body.Checks))
	for _, c := range body.Checks {
		specs = append(specs, registry.CheckSpec{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Type:        watchdog.CheckType(c.Type),
			Interval:    c.Interval,
			Grace:       c.Grace,
			Threshold:   c.Threshold,
			Cooldown:    c.Cooldown,
		})
	}

	n, err := h.deps.Registry.Register(r.Context(), auth.TokenFromRequest(r), body.ProjectID, body.DisplayName, specs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{Success: true, ProjectID: body.ProjectID, ChecksRegistered: n})
}

type rotateTokenResponse struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"project_id"`
	Token     string `json:"token"`
}

// handleRotateToken implements the supplemented
// POST /api/config/{project_id}/rotate-token endpoint. The caller must
// already authenticate as the project (its current token) to rotate it.
func (h *handlers) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	if _, err := h.deps.Authenticator.Resolve(r.Context(), projectID, auth.TokenFromRequest(r)); err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.deps.Registry.RotateToken(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rotateTokenResponse{Success: true, ProjectID: projectID, Token: token})
}
