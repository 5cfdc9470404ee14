package api

import (
	"net/http"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/ingest"
)

type pulseRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	CheckName string `json:"check_name"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Latency   int64  `json:"latency,omitempty"`
}

type pulseResponse struct {
	Success   bool   `json:"success"`
	CheckID   string `json:"check_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// handlePulse implements §6.1: POST /api/pulse.
func (h *handlers) handlePulse(w http.ResponseWriter, r *http.Request) {
	var body pulseRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.deps.Ingestor.Ingest(r.Context(), ingest.Request{
		Token:     auth.TokenFromRequest(r),
		ProjectID: body.ProjectID,
		CheckName: body.CheckName,
		Status:    body.Status,
		Message:   body.Message,
		Latency:   body.Latency,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pulseResponse{
		Success:   true,
		CheckID:   res.CheckID,
		Status:    string(res.Status),
		Timestamp: res.Now,
	})
}
