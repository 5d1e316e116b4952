package handlers

import "net/http"

// SessionCounter reports how many browser sessions are live.
type SessionCounter interface {
	Len() int
}

type HealthHandler struct {
	sessions SessionCounter
}

func NewHealthHandler(sessions SessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// HealthCheck answers liveness probes.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h != nil && h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}
