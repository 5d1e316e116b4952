package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
)

const (
	maxBodyBytes         = 1 << 20
	defaultSettleTimeout = 5 * time.Second
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// requireSession pulls the request's manager out of the context; a missing
// manager means the session middleware was not mounted.
func requireSession(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
	m, ok := httpmiddleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "session unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return m, true
}

// settledSnapshot waits briefly for in-flight resolution before reading the
// session. On timeout the current, possibly loading, snapshot is returned.
func settledSnapshot(ctx context.Context, m *session.Manager, timeout time.Duration) session.Session {
	if timeout <= 0 {
		timeout = defaultSettleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = m.Settled(ctx)
	return m.Snapshot()
}

// SessionResponse is the JSON view of a session.
type SessionResponse struct {
	SessionID   string          `json:"sessionId"`
	State       session.State   `json:"state"`
	DisplayName string          `json:"displayName,omitempty"`
	Session     session.Session `json:"session"`
}

func newSessionResponse(m *session.Manager, snap session.Session) SessionResponse {
	return SessionResponse{
		SessionID:   m.ID(),
		State:       m.State(),
		DisplayName: snap.DisplayName(),
		Session:     snap,
	}
}
