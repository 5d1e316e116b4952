package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/prescription-ai-portal/internal/compliance"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// AuthHandler exposes signup, login, logout and the current session.
type AuthHandler struct {
	logger        *logging.Logger
	settleTimeout time.Duration
	audit         auditTrail
}

func NewAuthHandler(settleTimeout time.Duration, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{logger: logger, settleTimeout: settleTimeout, audit: auditTrail{logger: logger}}
}

// WithAuditor records sign-ins, sign-outs and rejected credentials.
func (h *AuthHandler) WithAuditor(a Auditor) *AuthHandler {
	h.audit.auditor = a
	return h
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a patient account.
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		jsonError(w, "email, password and name are required", http.StatusBadRequest)
		return
	}
	if h.signedIn(r.Context(), m) {
		jsonError(w, "already signed in", http.StatusConflict)
		return
	}

	if err := m.Signup(r.Context(), req.Email, req.Password, req.Name); err != nil {
		h.writeAuthError(w, m, "signup", err)
		return
	}
	snap := settledSnapshot(r.Context(), m, h.settleTimeout)
	h.audit.auth(r.Context(), compliance.EventSignedIn, "signup", m.ID(), patientID(snap), req.Email)
	writeJSON(w, http.StatusCreated, newSessionResponse(m, snap))
}

// Login signs in with email and password.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		jsonError(w, "email and password are required", http.StatusBadRequest)
		return
	}
	if h.signedIn(r.Context(), m) {
		jsonError(w, "already signed in", http.StatusConflict)
		return
	}

	if err := m.Login(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.audit.auth(r.Context(), compliance.EventLoginFailed, "login", m.ID(), "", req.Email)
		}
		h.writeAuthError(w, m, "login", err)
		return
	}
	snap := settledSnapshot(r.Context(), m, h.settleTimeout)
	h.audit.auth(r.Context(), compliance.EventSignedIn, "login", m.ID(), patientID(snap), req.Email)
	writeJSON(w, http.StatusOK, newSessionResponse(m, snap))
}

// Logout ends the provider session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	before := m.Snapshot()
	if err := m.Logout(r.Context()); err != nil {
		h.writeAuthError(w, m, "logout", err)
		return
	}
	if before.Identity != nil {
		h.audit.auth(r.Context(), compliance.EventSignedOut, "logout", m.ID(), before.Identity.ID, before.Identity.Email)
	}
	writeJSON(w, http.StatusOK, newSessionResponse(m, settledSnapshot(r.Context(), m, h.settleTimeout)))
}

// Session returns the resolved session.
// GET /api/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(m, settledSnapshot(r.Context(), m, h.settleTimeout)))
}

func (h *AuthHandler) signedIn(ctx context.Context, m *session.Manager) bool {
	return settledSnapshot(ctx, m, h.settleTimeout).Identity != nil
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, m *session.Manager, op string, err error) {
	status := authStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth operation failed", "op", op, "session_id", m.ID(), "error", err)
	} else {
		h.logger.Info("auth operation rejected", "op", op, "session_id", m.ID(), "status", status)
	}
	jsonError(w, session.UserMessage(err), status)
}

func patientID(snap session.Session) string {
	if snap.Identity == nil {
		return ""
	}
	return snap.Identity.ID
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, session.ErrNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
